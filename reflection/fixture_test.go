// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvreflect/spirv"
)

// shader synthesizes single-entry-point modules for tests.
type shader struct {
	t     *testing.T
	b     *spirv.ModuleBuilder
	model spirv.ExecutionModel
	entry string

	f32, u32, i32 uint32
}

func newShader(t *testing.T, stage Stage) *shader {
	t.Helper()
	models := map[Stage]spirv.ExecutionModel{
		StageVertex:      spirv.ExecutionModelVertex,
		StageTessControl: spirv.ExecutionModelTessellationControl,
		StageTessEval:    spirv.ExecutionModelTessellationEvaluation,
		StageGeometry:    spirv.ExecutionModelGeometry,
		StageFragment:    spirv.ExecutionModelFragment,
		StageCompute:     spirv.ExecutionModelGLCompute,
	}
	b := spirv.NewModuleBuilder(spirv.Version1_3)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	s := &shader{t: t, b: b, model: models[stage], entry: stage.String() + "_main"}
	s.f32 = b.AddTypeFloat(32)
	s.u32 = b.AddTypeInt(32, false)
	s.i32 = b.AddTypeInt(32, true)
	return s
}

func (s *shader) vec(n uint32) uint32 { return s.b.AddTypeVector(s.f32, n) }

func (s *shader) mat(cols, rows uint32) uint32 { return s.b.AddTypeMatrix(s.vec(rows), cols) }

func (s *shader) array(elem, n, stride uint32) uint32 {
	a := s.b.AddTypeArray(elem, s.b.AddConstant(s.u32, n))
	if stride > 0 {
		s.b.AddDecorate(a, spirv.DecorationArrayStride, stride)
	}
	return a
}

func (s *shader) runtimeArray(elem, stride uint32) uint32 {
	a := s.b.AddTypeRuntimeArray(elem)
	if stride > 0 {
		s.b.AddDecorate(a, spirv.DecorationArrayStride, stride)
	}
	return a
}

type member struct {
	name         string
	typ          uint32
	offset       uint32
	matrixStride uint32
}

func (s *shader) structType(name string, members ...member) uint32 {
	types := make([]uint32, len(members))
	for i, m := range members {
		types[i] = m.typ
	}
	st := s.b.AddTypeStruct(types...)
	if name != "" {
		s.b.AddName(st, name)
	}
	for i, m := range members {
		s.b.AddMemberName(st, uint32(i), m.name)
		s.b.AddMemberDecorate(st, uint32(i), spirv.DecorationOffset, m.offset)
		if m.matrixStride > 0 {
			s.b.AddMemberDecorate(st, uint32(i), spirv.DecorationColMajor)
			s.b.AddMemberDecorate(st, uint32(i), spirv.DecorationMatrixStride, m.matrixStride)
		}
	}
	return st
}

func (s *shader) resource(typ uint32, storage spirv.StorageClass, name string, set, binding uint32) {
	v := s.b.AddVariable(s.b.AddTypePointer(storage, typ), storage)
	if name != "" {
		s.b.AddName(v, name)
	}
	s.b.AddDecorate(v, spirv.DecorationDescriptorSet, set)
	s.b.AddDecorate(v, spirv.DecorationBinding, binding)
}

func (s *shader) sampler(name string, set, binding uint32) {
	s.resource(s.b.AddTypeSampler(), spirv.StorageClassUniformConstant, name, set, binding)
}

func (s *shader) image2D() uint32 {
	return s.b.AddTypeImage(s.f32, spirv.Dim2D, 0, false, false, 1, 0)
}

func (s *shader) texture(name string, set, binding uint32) {
	s.resource(s.image2D(), spirv.StorageClassUniformConstant, name, set, binding)
}

func (s *shader) uniform(name string, set, binding uint32, members ...member) {
	st := s.structType(name+"Block", members...)
	s.b.AddDecorate(st, spirv.DecorationBlock)
	s.resource(st, spirv.StorageClassUniform, name, set, binding)
}

func (s *shader) storage(name string, set, binding uint32, members ...member) {
	st := s.structType(name+"Block", members...)
	s.b.AddDecorate(st, spirv.DecorationBlock)
	s.resource(st, spirv.StorageClassStorageBuffer, name, set, binding)
}

func (s *shader) push(name string, members ...member) {
	st := s.structType(name+"Block", members...)
	s.b.AddDecorate(st, spirv.DecorationBlock)
	v := s.b.AddVariable(s.b.AddTypePointer(spirv.StorageClassPushConstant, st), spirv.StorageClassPushConstant)
	s.b.AddName(v, name)
}

func (s *shader) words() []uint32 {
	voidType := s.b.AddTypeVoid()
	fn := s.b.AddFunction(s.b.AddTypeFunction(voidType), voidType, spirv.FunctionControlNone)
	s.b.AddLabel()
	s.b.AddReturn()
	s.b.AddFunctionEnd()
	s.b.AddEntryPoint(s.model, fn, s.entry, nil)
	return s.b.Words()
}

func (s *shader) parse() (*Reflection, error) {
	return ParseWords(s.words())
}

func (s *shader) reflect() *Reflection {
	s.t.Helper()
	r, err := s.parse()
	require.NoError(s.t, err)
	return r
}

// requireKind asserts err is a reflection *Error of the given kind.
func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, kind, e.Kind, "error: %v", err)
	return e
}
