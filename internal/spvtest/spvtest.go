// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvtest synthesizes small single-entry-point SPIR-V modules for
// tests of the packages built on top of reflection.
package spvtest

import (
	"github.com/gogpu/spvreflect/spirv"
)

// Shader accumulates resource declarations for one entry point.
type Shader struct {
	B *spirv.ModuleBuilder

	model spirv.ExecutionModel
	entry string
	done  bool

	F32, U32, I32 uint32
}

// New starts a module whose only entry point has the given model and name.
func New(model spirv.ExecutionModel, entry string) *Shader {
	b := spirv.NewModuleBuilder(spirv.Version1_3)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	s := &Shader{B: b, model: model, entry: entry}
	s.F32 = b.AddTypeFloat(32)
	s.U32 = b.AddTypeInt(32, false)
	s.I32 = b.AddTypeInt(32, true)
	return s
}

// Vertex, Fragment and Compute are shorthands for New.
func Vertex() *Shader   { return New(spirv.ExecutionModelVertex, "vs_main") }
func Fragment() *Shader { return New(spirv.ExecutionModelFragment, "fs_main") }
func Compute() *Shader  { return New(spirv.ExecutionModelGLCompute, "cs_main") }

// Vec declares an n-component f32 vector.
func (s *Shader) Vec(n uint32) uint32 { return s.B.AddTypeVector(s.F32, n) }

// Mat declares a column-major f32 matrix.
func (s *Shader) Mat(cols, rows uint32) uint32 { return s.B.AddTypeMatrix(s.Vec(rows), cols) }

// Array declares a sized array; stride 0 leaves it undecorated.
func (s *Shader) Array(elem, n, stride uint32) uint32 {
	a := s.B.AddTypeArray(elem, s.B.AddConstant(s.U32, n))
	if stride > 0 {
		s.B.AddDecorate(a, spirv.DecorationArrayStride, stride)
	}
	return a
}

// RuntimeArray declares an unsized array.
func (s *Shader) RuntimeArray(elem, stride uint32) uint32 {
	a := s.B.AddTypeRuntimeArray(elem)
	if stride > 0 {
		s.B.AddDecorate(a, spirv.DecorationArrayStride, stride)
	}
	return a
}

// Member is one struct member with its explicit offset. MatrixStride is
// required for matrix members.
type Member struct {
	Name         string
	Type         uint32
	Offset       uint32
	MatrixStride uint32
}

// Struct declares a named struct with offset-decorated members.
func (s *Shader) Struct(name string, members ...Member) uint32 {
	types := make([]uint32, len(members))
	for i, m := range members {
		types[i] = m.Type
	}
	st := s.B.AddTypeStruct(types...)
	if name != "" {
		s.B.AddName(st, name)
	}
	for i, m := range members {
		s.B.AddMemberName(st, uint32(i), m.Name)
		s.B.AddMemberDecorate(st, uint32(i), spirv.DecorationOffset, m.Offset)
		if m.MatrixStride > 0 {
			s.B.AddMemberDecorate(st, uint32(i), spirv.DecorationColMajor)
			s.B.AddMemberDecorate(st, uint32(i), spirv.DecorationMatrixStride, m.MatrixStride)
		}
	}
	return st
}

// Resource declares a bound variable and returns its id.
func (s *Shader) Resource(typ uint32, storage spirv.StorageClass, name string, set, binding uint32) uint32 {
	v := s.B.AddVariable(s.B.AddTypePointer(storage, typ), storage)
	if name != "" {
		s.B.AddName(v, name)
	}
	s.B.AddDecorate(v, spirv.DecorationDescriptorSet, set)
	s.B.AddDecorate(v, spirv.DecorationBinding, binding)
	return v
}

// Sampler declares a sampler binding.
func (s *Shader) Sampler(name string, set, binding uint32) {
	s.Resource(s.B.AddTypeSampler(), spirv.StorageClassUniformConstant, name, set, binding)
}

// Image declares an image type sampling the given scalar type.
func (s *Shader) Image(sampledType uint32, dim spirv.Dim, depth uint32, arrayed, multisampled bool, sampled uint32) uint32 {
	return s.B.AddTypeImage(sampledType, dim, depth, arrayed, multisampled, sampled, 0)
}

// Texture declares a sampled 2D f32 image binding.
func (s *Shader) Texture(name string, set, binding uint32) {
	s.Resource(s.Image(s.F32, spirv.Dim2D, 0, false, false, 1), spirv.StorageClassUniformConstant, name, set, binding)
}

// StorageImage declares a 2D storage image binding.
func (s *Shader) StorageImage(name string, set, binding uint32, readOnly bool) {
	v := s.Resource(s.Image(s.F32, spirv.Dim2D, 0, false, false, 2), spirv.StorageClassUniformConstant, name, set, binding)
	if readOnly {
		s.B.AddDecorate(v, spirv.DecorationNonWritable)
	}
}

// Uniform declares a uniform buffer whose block type is name+"Block".
func (s *Shader) Uniform(name string, set, binding uint32, members ...Member) {
	st := s.Struct(name+"Block", members...)
	s.B.AddDecorate(st, spirv.DecorationBlock)
	s.Resource(st, spirv.StorageClassUniform, name, set, binding)
}

// Storage declares a storage buffer whose block type is name+"Block".
func (s *Shader) Storage(name string, set, binding uint32, readOnly bool, members ...Member) {
	st := s.Struct(name+"Block", members...)
	s.B.AddDecorate(st, spirv.DecorationBlock)
	v := s.Resource(st, spirv.StorageClassStorageBuffer, name, set, binding)
	if readOnly {
		s.B.AddDecorate(v, spirv.DecorationNonWritable)
	}
}

// Push declares the push-constant block.
func (s *Shader) Push(name string, members ...Member) {
	st := s.Struct(name+"Block", members...)
	s.B.AddDecorate(st, spirv.DecorationBlock)
	v := s.B.AddVariable(s.B.AddTypePointer(spirv.StorageClassPushConstant, st), spirv.StorageClassPushConstant)
	s.B.AddName(v, name)
}

// Words finishes the module with an empty entry function.
func (s *Shader) Words() []uint32 {
	s.finish()
	return s.B.Words()
}

// Bytes finishes the module and returns its little-endian encoding.
func (s *Shader) Bytes() []byte {
	s.finish()
	return s.B.Build()
}

func (s *Shader) finish() {
	if s.done {
		return
	}
	s.done = true
	voidType := s.B.AddTypeVoid()
	fn := s.B.AddFunction(s.B.AddTypeFunction(voidType), voidType, spirv.FunctionControlNone)
	s.B.AddLabel()
	s.B.AddReturn()
	s.B.AddFunctionEnd()
	s.B.AddEntryPoint(s.model, fn, s.entry, nil)
	switch s.model {
	case spirv.ExecutionModelFragment:
		s.B.AddExecutionMode(fn, spirv.ExecutionModeOriginUpperLeft)
	case spirv.ExecutionModelGLCompute:
		s.B.AddExecutionMode(fn, spirv.ExecutionModeLocalSize, 64, 1, 1)
	}
}
