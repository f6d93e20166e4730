// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvreflect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvreflect"
	"github.com/gogpu/spvreflect/internal/spvtest"
	"github.com/gogpu/spvreflect/reflection"
	"github.com/gogpu/spvreflect/spirv"
)

func cameraShader(s *spvtest.Shader) *spvtest.Shader {
	s.Uniform("camera", 0, 0,
		spvtest.Member{Name: "viewProj", Type: s.Mat(4, 4), Offset: 0, MatrixStride: 16},
		spvtest.Member{Name: "eye", Type: s.Vec(3), Offset: 64},
	)
	return s
}

func TestReflect(t *testing.T) {
	r, err := spvreflect.Reflect(cameraShader(spvtest.Vertex()).Words())
	require.NoError(t, err)
	assert.Equal(t, reflection.StageVertex, r.Stages())

	c := r.Resolve("camera.eye")
	require.NoError(t, c.Err())
	assert.Equal(t, uint32(64), c.Offset())
}

func TestReflectBytes(t *testing.T) {
	data := cameraShader(spvtest.Fragment()).Bytes()
	r, err := spvreflect.ReflectBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 1, r.DescriptorCount())

	_, err = spvreflect.ReflectBytes(data[:len(data)-1])
	kind, ok := reflection.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, reflection.ErrMalformedModule, kind)
	var decodeErr *spirv.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestMergeWords(t *testing.T) {
	fs := cameraShader(spvtest.Fragment())
	fs.Sampler("samp", 0, 1)

	program, err := spvreflect.MergeWords(cameraShader(spvtest.Vertex()).Words(), fs.Words())
	require.NoError(t, err)
	assert.Equal(t, reflection.OriginProgram, program.Origin())
	assert.Equal(t, 2, program.DescriptorCount())

	h, ok := program.FindDescriptor(0, 0)
	require.True(t, ok)
	assert.Equal(t, reflection.StageVertex|reflection.StageFragment, program.Node(h).Stages())

	_, err = spvreflect.MergeWords(fs.Words(), []uint32{spirv.MagicNumber})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module 1")
}

func TestMerge_DuplicateStage(t *testing.T) {
	a, err := spvreflect.Reflect(cameraShader(spvtest.Vertex()).Words())
	require.NoError(t, err)
	b, err := spvreflect.Reflect(cameraShader(spvtest.Vertex()).Words())
	require.NoError(t, err)

	_, err = spvreflect.Merge(a, b)
	kind, ok := reflection.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, reflection.ErrDuplicateStage, kind)
}

const computeWGSL = `
struct Params {
    scale: f32,
    bias: f32,
}

@group(0) @binding(0) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let s = params.scale + params.bias;
}
`

func TestReflectWGSL(t *testing.T) {
	r, err := spvreflect.ReflectWGSL(computeWGSL)
	require.NoError(t, err)
	assert.Equal(t, reflection.StageCompute, r.Stages())
	assert.Equal(t, reflection.OriginStage, r.Origin())
	name, ok := r.EntryPointName(reflection.StageCompute)
	assert.True(t, ok)
	assert.Equal(t, "main", name)

	// Bindings are reported only when the generated module decorates them.
	if h, ok := r.FindDescriptor(0, 0); ok {
		assert.Equal(t, reflection.StageCompute, r.Node(h).Stages())
	}
}

func TestReflectWGSL_CompileError(t *testing.T) {
	_, err := spvreflect.ReflectWGSL("fn broken( {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile WGSL")
}
