// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvreflect/spirv"
)

func TestParse_DescriptorCountAndSets(t *testing.T) {
	s := newShader(t, StageFragment)
	s.texture("albedo", 2, 1)
	s.sampler("linear", 0, 3)
	s.texture("normal", 0, 0)
	s.sampler("shadow", 5, 2)
	s.texture("emissive", 2, 0)

	r := s.reflect()
	assert.Equal(t, 5, r.DescriptorCount())
	assert.Equal(t, uint32(0), r.MinSet())
	assert.Equal(t, uint32(5), r.MaxSet())
	assert.Equal(t, OriginStage, r.Origin())
	assert.Equal(t, StageFragment, r.Stages())

	wantSets := map[uint32][]uint32{0: {0, 3}, 2: {0, 1}, 5: {2}}
	total := 0
	for set := uint32(0); set <= r.MaxSet(); set++ {
		handles := r.EnumerateDescriptorSet(set)
		var bindings []uint32
		for _, h := range handles {
			p := r.Node(h).(Bound).Point()
			assert.Equal(t, set, p.Set)
			bindings = append(bindings, p.Binding)
		}
		assert.Equal(t, wantSets[set], bindings, "set %d", set)
		total += len(handles)
	}
	assert.Equal(t, r.DescriptorCount(), total)

	h, ok := r.FindDescriptor(2, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"albedo"}, r.Node(h).Names())
	_, ok = r.FindDescriptor(1, 0)
	assert.False(t, ok)
}

func TestParse_EmptyModule(t *testing.T) {
	r := newShader(t, StageCompute).reflect()
	assert.Zero(t, r.DescriptorCount())
	assert.Zero(t, r.PushConstantCount())
	assert.Empty(t, r.EnumerateDescriptors())
	assert.Nil(t, r.EnumerateDescriptorSet(0))
	name, ok := r.EntryPointName(StageCompute)
	assert.True(t, ok)
	assert.Equal(t, "compute_main", name)
}

func TestParse_RootPartition(t *testing.T) {
	s := newShader(t, StageVertex)
	s.uniform("camera", 0, 0, member{"viewProj", s.mat(4, 4), 0, 16})
	s.texture("heightmap", 1, 0)
	s.push("push", member{"model", s.mat(4, 4), 0, 16})

	r := s.reflect()
	root := r.Root()
	require.Len(t, root.Members(), 3)
	assert.Equal(t, 2, root.DescriptorCount)
	assert.Equal(t, 1, root.PushConstantCount)
	for _, h := range root.Descriptors() {
		_, ok := r.Node(h).(Bound)
		assert.True(t, ok)
	}
	for _, h := range root.PushConstants() {
		assert.Equal(t, KindPushConstant, r.Node(h).Kind())
	}
}

func TestParse_FindMember(t *testing.T) {
	names := []string{"zeta", "alpha", "mid", "beta", "omega"}
	s := newShader(t, StageFragment)
	var members []member
	for i, name := range names {
		members = append(members, member{name, s.vec(4), uint32(i) * 16, 0})
	}
	s.uniform("params", 0, 0, members...)

	r := s.reflect()
	h, ok := r.FindDescriptor(0, 0)
	require.True(t, ok)
	block, ok := r.Node(h).(*DescriptorBlock)
	require.True(t, ok)

	for _, name := range names {
		i, ok := block.FindMember(name)
		require.True(t, ok, name)
		assert.Equal(t, name, r.Node(block.Members()[i]).Names()[0])
	}
	for _, absent := range []string{"", "gamma", "ALPHA", "zz", "a"} {
		i, ok := block.FindMember(absent)
		assert.False(t, ok, absent)
		assert.Equal(t, -1, i)
	}

	// Declaration order is kept.
	assert.Equal(t, "zeta", r.Node(block.Members()[0]).Names()[0])
	assert.Equal(t, "omega", r.Node(block.Members()[4]).Names()[0])
}

func TestParse_UnsizedArrayPosition(t *testing.T) {
	t.Run("middle member", func(t *testing.T) {
		s := newShader(t, StageCompute)
		s.storage("particles", 1, 4,
			member{"count", s.u32, 0, 0},
			member{"data", s.runtimeArray(s.vec(4), 16), 16, 0},
			member{"tail", s.u32, 32, 0},
		)
		_, err := s.parse()
		e := requireKind(t, err, ErrInvalidUnsizedArrayPosition)
		assert.True(t, e.HasBinding)
		assert.Equal(t, uint32(1), e.Set)
		assert.Equal(t, uint32(4), e.Binding)
		assert.Equal(t, StageCompute, e.Stage)
	})

	t.Run("last member", func(t *testing.T) {
		s := newShader(t, StageCompute)
		s.storage("particles", 1, 4,
			member{"count", s.u32, 0, 0},
			member{"tail", s.u32, 4, 0},
			member{"data", s.runtimeArray(s.vec(4), 16), 16, 0},
		)
		r := s.reflect()
		data := r.Resolve("particles.data")
		require.NoError(t, data.Err())
		arr, ok := data.Node().(*Array)
		require.True(t, ok)
		assert.Equal(t, Unbounded, arr.Count)
		assert.Equal(t, uint32(16), arr.Stride)
		assert.Equal(t, uint32(16), data.Offset())
	})

	t.Run("inside a non-last struct", func(t *testing.T) {
		s := newShader(t, StageCompute)
		inner := s.structType("Inner", member{"n", s.u32, 0, 0}, member{"items", s.runtimeArray(s.f32, 4), 4, 0})
		s.storage("buf", 0, 0,
			member{"inner", inner, 0, 0},
			member{"after", s.u32, 16, 0},
		)
		_, err := s.parse()
		requireKind(t, err, ErrInvalidUnsizedArrayPosition)
	})

	t.Run("descriptor array not last in set", func(t *testing.T) {
		s := newShader(t, StageFragment)
		s.resource(s.b.AddTypeRuntimeArray(s.b.AddTypeSampledImage(s.image2D())), spirv.StorageClassUniformConstant, "bindless", 0, 0)
		s.sampler("samp", 0, 1)
		_, err := s.parse()
		e := requireKind(t, err, ErrInvalidUnsizedArrayPosition)
		assert.Equal(t, uint32(0), e.Binding)
	})

	t.Run("descriptor array last in set", func(t *testing.T) {
		s := newShader(t, StageFragment)
		s.sampler("samp", 0, 0)
		s.resource(s.b.AddTypeRuntimeArray(s.b.AddTypeSampledImage(s.image2D())), spirv.StorageClassUniformConstant, "bindless", 0, 1)
		s.sampler("other", 1, 0)
		r := s.reflect()
		h, ok := r.FindDescriptor(0, 1)
		require.True(t, ok)
		assert.Equal(t, Unbounded, r.Node(h).(*DescriptorArray).Count)
	})
}

func TestParse_DescriptorArrayNesting(t *testing.T) {
	s := newShader(t, StageFragment)
	combined := s.b.AddTypeSampledImage(s.image2D())
	s.resource(s.array(s.array(combined, 3, 0), 2, 0), spirv.StorageClassUniformConstant, "atlas", 0, 0)

	r := s.reflect()
	h, ok := r.FindDescriptor(0, 0)
	require.True(t, ok)
	outer, ok := r.Node(h).(*DescriptorArray)
	require.True(t, ok)
	assert.Equal(t, uint32(2), outer.Count)
	assert.Equal(t, uint32(3), outer.Stride)
	assert.Equal(t, []string{"atlas"}, outer.Names())

	inner, ok := r.Node(outer.Elem).(*DescriptorArray)
	require.True(t, ok)
	assert.Equal(t, uint32(3), inner.Count)
	assert.Equal(t, uint32(1), inner.Stride)
	assert.Empty(t, inner.Names())

	leaf, ok := r.Node(inner.Elem).(*Descriptor)
	require.True(t, ok)
	assert.Equal(t, spirv.DescriptorTypeCombinedImageSampler, leaf.Type)
	assert.Equal(t, BindingPoint{0, 0}, leaf.Point())
}

func TestParse_Primitives(t *testing.T) {
	s := newShader(t, StageVertex)
	f64 := s.b.AddTypeFloat(64)
	u16 := s.b.AddTypeInt(16, false)
	s.uniform("u", 0, 0,
		member{"i", s.i32, 0, 0},
		member{"u", s.u32, 4, 0},
		member{"h", u16, 8, 0},
		member{"d", f64, 16, 0},
		member{"v", s.vec(3), 32, 0},
		member{"m", s.mat(3, 4), 48, 16},
		member{"b", s.b.AddTypeBool(), 96, 0},
	)

	r := s.reflect()
	tests := []struct {
		name string
		want string
		size uint32
	}{
		{"i", "i32", 4},
		{"u", "u32", 4},
		{"h", "u16", 2},
		{"d", "f64", 8},
		{"v", "vec3<f32>", 12},
		{"m", "mat3x4<f32>", 48},
		{"b", "bool", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := r.Resolve("u." + tt.name)
			require.NoError(t, c.Err())
			p, ok := c.Node().(*Primitive)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.Type.String())
			assert.Equal(t, tt.size, p.Size)
			assert.Equal(t, tt.size, p.Type.Size())
		})
	}
}

func TestParse_PushConstant(t *testing.T) {
	s := newShader(t, StageVertex)
	s.push("pc", member{"offset", s.vec(2), 8, 0}, member{"scale", s.vec(2), 16, 0})

	r := s.reflect()
	require.Equal(t, 1, r.PushConstantCount())
	h, ok := r.FindPushConstant(StageVertex)
	require.True(t, ok)
	pc := r.Node(h).(*PushConstant)
	assert.Equal(t, []string{"pc"}, pc.Names())
	assert.Equal(t, "pcBlock", pc.TypeName)
	assert.Equal(t, uint32(8), pc.Offset)
	assert.Equal(t, uint32(16), pc.Size)
	assert.Equal(t, uint32(24), pc.End())

	_, ok = r.FindPushConstant(StageFragment)
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	t.Run("two entry points", func(t *testing.T) {
		s := newShader(t, StageVertex)
		words := func() []uint32 {
			voidType := s.b.AddTypeVoid()
			fn := s.b.AddFunction(s.b.AddTypeFunction(voidType), voidType, spirv.FunctionControlNone)
			s.b.AddLabel()
			s.b.AddReturn()
			s.b.AddFunctionEnd()
			s.b.AddEntryPoint(spirv.ExecutionModelFragment, fn, "fs_main", nil)
			return s.words()
		}()
		_, err := ParseWords(words)
		requireKind(t, err, ErrMalformedModule)
	})

	t.Run("no entry point", func(t *testing.T) {
		b := spirv.NewModuleBuilder(spirv.Version1_3)
		_, err := ParseWords(b.Words())
		requireKind(t, err, ErrMalformedModule)
	})

	t.Run("two push constant blocks", func(t *testing.T) {
		s := newShader(t, StageFragment)
		s.push("a", member{"x", s.f32, 0, 0})
		s.push("b", member{"y", s.f32, 4, 0})
		_, err := s.parse()
		requireKind(t, err, ErrMalformedModule)
	})

	t.Run("duplicate binding", func(t *testing.T) {
		s := newShader(t, StageFragment)
		s.sampler("a", 0, 0)
		s.texture("b", 0, 0)
		_, err := s.parse()
		e := requireKind(t, err, ErrMalformedModule)
		assert.True(t, e.HasBinding)
	})

	t.Run("name collision", func(t *testing.T) {
		s := newShader(t, StageFragment)
		s.sampler("tex", 0, 0)
		s.texture("tex", 0, 1)
		_, err := s.parse()
		requireKind(t, err, ErrNameCollision)
	})

	t.Run("undecodable binary", func(t *testing.T) {
		_, err := ParseWords([]uint32{0xDEADBEEF, 0, 0, 0, 0})
		requireKind(t, err, ErrMalformedModule)
		var decodeErr *spirv.DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	t.Run("kernel model", func(t *testing.T) {
		_, err := Parse(&spirv.Module{EntryPoints: []spirv.EntryPoint{{Name: "k", Model: spirv.ExecutionModelKernel}}})
		requireKind(t, err, ErrMalformedModule)
	})
}

func TestParse_BlockWithoutMembersIsDescriptor(t *testing.T) {
	module := &spirv.Module{
		EntryPoints: []spirv.EntryPoint{{Name: "main", Model: spirv.ExecutionModelFragment}},
		Bindings: []spirv.DescriptorBinding{
			{Name: "opaque", Set: 0, Binding: 0, Type: spirv.DescriptorTypeStorageBuffer},
		},
	}
	r, err := Parse(module)
	require.NoError(t, err)
	h, _ := r.FindDescriptor(0, 0)
	d, ok := r.Node(h).(*Descriptor)
	require.True(t, ok)
	assert.Equal(t, spirv.DescriptorTypeStorageBuffer, d.Type)
}
