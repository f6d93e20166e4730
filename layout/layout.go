// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package layout converts reflection trees into WebGPU bind group layouts
// and push-constant ranges.
//
// A merged program tree yields the layouts a pipeline is created with:
//
//	prog, err := reflection.Merge(vs, fs)
//	if err != nil { ... }
//	sets, err := layout.BindGroupLayouts(prog)
//	ranges := layout.PushConstantRanges(prog)
//
// Descriptors are visible to exactly the stages that declared them.
package layout

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/spvreflect/reflection"
	"github.com/gogpu/spvreflect/spirv"
)

// UnsupportedError reports a descriptor that has no bind group layout
// equivalent.
type UnsupportedError struct {
	Set     uint32
	Binding uint32
	Reason  string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("layout: set=%d binding=%d: %s", e.Set, e.Binding, e.Reason)
}

// SetLayout is the bind group layout of one descriptor set.
type SetLayout struct {
	Set     uint32
	Entries []gputypes.BindGroupLayoutEntry
}

// PushConstantRange is one push-constant range of a pipeline layout.
type PushConstantRange struct {
	Stages reflection.Stage
	Offset uint32
	Size   uint32
}

// BindGroupLayouts returns one SetLayout per descriptor set in ascending
// set order. Entries follow binding order.
func BindGroupLayouts(r *reflection.Reflection) ([]SetLayout, error) {
	root := r.Root()
	sets := make([]SetLayout, 0, len(root.Sets))
	for _, rng := range root.Sets {
		set := SetLayout{Set: rng.Set, Entries: make([]gputypes.BindGroupLayoutEntry, 0, rng.Count)}
		for _, h := range r.EnumerateDescriptorSet(rng.Set) {
			entry, err := Entry(r.Node(h))
			if err != nil {
				return nil, err
			}
			set.Entries = append(set.Entries, entry)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// Entry converts a single descriptor node.
func Entry(n reflection.Node) (gputypes.BindGroupLayoutEntry, error) {
	bound, ok := n.(reflection.Bound)
	if !ok {
		return gputypes.BindGroupLayoutEntry{}, fmt.Errorf("layout: %s node is not a descriptor", n.Kind())
	}
	pt := bound.Point()
	unsupported := func(format string, args ...any) error {
		return &UnsupportedError{Set: pt.Set, Binding: pt.Binding, Reason: fmt.Sprintf(format, args...)}
	}

	entry := gputypes.BindGroupLayoutEntry{Binding: pt.Binding}
	for _, s := range n.Stages().Split() {
		switch s {
		case reflection.StageVertex:
			entry.Visibility |= gputypes.ShaderStageVertex
		case reflection.StageFragment:
			entry.Visibility |= gputypes.ShaderStageFragment
		case reflection.StageCompute:
			entry.Visibility |= gputypes.ShaderStageCompute
		default:
			return entry, unsupported("%s stage has no visibility bit", s)
		}
	}

	switch d := n.(type) {
	case *reflection.DescriptorBlock:
		buffer := &gputypes.BufferBindingLayout{MinBindingSize: uint64(d.Size)}
		switch {
		case d.Type == spirv.DescriptorTypeUniformBuffer:
			buffer.Type = gputypes.BufferBindingTypeUniform
		case d.NonWritable:
			buffer.Type = gputypes.BufferBindingTypeReadOnlyStorage
		default:
			buffer.Type = gputypes.BufferBindingTypeStorage
		}
		entry.Buffer = buffer
	case *reflection.Descriptor:
		if err := resource(&entry, d); err != nil {
			return entry, unsupported("%v", err)
		}
	case *reflection.DescriptorArray:
		return entry, unsupported("descriptor arrays are not expressible")
	}
	return entry, nil
}

func resource(entry *gputypes.BindGroupLayoutEntry, d *reflection.Descriptor) error {
	switch d.Type {
	case spirv.DescriptorTypeSampler:
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	case spirv.DescriptorTypeSampledImage:
		dim, err := viewDimension(d.Image)
		if err != nil {
			return err
		}
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    sampleType(d.Image),
			ViewDimension: dim,
			Multisampled:  d.Image.Multisampled,
		}
	case spirv.DescriptorTypeStorageImage:
		dim, err := viewDimension(d.Image)
		if err != nil {
			return err
		}
		access := gputypes.StorageTextureAccessReadWrite
		if d.NonWritable {
			access = gputypes.StorageTextureAccessReadOnly
		}
		entry.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        access,
			ViewDimension: dim,
		}
	case spirv.DescriptorTypeUniformBuffer, spirv.DescriptorTypeStorageBuffer:
		// Blocks without members.
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		if d.Type == spirv.DescriptorTypeUniformBuffer {
			entry.Buffer.Type = gputypes.BufferBindingTypeUniform
		} else if d.NonWritable {
			entry.Buffer.Type = gputypes.BufferBindingTypeReadOnlyStorage
		}
	default:
		return fmt.Errorf("%s descriptors are not expressible", d.Type)
	}
	return nil
}

func sampleType(img spirv.ImageTraits) gputypes.TextureSampleType {
	switch {
	case img.Depth == 1:
		return gputypes.TextureSampleTypeDepth
	case img.SampledKind == spirv.ScalarInt && img.SampledSigned:
		return gputypes.TextureSampleTypeSint
	case img.SampledKind == spirv.ScalarInt:
		return gputypes.TextureSampleTypeUint
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

func viewDimension(img spirv.ImageTraits) (gputypes.TextureViewDimension, error) {
	switch {
	case img.Dim == spirv.Dim1D && !img.Arrayed:
		return gputypes.TextureViewDimension1D, nil
	case img.Dim == spirv.Dim2D && img.Arrayed:
		return gputypes.TextureViewDimension2DArray, nil
	case img.Dim == spirv.Dim2D:
		return gputypes.TextureViewDimension2D, nil
	case img.Dim == spirv.Dim3D && !img.Arrayed:
		return gputypes.TextureViewDimension3D, nil
	case img.Dim == spirv.DimCube && img.Arrayed:
		return gputypes.TextureViewDimensionCubeArray, nil
	case img.Dim == spirv.DimCube:
		return gputypes.TextureViewDimensionCube, nil
	}
	return gputypes.TextureViewDimension2D, fmt.Errorf("image dimension %d (arrayed=%t) is not expressible", img.Dim, img.Arrayed)
}

// PushConstantRanges returns the push-constant ranges of r in offset order.
func PushConstantRanges(r *reflection.Reflection) []PushConstantRange {
	handles := r.EnumeratePushConstants()
	ranges := make([]PushConstantRange, 0, len(handles))
	for _, h := range handles {
		pc, ok := r.Node(h).(*reflection.PushConstant)
		if !ok {
			continue
		}
		ranges = append(ranges, PushConstantRange{Stages: pc.Stages(), Offset: pc.Offset, Size: pc.Size})
	}
	return ranges
}
