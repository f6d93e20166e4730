// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/gogpu/spvreflect/spirv"
)

// merge unifies nodes that several stages declare at the same place. A
// single contributor is cloned.
func (m *merger) merge(group []ref) (Handle, error) {
	if len(group) == 1 {
		return m.clone(group[0]), nil
	}
	first := group[0].node()
	for _, r := range group[1:] {
		if k := r.node().Kind(); k != first.Kind() {
			return InvalidHandle, m.incompatible("%s declared as %s and as %s",
				describe(group[0].a, group[0].h), first.Kind(), k)
		}
	}
	b := base{names: unionNames(group), stages: unionStages(group)}

	switch n := first.(type) {
	case *Primitive:
		out := *n
		out.base = b
		for _, r := range group[1:] {
			o := r.node().(*Primitive)
			if o.Type != n.Type {
				return InvalidHandle, m.incompatible("%s is %s in one stage and %s in another",
					describe(group[0].a, group[0].h), n.Type, o.Type)
			}
			out.PaddedSize = max(out.PaddedSize, o.PaddedSize)
		}
		return m.dst.add(&out), nil

	case *Array:
		out := *n
		out.base = b
		elems := make([]ref, len(group))
		for i, r := range group {
			o := r.node().(*Array)
			if o.Count != n.Count || o.Stride != n.Stride {
				return InvalidHandle, m.incompatible("%s has shape [%s] stride %d in one stage and [%s] stride %d in another",
					describe(group[0].a, group[0].h), countString(n.Count), n.Stride, countString(o.Count), o.Stride)
			}
			out.Size = max(out.Size, o.Size)
			out.PaddedSize = max(out.PaddedSize, o.PaddedSize)
			elems[i] = ref{r.a, o.Elem}
		}
		elem, err := m.merge(elems)
		if err != nil {
			return InvalidHandle, err
		}
		out.Elem = elem
		return m.dst.add(&out), nil

	case *Struct:
		out := *n
		out.base = b
		lists := make([]ref, len(group))
		for i, r := range group {
			o := r.node().(*Struct)
			out.Size = max(out.Size, o.Size)
			out.PaddedSize = max(out.PaddedSize, o.PaddedSize)
			lists[i] = r
		}
		list, err := m.mergeMembers(lists)
		if err != nil {
			return InvalidHandle, err
		}
		out.memberList = list
		return m.dst.add(&out), nil

	case *Descriptor:
		out := *n
		out.base = b
		for _, r := range group[1:] {
			o := r.node().(*Descriptor)
			if o.Type != n.Type {
				return InvalidHandle, m.incompatible("descriptor is %s in one stage and %s in another", n.Type, o.Type)
			}
			if hasImage(n.Type) && !sameImageShape(n.Image, o.Image) {
				return InvalidHandle, m.incompatible("image is %s in one stage and %s in another", imageShape(n.Image), imageShape(o.Image))
			}
			out.NonWritable = out.NonWritable && o.NonWritable
		}
		return m.dst.add(&out), nil

	case *DescriptorArray:
		out := *n
		out.base = b
		elems := make([]ref, len(group))
		for i, r := range group {
			o := r.node().(*DescriptorArray)
			if o.Count != n.Count || o.Stride != n.Stride {
				return InvalidHandle, m.incompatible("descriptor array has %s elements of %d slots in one stage and %s of %d in another",
					countString(n.Count), n.Stride, countString(o.Count), o.Stride)
			}
			elems[i] = ref{r.a, o.Elem}
		}
		elem, err := m.merge(elems)
		if err != nil {
			return InvalidHandle, err
		}
		out.Elem = elem
		return m.dst.add(&out), nil

	case *DescriptorBlock:
		out := *n
		out.base = b
		for _, r := range group[1:] {
			o := r.node().(*DescriptorBlock)
			if o.Type != n.Type {
				return InvalidHandle, m.incompatible("descriptor is %s in one stage and %s in another", n.Type, o.Type)
			}
			out.Size = max(out.Size, o.Size)
			out.PaddedSize = max(out.PaddedSize, o.PaddedSize)
			out.NonWritable = out.NonWritable && o.NonWritable
			if out.TypeName == "" {
				out.TypeName = o.TypeName
			}
		}
		list, err := m.mergeMembers(group)
		if err != nil {
			return InvalidHandle, err
		}
		out.memberList = list
		return m.dst.add(&out), nil

	default:
		return InvalidHandle, m.incompatible("cannot merge %s nodes", first.Kind())
	}
}

func hasImage(t spirv.DescriptorType) bool {
	switch t {
	case spirv.DescriptorTypeCombinedImageSampler, spirv.DescriptorTypeSampledImage,
		spirv.DescriptorTypeStorageImage, spirv.DescriptorTypeInputAttachment:
		return true
	default:
		return false
	}
}

func sameImageShape(a, b spirv.ImageTraits) bool {
	return a.Dim == b.Dim && a.Depth == b.Depth && a.Arrayed == b.Arrayed &&
		a.Multisampled == b.Multisampled && a.Sampled == b.Sampled
}

// imageShape formats the fields compared by sameImageShape.
func imageShape(img spirv.ImageTraits) string {
	return fmt.Sprintf("%s depth=%d arrayed=%t multisampled=%t sampled=%d",
		img.Dim, img.Depth, img.Arrayed, img.Multisampled, img.Sampled)
}

func countString(n uint32) string {
	if n == Unbounded {
		return "unbounded"
	}
	return strconv.FormatUint(uint64(n), 10)
}

type memberSpan struct {
	r           ref
	offset, end uint64
}

// mergeMembers walks the members of every owner in offset order. Members
// sharing an offset are merged recursively; disjoint members are kept;
// members overlapping at different offsets are incompatible.
func (m *merger) mergeMembers(owners []ref) (memberList, error) {
	var spans []memberSpan
	for _, owner := range owners {
		list, _ := membersOf(owner.node())
		for _, h := range list.members {
			r := ref{owner.a, h}
			l, _ := layoutOf(r.node())
			end := uint64(l.Offset) + uint64(l.Size)
			if a, ok := r.node().(*Array); ok && a.Count == Unbounded {
				end = math.MaxUint64
			}
			spans = append(spans, memberSpan{r: r, offset: uint64(l.Offset), end: end})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].offset < spans[j].offset })

	var groups [][]ref
	var groupOffset, groupEnd uint64
	var groupFirst ref
	for _, s := range spans {
		if len(groups) > 0 {
			if s.offset == groupOffset {
				groups[len(groups)-1] = append(groups[len(groups)-1], s.r)
				groupEnd = max(groupEnd, s.end)
				continue
			}
			if s.offset < groupEnd {
				return memberList{}, m.incompatible("%s at offset %d overlaps %s at offset %d",
					describe(s.r.a, s.r.h), s.offset, describe(groupFirst.a, groupFirst.h), groupOffset)
			}
		}
		groups = append(groups, []ref{s.r})
		groupOffset, groupEnd, groupFirst = s.offset, s.end, s.r
	}

	members := make([]Handle, 0, len(groups))
	for _, g := range groups {
		h, err := m.merge(g)
		if err != nil {
			return memberList{}, err
		}
		members = append(members, h)
	}
	list, dup, ok := newMemberList(m.dst, members)
	if !ok {
		return memberList{}, m.collision("member name %q refers to different offsets across stages", dup)
	}
	return list, nil
}
