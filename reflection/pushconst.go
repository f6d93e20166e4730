// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import "sort"

type pushRange struct {
	r           ref
	offset, end uint32
}

// pushConstants unions overlapping push-constant ranges of all inputs.
// Each disjoint union becomes one merged block.
func (m *merger) pushConstants(inputs []*Reflection) ([]Handle, error) {
	var ranges []pushRange
	for _, in := range inputs {
		for _, h := range in.EnumeratePushConstants() {
			pc := in.Node(h).(*PushConstant)
			ranges = append(ranges, pushRange{r: ref{in.arena, h}, offset: pc.Offset, end: pc.End()})
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].offset != ranges[j].offset {
			return ranges[i].offset < ranges[j].offset
		}
		return ranges[i].end < ranges[j].end
	})

	var out []Handle
	for i := 0; i < len(ranges); {
		end := ranges[i].end
		j := i + 1
		for j < len(ranges) && ranges[j].offset < end {
			end = max(end, ranges[j].end)
			j++
		}
		h, err := m.pushConstant(ranges[i:j], end)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		i = j
	}
	return out, nil
}

func (m *merger) pushConstant(group []pushRange, end uint32) (Handle, error) {
	refs := make([]ref, len(group))
	for i, g := range group {
		refs[i] = g.r
	}
	if len(refs) == 1 {
		return m.clone(refs[0]), nil
	}

	m.stages = unionStages(refs)
	list, err := m.mergeMembers(refs)
	if err != nil {
		return InvalidHandle, err
	}
	var typeName string
	for _, r := range refs {
		if typeName = r.node().(*PushConstant).TypeName; typeName != "" {
			break
		}
	}
	return m.dst.add(&PushConstant{
		base:       base{names: unionNames(refs), stages: m.stages},
		memberList: list,
		TypeName:   typeName,
		Offset:     group[0].offset,
		Size:       end - group[0].offset,
	}), nil
}
