// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"sort"
)

// Merge unifies the trees of the stages of one program. Inputs must not
// share a stage. A resource declared by several stages at one (set,
// binding) must agree on descriptor type and array shape; block members
// must be offset-compatible: members at the same offset are compatible,
// members that do not overlap are unioned, and members overlapping at
// different offsets are rejected. Overlapping push-constant ranges are
// unioned transitively under the same member rule.
//
// The inputs are not modified and may be released afterwards.
func Merge(inputs ...*Reflection) (*Reflection, error) {
	if len(inputs) == 0 || len(inputs) > MaxStages {
		return nil, newError(ErrInvalidArgument, "merge takes 1 to %d trees, got %d", MaxStages, len(inputs))
	}
	var stages Stage
	for i, in := range inputs {
		s := in.Stages()
		if s == 0 {
			return nil, newError(ErrInvalidArgument, "input %d describes no stage", i)
		}
		if dup := stages & s; dup != 0 {
			return nil, newError(ErrDuplicateStage, "input %d repeats a stage", i).withStage(dup)
		}
		stages |= s
	}

	m := &merger{dst: &Arena{}}
	descriptors, err := m.descriptors(inputs)
	if err != nil {
		return nil, err
	}
	pushConstants, err := m.pushConstants(inputs)
	if err != nil {
		return nil, err
	}
	root, rerr := finishRoot(m.dst, descriptors, pushConstants, stages, OriginProgram)
	if rerr != nil {
		return nil, rerr
	}

	var entryPoints []EntryPoint
	for _, in := range inputs {
		entryPoints = append(entryPoints, in.EntryPoints()...)
	}
	sort.Slice(entryPoints, func(i, j int) bool { return entryPoints[i].Stage < entryPoints[j].Stage })

	return &Reflection{arena: m.dst, root: root, entryPoints: entryPoints}, nil
}

// ref addresses a node in a source tree.
type ref struct {
	a *Arena
	h Handle
}

func (r ref) node() Node { return r.a.Node(r.h) }

type merger struct {
	dst *Arena

	// site and stages locate errors raised while merging one resource.
	site    BindingPoint
	hasSite bool
	stages  Stage
}

func (m *merger) incompatible(format string, args ...any) *Error {
	e := newError(ErrIncompatibleMerge, format, args...).withStage(m.stages)
	if m.hasSite {
		e.Set, e.Binding, e.HasBinding = m.site.Set, m.site.Binding, true
	}
	return e
}

func (m *merger) collision(format string, args ...any) *Error {
	e := newError(ErrNameCollision, format, args...).withStage(m.stages)
	if m.hasSite {
		e.Set, e.Binding, e.HasBinding = m.site.Set, m.site.Binding, true
	}
	return e
}

// descriptors runs a k-way merge over the inputs' descriptor lists, each
// already sorted by binding point.
func (m *merger) descriptors(inputs []*Reflection) ([]Handle, error) {
	lists := make([][]Handle, len(inputs))
	total := 0
	for i, in := range inputs {
		lists[i] = in.EnumerateDescriptors()
		total += len(lists[i])
	}
	cursors := make([]int, len(inputs))
	point := func(i int) BindingPoint {
		return inputs[i].Node(lists[i][cursors[i]]).(Bound).Point()
	}

	out := make([]Handle, 0, total)
	for {
		var next BindingPoint
		found := false
		for i := range inputs {
			if cursors[i] < len(lists[i]) {
				if p := point(i); !found || p.Less(next) {
					next, found = p, true
				}
			}
		}
		if !found {
			break
		}

		var group []ref
		m.stages = 0
		for i, in := range inputs {
			if cursors[i] < len(lists[i]) && point(i) == next {
				group = append(group, ref{in.arena, lists[i][cursors[i]]})
				m.stages |= in.Stages()
				cursors[i]++
			}
		}
		m.site, m.hasSite = next, true
		h, err := m.merge(group)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	m.hasSite = false
	return out, nil
}

// unionNames concatenates the name chains of group without repeats.
func unionNames(group []ref) []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range group {
		for _, name := range r.node().Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func unionStages(group []ref) Stage {
	var s Stage
	for _, r := range group {
		s |= r.node().Stages()
	}
	return s
}

func cloneNames(names []string) []string {
	if names == nil {
		return nil
	}
	return append([]string(nil), names...)
}

// clone deep-copies a source subtree into the destination arena.
func (m *merger) clone(r ref) Handle {
	switch n := r.node().(type) {
	case *Primitive:
		c := *n
		c.names = cloneNames(n.names)
		return m.dst.add(&c)
	case *Array:
		c := *n
		c.names = cloneNames(n.names)
		c.Elem = m.clone(ref{r.a, n.Elem})
		return m.dst.add(&c)
	case *Struct:
		c := *n
		c.names = cloneNames(n.names)
		c.memberList = m.cloneMembers(r.a, n.memberList)
		return m.dst.add(&c)
	case *Descriptor:
		c := *n
		c.names = cloneNames(n.names)
		return m.dst.add(&c)
	case *DescriptorArray:
		c := *n
		c.names = cloneNames(n.names)
		c.Elem = m.clone(ref{r.a, n.Elem})
		return m.dst.add(&c)
	case *DescriptorBlock:
		c := *n
		c.names = cloneNames(n.names)
		c.memberList = m.cloneMembers(r.a, n.memberList)
		return m.dst.add(&c)
	case *PushConstant:
		c := *n
		c.names = cloneNames(n.names)
		c.memberList = m.cloneMembers(r.a, n.memberList)
		return m.dst.add(&c)
	default:
		return InvalidHandle
	}
}

// cloneMembers copies members; positions are unchanged so the name index
// carries over as is.
func (m *merger) cloneMembers(a *Arena, list memberList) memberList {
	members := make([]Handle, len(list.members))
	for i, h := range list.members {
		members[i] = m.clone(ref{a, h})
	}
	index := append([]nameEntry(nil), list.index...)
	return memberList{members: members, index: index}
}
