// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"
	"sort"

	"github.com/gogpu/spvreflect/spirv"
)

// ParseWords decodes a SPIR-V word stream and parses it as one stage.
func ParseWords(words []uint32) (*Reflection, error) {
	module, err := spirv.Decode(words)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedModule, Message: err.Error(), Err: err}
	}
	return Parse(module)
}

// Parse builds the tree of one shader stage. The module must declare
// exactly one entry point and at most one push-constant block.
func Parse(module *spirv.Module) (*Reflection, error) {
	if len(module.EntryPoints) != 1 {
		return nil, newError(ErrMalformedModule, "expected exactly one entry point, found %d", len(module.EntryPoints))
	}
	entry := module.EntryPoints[0]
	stage, ok := StageOf(entry.Model)
	if !ok {
		return nil, newError(ErrMalformedModule, "entry point %q: unsupported execution model %s", entry.Name, entry.Model)
	}
	if len(module.PushConstants) > 1 {
		return nil, newError(ErrMalformedModule, "expected at most one push-constant block, found %d", len(module.PushConstants)).withStage(stage)
	}

	p := &parser{arena: &Arena{}, stage: stage}
	descriptors, err := p.descriptors(module.Bindings)
	if err != nil {
		return nil, err
	}
	var pushConstants []Handle
	for _, pc := range module.PushConstants {
		h, err := p.pushConstant(pc)
		if err != nil {
			return nil, err
		}
		pushConstants = append(pushConstants, h)
	}

	root, rerr := finishRoot(p.arena, descriptors, pushConstants, stage, OriginStage)
	if rerr != nil {
		return nil, rerr.withStage(stage)
	}
	return &Reflection{
		arena:       p.arena,
		root:        root,
		entryPoints: []EntryPoint{{Stage: stage, Name: entry.Name}},
	}, nil
}

type parser struct {
	arena *Arena
	stage Stage

	// site locates errors raised while parsing one binding.
	site    BindingPoint
	hasSite bool
}

func (p *parser) fail(kind ErrorKind, format string, args ...any) *Error {
	e := newError(kind, format, args...).withStage(p.stage)
	if p.hasSite {
		e.Set, e.Binding, e.HasBinding = p.site.Set, p.site.Binding, true
	}
	return e
}

func nameChain(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

func (p *parser) descriptors(bindings []spirv.DescriptorBinding) ([]Handle, error) {
	sorted := make([]spirv.DescriptorBinding, len(bindings))
	copy(sorted, bindings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return BindingPoint{sorted[i].Set, sorted[i].Binding}.Less(BindingPoint{sorted[j].Set, sorted[j].Binding})
	})

	handles := make([]Handle, 0, len(sorted))
	for i := range sorted {
		b := &sorted[i]
		p.site, p.hasSite = BindingPoint{b.Set, b.Binding}, true
		if i > 0 && sorted[i-1].Set == b.Set && sorted[i-1].Binding == b.Binding {
			return nil, p.fail(ErrMalformedModule, "binding declared twice (%q and %q)", sorted[i-1].Name, b.Name)
		}
		lastInSet := i+1 == len(sorted) || sorted[i+1].Set != b.Set
		for d, dim := range b.Array.Dims {
			if dim == 0 && (d > 0 || !lastInSet) {
				return nil, p.fail(ErrInvalidUnsizedArrayPosition, "runtime-sized descriptor array %q is not the last binding of set %d", b.Name, b.Set)
			}
		}
		h, err := p.binding(b, b.Array.Dims)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	p.hasSite = false
	return handles, nil
}

// binding builds the node for b wrapped in one DescriptorArray per
// remaining dimension. Only the outermost node carries the name.
func (p *parser) binding(b *spirv.DescriptorBinding, dims []uint32) (Handle, error) {
	point := BindingPoint{b.Set, b.Binding}
	var names []string
	if len(dims) == len(b.Array.Dims) {
		names = nameChain(b.Name)
	}

	if len(dims) > 0 {
		elem, err := p.binding(b, dims[1:])
		if err != nil {
			return InvalidHandle, err
		}
		stride := uint32(1)
		for _, d := range dims[1:] {
			stride *= d
		}
		count := dims[0]
		if count == 0 {
			count = Unbounded
		}
		return p.arena.add(&DescriptorArray{
			base:         base{names: names, stages: p.stage},
			BindingPoint: point,
			Elem:         elem,
			Count:        count,
			Stride:       stride,
		}), nil
	}

	if b.Type.IsBuffer() && b.Block != nil && len(b.Block.Members) > 0 {
		members, err := p.members(b.Block.Members, true)
		if err != nil {
			return InvalidHandle, err
		}
		list, err := p.memberList(members, b.Name)
		if err != nil {
			return InvalidHandle, err
		}
		return p.arena.add(&DescriptorBlock{
			base:         base{names: names, stages: p.stage},
			BindingPoint: point,
			memberList:   list,
			Type:         b.Type,
			TypeName:     b.TypeName,
			Size:         b.Block.Size,
			PaddedSize:   b.Block.PaddedSize,
			NonWritable:  b.NonWritable,
		}), nil
	}

	return p.arena.add(&Descriptor{
		base:         base{names: names, stages: p.stage},
		BindingPoint: point,
		Type:         b.Type,
		Image:        b.Image,
		NonWritable:  b.NonWritable,
	}), nil
}

func (p *parser) pushConstant(pc spirv.BlockVariable) (Handle, error) {
	members, err := p.members(pc.Members, true)
	if err != nil {
		return InvalidHandle, err
	}
	list, err := p.memberList(members, pc.Name)
	if err != nil {
		return InvalidHandle, err
	}
	return p.arena.add(&PushConstant{
		base:       base{names: nameChain(pc.Name), stages: p.stage},
		memberList: list,
		TypeName:   pc.TypeName,
		Offset:     pc.Offset,
		Size:       pc.Size,
	}), nil
}

func (p *parser) memberList(members []Handle, owner string) (memberList, error) {
	list, dup, ok := newMemberList(p.arena, members)
	if !ok {
		return memberList{}, p.fail(ErrNameCollision, "%q declares member %q twice", owner, dup)
	}
	return list, nil
}

// members builds block members in declaration order. allowUnbounded is
// false when the enclosing member is itself not last or is an array
// element.
func (p *parser) members(vars []spirv.BlockVariable, allowUnbounded bool) ([]Handle, error) {
	handles := make([]Handle, 0, len(vars))
	for i := range vars {
		last := allowUnbounded && i == len(vars)-1
		h, err := p.member(&vars[i], last)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (p *parser) member(v *spirv.BlockVariable, allowUnbounded bool) (Handle, error) {
	for d, dim := range v.Array.Dims {
		if dim == 0 && (d > 0 || !allowUnbounded) {
			return InvalidHandle, p.fail(ErrInvalidUnsizedArrayPosition, "runtime-sized array %q is not the last member of its block", v.Name)
		}
	}
	layout := Layout{Offset: v.Offset, Size: v.Size, PaddedSize: v.PaddedSize}
	if v.Array.IsArray() {
		return p.array(v, 0, layout)
	}
	return p.element(v, layout, allowUnbounded)
}

// array builds dimension d of v and everything below it.
func (p *parser) array(v *spirv.BlockVariable, d int, layout Layout) (Handle, error) {
	stride := v.Array.Strides[d]
	elemLayout := Layout{Size: stride, PaddedSize: stride}

	var elem Handle
	var err error
	if d+1 < len(v.Array.Dims) {
		elem, err = p.array(v, d+1, elemLayout)
	} else {
		elemLayout.Size = p.elementSize(v)
		elem, err = p.element(v, elemLayout, false)
	}
	if err != nil {
		return InvalidHandle, err
	}

	count := v.Array.Dims[d]
	if count == 0 {
		count = Unbounded
	}
	var names []string
	if d == 0 {
		names = nameChain(v.Name)
	}
	return p.arena.add(&Array{
		base:   base{names: names, stages: p.stage},
		Layout: layout,
		Elem:   elem,
		Count:  count,
		Stride: stride,
	}), nil
}

// element builds the non-array part of v: a Struct or a Primitive.
func (p *parser) element(v *spirv.BlockVariable, layout Layout, allowUnbounded bool) (Handle, error) {
	var names []string
	if !v.Array.IsArray() {
		names = nameChain(v.Name)
	}
	if v.Struct {
		members, err := p.members(v.Members, allowUnbounded)
		if err != nil {
			return InvalidHandle, err
		}
		list, err := p.memberList(members, v.Name)
		if err != nil {
			return InvalidHandle, err
		}
		return p.arena.add(&Struct{
			base:       base{names: names, stages: p.stage},
			Layout:     layout,
			memberList: list,
			TypeName:   v.TypeName,
		}), nil
	}

	t, err := primitiveTypeOf(v.Numeric)
	if err != nil {
		return InvalidHandle, p.fail(err.Kind, "member %q: %s", v.Name, err.Message)
	}
	return p.arena.add(&Primitive{
		base:   base{names: names, stages: p.stage},
		Layout: layout,
		Type:   t,
	}), nil
}

// elementSize is the byte size of one innermost element of v.
func (p *parser) elementSize(v *spirv.BlockVariable) uint32 {
	if !v.Struct {
		t, err := primitiveTypeOf(v.Numeric)
		if err != nil {
			return 0
		}
		return t.Size()
	}
	var size uint32
	for _, m := range v.Members {
		size = max(size, m.Offset+m.Size)
	}
	return size
}

// finishRoot appends the root node over descriptors (sorted by binding
// point) and push constants (sorted by offset) and builds its indexes.
func finishRoot(a *Arena, descriptors, pushConstants []Handle, stages Stage, origin Origin) (Handle, *Error) {
	members := make([]Handle, 0, len(descriptors)+len(pushConstants))
	members = append(members, descriptors...)
	members = append(members, pushConstants...)

	list, dup, ok := newMemberList(a, members)
	if !ok {
		return InvalidHandle, newError(ErrNameCollision, "name %q is claimed by two resources", dup)
	}

	root := &Root{
		base:              base{stages: stages},
		memberList:        list,
		Origin:            origin,
		DescriptorCount:   len(descriptors),
		PushConstantCount: len(pushConstants),
		bindings:          make(map[BindingPoint]int, len(descriptors)),
	}
	for i, h := range descriptors {
		point := a.Node(h).(Bound).Point()
		if _, dup := root.bindings[point]; dup {
			return InvalidHandle, bindingError(ErrMalformedModule, point.Set, point.Binding, "binding declared twice")
		}
		root.bindings[point] = i
		if i == 0 || point.Set != root.Sets[len(root.Sets)-1].Set {
			root.Sets = append(root.Sets, SetRange{Set: point.Set, First: i})
		}
		root.Sets[len(root.Sets)-1].Count++
	}
	// Merged sets can gain bindings after a stage's runtime-sized array.
	for _, set := range root.Sets {
		for _, h := range descriptors[set.First : set.First+set.Count-1] {
			if arr, ok := a.Node(h).(*DescriptorArray); ok && arr.Count == Unbounded {
				return InvalidHandle, bindingError(ErrInvalidUnsizedArrayPosition, arr.Set, arr.Binding,
					"runtime-sized descriptor array %s is not the last binding of set %d", describe(a, h), set.Set).withStage(arr.Stages())
			}
		}
	}
	if len(root.Sets) > 0 {
		root.MinSet = root.Sets[0].Set
		root.MaxSet = root.Sets[len(root.Sets)-1].Set
	}
	return a.add(root), nil
}

// describe formats a handle for error messages.
func describe(a *Arena, h Handle) string {
	n := a.Node(h)
	if n == nil {
		return fmt.Sprintf("<invalid %d>", h)
	}
	if names := n.Names(); len(names) > 0 {
		return fmt.Sprintf("%s %q", n.Kind(), names[0])
	}
	return n.Kind().String()
}
