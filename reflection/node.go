// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"sort"

	"github.com/gogpu/spvreflect/spirv"
)

// Handle addresses a node in its tree's Arena.
type Handle uint32

// InvalidHandle never addresses a node.
const InvalidHandle Handle = ^Handle(0)

// Unbounded is the element count of a runtime-sized array.
const Unbounded uint32 = ^uint32(0)

// Arena owns every node of one tree. Nodes are appended while the tree is
// built and never freed individually.
type Arena struct {
	nodes []Node
}

func (a *Arena) add(n Node) Handle {
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// Node returns the node at h, or nil if h is out of range.
func (a *Arena) Node(h Handle) Node {
	if int(h) >= len(a.nodes) {
		return nil
	}
	return a.nodes[h]
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Release drops every node at once.
func (a *Arena) Release() {
	a.nodes = nil
}

// Kind identifies a Node variant.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindArray
	KindStruct
	KindDescriptor
	KindDescriptorArray
	KindDescriptorBlock
	KindPushConstant
	KindRoot
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindArray:
		return "Array"
	case KindStruct:
		return "Struct"
	case KindDescriptor:
		return "Descriptor"
	case KindDescriptorArray:
		return "DescriptorArray"
	case KindDescriptorBlock:
		return "DescriptorBlock"
	case KindPushConstant:
		return "PushConstant"
	case KindRoot:
		return "Root"
	default:
		return "Unknown"
	}
}

// Node is one node of a reflection tree. The set of implementations is
// closed: *Primitive, *Array, *Struct, *Descriptor, *DescriptorArray,
// *DescriptorBlock, *PushConstant and *Root.
type Node interface {
	Kind() Kind
	// Names returns the name chain: every name under which a contributing
	// stage declares the node.
	Names() []string
	// Stages returns the mask of stages that expose the node.
	Stages() Stage

	node()
}

type base struct {
	names  []string
	stages Stage
}

func (b *base) Names() []string { return b.names }
func (b *base) Stages() Stage   { return b.stages }
func (*base) node()             {}

// Name returns the first name of the chain, or "".
func (b *base) Name() string {
	if len(b.names) == 0 {
		return ""
	}
	return b.names[0]
}

// Layout is the byte placement of a block member. Offset is relative to
// the enclosing struct, block or array element; inside push-constant
// blocks top-level members use push-constant space offsets.
type Layout struct {
	Offset     uint32
	Size       uint32
	PaddedSize uint32
}

// BindingPoint is a descriptor's (set, binding) pair.
type BindingPoint struct {
	Set     uint32
	Binding uint32
}

// Less orders binding points by set, then binding.
func (p BindingPoint) Less(o BindingPoint) bool {
	if p.Set != o.Set {
		return p.Set < o.Set
	}
	return p.Binding < o.Binding
}

// Point returns p itself; it lets descriptor nodes satisfy Bound.
func (p BindingPoint) Point() BindingPoint { return p }

// Bound is implemented by the descriptor-family nodes.
type Bound interface {
	Node
	Point() BindingPoint
}

type nameEntry struct {
	name   string
	member int
}

// memberList is an ordered member list with a name index sorted by name.
type memberList struct {
	members []Handle
	index   []nameEntry
}

// Members returns the member handles in declaration order.
func (m *memberList) Members() []Handle { return m.members }

// FindMember returns the position in Members of the member declared
// under name by any contributing stage.
func (m *memberList) FindMember(name string) (int, bool) {
	i := sort.Search(len(m.index), func(i int) bool { return m.index[i].name >= name })
	if i < len(m.index) && m.index[i].name == name {
		return m.index[i].member, true
	}
	return -1, false
}

// newMemberList indexes every non-empty name of each member's chain. A
// name claimed by two members is returned as the collision.
func newMemberList(a *Arena, members []Handle) (memberList, string, bool) {
	var index []nameEntry
	for i, h := range members {
		seen := make(map[string]bool)
		for _, name := range a.Node(h).Names() {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			index = append(index, nameEntry{name: name, member: i})
		}
	}
	sort.Slice(index, func(i, j int) bool {
		if index[i].name != index[j].name {
			return index[i].name < index[j].name
		}
		return index[i].member < index[j].member
	})
	for i := 1; i < len(index); i++ {
		if index[i].name == index[i-1].name {
			return memberList{}, index[i].name, false
		}
	}
	return memberList{members: members, index: index}, "", true
}

// Primitive is a scalar, vector or matrix leaf.
type Primitive struct {
	base
	Layout
	Type PrimitiveType
}

// Array is a fixed or runtime-sized repetition of a block member type.
type Array struct {
	base
	Layout
	Elem   Handle
	Count  uint32 // or Unbounded
	Stride uint32 // bytes
}

// Struct is an aggregate block member.
type Struct struct {
	base
	Layout
	memberList
	TypeName string
}

// Descriptor is a single opaque resource binding: a sampler, image,
// texel buffer, input attachment or acceleration structure, or a buffer
// without member information.
type Descriptor struct {
	base
	BindingPoint
	Type        spirv.DescriptorType
	Image       spirv.ImageTraits
	NonWritable bool
}

// DescriptorArray is an array of descriptor bindings.
type DescriptorArray struct {
	base
	BindingPoint
	Elem  Handle
	Count uint32 // or Unbounded
	// Stride is the number of descriptor slots one element occupies.
	Stride uint32
}

// DescriptorBlock is a uniform or storage buffer binding with a member
// layout.
type DescriptorBlock struct {
	base
	BindingPoint
	memberList
	Type        spirv.DescriptorType
	TypeName    string
	Size        uint32
	PaddedSize  uint32
	NonWritable bool
}

// PushConstant is a push-constant block covering [Offset, Offset+Size).
type PushConstant struct {
	base
	memberList
	TypeName string
	Offset   uint32
	Size     uint32
}

// End returns the first byte past the block.
func (p *PushConstant) End() uint32 { return p.Offset + p.Size }

// Origin tells whether a tree describes one stage or a merged program.
type Origin uint8

const (
	OriginStage Origin = iota
	OriginProgram
)

// String returns "stage" or "program".
func (o Origin) String() string {
	if o == OriginProgram {
		return "program"
	}
	return "stage"
}

// SetRange locates one descriptor set's bindings inside Root.Members.
type SetRange struct {
	Set   uint32
	First int
	Count int
}

// Root is the top of a tree. Its members are partitioned: the first
// DescriptorCount entries are descriptors sorted by (set, binding), the
// remaining PushConstantCount entries are push-constant blocks sorted by
// offset.
type Root struct {
	base
	memberList
	Origin            Origin
	MinSet            uint32
	MaxSet            uint32
	DescriptorCount   int
	PushConstantCount int
	Sets              []SetRange

	bindings map[BindingPoint]int
}

// Descriptors returns the descriptor partition of Members.
func (r *Root) Descriptors() []Handle {
	return r.members[:r.DescriptorCount]
}

// PushConstants returns the push-constant partition of Members.
func (r *Root) PushConstants() []Handle {
	return r.members[r.DescriptorCount:]
}

// FindDescriptor returns the descriptor bound at (set, binding).
func (r *Root) FindDescriptor(set, binding uint32) (Handle, bool) {
	i, ok := r.bindings[BindingPoint{set, binding}]
	if !ok {
		return InvalidHandle, false
	}
	return r.members[i], true
}

// Kind implementations.

func (*Primitive) Kind() Kind       { return KindPrimitive }
func (*Array) Kind() Kind           { return KindArray }
func (*Struct) Kind() Kind          { return KindStruct }
func (*Descriptor) Kind() Kind      { return KindDescriptor }
func (*DescriptorArray) Kind() Kind { return KindDescriptorArray }
func (*DescriptorBlock) Kind() Kind { return KindDescriptorBlock }
func (*PushConstant) Kind() Kind    { return KindPushConstant }
func (*Root) Kind() Kind            { return KindRoot }

// layoutOf returns the byte placement of a block member node.
func layoutOf(n Node) (Layout, bool) {
	switch n := n.(type) {
	case *Primitive:
		return n.Layout, true
	case *Array:
		return n.Layout, true
	case *Struct:
		return n.Layout, true
	default:
		return Layout{}, false
	}
}

// membersOf returns the member list of a member-bearing node.
func membersOf(n Node) (*memberList, bool) {
	switch n := n.(type) {
	case *Struct:
		return &n.memberList, true
	case *DescriptorBlock:
		return &n.memberList, true
	case *PushConstant:
		return &n.memberList, true
	case *Root:
		return &n.memberList, true
	default:
		return nil, false
	}
}
