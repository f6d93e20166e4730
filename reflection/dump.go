// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// View is a self-contained, serializable copy of a tree.
type View struct {
	Origin            string            `json:"origin" yaml:"origin"`
	Stages            string            `json:"stages" yaml:"stages"`
	EntryPoints       map[string]string `json:"entryPoints,omitempty" yaml:"entryPoints,omitempty"`
	MinSet            uint32            `json:"minSet" yaml:"minSet"`
	MaxSet            uint32            `json:"maxSet" yaml:"maxSet"`
	DescriptorCount   int               `json:"descriptorCount" yaml:"descriptorCount"`
	PushConstantCount int               `json:"pushConstantCount" yaml:"pushConstantCount"`
	Descriptors       []NodeView        `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
	PushConstants     []NodeView        `json:"pushConstants,omitempty" yaml:"pushConstants,omitempty"`
}

// NodeView is the serializable form of one node.
type NodeView struct {
	Kind       string     `json:"kind" yaml:"kind"`
	Names      []string   `json:"names,omitempty" yaml:"names,omitempty"`
	Stages     string     `json:"stages" yaml:"stages"`
	Type       string     `json:"type,omitempty" yaml:"type,omitempty"`
	Set        *uint32    `json:"set,omitempty" yaml:"set,omitempty"`
	Binding    *uint32    `json:"binding,omitempty" yaml:"binding,omitempty"`
	Offset     *uint32    `json:"offset,omitempty" yaml:"offset,omitempty"`
	Size       uint32     `json:"size,omitempty" yaml:"size,omitempty"`
	PaddedSize uint32     `json:"paddedSize,omitempty" yaml:"paddedSize,omitempty"`
	Count      string     `json:"count,omitempty" yaml:"count,omitempty"`
	Stride     uint32     `json:"stride,omitempty" yaml:"stride,omitempty"`
	ReadOnly   bool       `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Element    *NodeView  `json:"element,omitempty" yaml:"element,omitempty"`
	Members    []NodeView `json:"members,omitempty" yaml:"members,omitempty"`
}

// View copies the tree into its serializable form.
func (r *Reflection) View() *View {
	root := r.Root()
	v := &View{
		Origin:            root.Origin.String(),
		Stages:            root.Stages().String(),
		MinSet:            root.MinSet,
		MaxSet:            root.MaxSet,
		DescriptorCount:   root.DescriptorCount,
		PushConstantCount: root.PushConstantCount,
	}
	if len(r.entryPoints) > 0 {
		v.EntryPoints = make(map[string]string, len(r.entryPoints))
		for _, ep := range r.entryPoints {
			v.EntryPoints[ep.Stage.String()] = ep.Name
		}
	}
	for _, h := range root.Descriptors() {
		v.Descriptors = append(v.Descriptors, r.nodeView(h))
	}
	for _, h := range root.PushConstants() {
		v.PushConstants = append(v.PushConstants, r.nodeView(h))
	}
	return v
}

func u32(v uint32) *uint32 { return &v }

func (r *Reflection) nodeView(h Handle) NodeView {
	n := r.Node(h)
	v := NodeView{Kind: n.Kind().String(), Names: n.Names(), Stages: n.Stages().String()}
	if b, ok := n.(Bound); ok {
		p := b.Point()
		v.Set, v.Binding = u32(p.Set), u32(p.Binding)
	}
	if l, ok := layoutOf(n); ok {
		v.Offset, v.Size, v.PaddedSize = u32(l.Offset), l.Size, l.PaddedSize
	}

	switch n := n.(type) {
	case *Primitive:
		v.Type = n.Type.String()
	case *Array:
		v.Count, v.Stride = countString(n.Count), n.Stride
		elem := r.nodeView(n.Elem)
		v.Element = &elem
	case *Struct:
		v.Type = n.TypeName
		v.Members = r.memberViews(n.members)
	case *Descriptor:
		v.Type = n.Type.String()
		v.ReadOnly = n.NonWritable
	case *DescriptorArray:
		v.Count, v.Stride = countString(n.Count), n.Stride
		elem := r.nodeView(n.Elem)
		v.Element = &elem
	case *DescriptorBlock:
		v.Type = n.Type.String()
		v.Size, v.PaddedSize = n.Size, n.PaddedSize
		v.ReadOnly = n.NonWritable
		v.Members = r.memberViews(n.members)
	case *PushConstant:
		v.Type = n.TypeName
		v.Offset, v.Size = u32(n.Offset), n.Size
		v.Members = r.memberViews(n.members)
	}
	return v
}

// View returns the serializable form of the node reached, or nil.
func (c Cursor) View() *NodeView {
	if c.Node() == nil {
		return nil
	}
	v := c.r.nodeView(c.h)
	return &v
}

func (r *Reflection) memberViews(members []Handle) []NodeView {
	out := make([]NodeView, len(members))
	for i, h := range members {
		out[i] = r.nodeView(h)
	}
	return out
}

// Dump writes an indented, human-readable listing of the tree.
func (r *Reflection) Dump(w io.Writer) error {
	v := r.View()
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "%s %s: %d descriptors", v.Origin, v.Stages, v.DescriptorCount)
	if v.DescriptorCount > 0 {
		fmt.Fprintf(out, " in sets %d..%d", v.MinSet, v.MaxSet)
	}
	fmt.Fprintf(out, ", %d push constants\n", v.PushConstantCount)
	for _, ep := range r.entryPoints {
		fmt.Fprintf(out, "  entry %s %q\n", ep.Stage, ep.Name)
	}
	for i := range v.Descriptors {
		dumpNode(out, &v.Descriptors[i], 1)
	}
	for i := range v.PushConstants {
		dumpNode(out, &v.PushConstants[i], 1)
	}
	return out.Flush()
}

func dumpNode(w io.Writer, v *NodeView, depth int) {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	if v.Set != nil {
		fmt.Fprintf(&sb, "set=%d binding=%d ", *v.Set, *v.Binding)
	}
	if len(v.Names) > 0 {
		sb.WriteString(strings.Join(v.Names, "|"))
		sb.WriteByte(' ')
	}
	sb.WriteString(v.Kind)
	if v.Type != "" {
		fmt.Fprintf(&sb, " %s", v.Type)
	}
	if v.Count != "" {
		fmt.Fprintf(&sb, " [%s] stride=%d", v.Count, v.Stride)
	}
	if v.Offset != nil {
		fmt.Fprintf(&sb, " offset=%d", *v.Offset)
	}
	if v.Size > 0 {
		fmt.Fprintf(&sb, " size=%d", v.Size)
	}
	if v.ReadOnly {
		sb.WriteString(" readonly")
	}
	if depth == 1 {
		fmt.Fprintf(&sb, " <%s>", v.Stages)
	}
	fmt.Fprintln(w, sb.String())

	if v.Element != nil {
		dumpNode(w, v.Element, depth+1)
	}
	for i := range v.Members {
		dumpNode(w, &v.Members[i], depth+1)
	}
}
