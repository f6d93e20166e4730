// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"sort"
	"strconv"
	"strings"
)

// EntryPoint names the entry function of one stage.
type EntryPoint struct {
	Stage Stage
	Name  string
}

// Reflection is a finished tree: one stage or a merged program. It is
// immutable and safe for concurrent readers until Release.
type Reflection struct {
	arena       *Arena
	root        Handle
	entryPoints []EntryPoint // sorted by stage bit
}

var emptyRoot = &Root{}

// Root returns the root node.
func (r *Reflection) Root() *Root {
	if root, ok := r.arena.Node(r.root).(*Root); ok {
		return root
	}
	return emptyRoot
}

// Node returns the node at h, or nil.
func (r *Reflection) Node(h Handle) Node {
	return r.arena.Node(h)
}

// Arena returns the arena holding every node of the tree.
func (r *Reflection) Arena() *Arena {
	return r.arena
}

// Release frees the whole tree. The Reflection must not be queried
// afterwards; queries on a released tree see an empty root.
func (r *Reflection) Release() {
	r.arena.Release()
	r.entryPoints = nil
}

// Stages returns the union of the stages the tree describes.
func (r *Reflection) Stages() Stage { return r.Root().Stages() }

// Origin reports whether the tree is a stage or a merged program.
func (r *Reflection) Origin() Origin { return r.Root().Origin }

// MinSet returns the lowest descriptor set used, or 0 without descriptors.
func (r *Reflection) MinSet() uint32 { return r.Root().MinSet }

// MaxSet returns the highest descriptor set used, or 0 without descriptors.
func (r *Reflection) MaxSet() uint32 { return r.Root().MaxSet }

// DescriptorCount returns the number of descriptor bindings.
func (r *Reflection) DescriptorCount() int { return r.Root().DescriptorCount }

// PushConstantCount returns the number of push-constant blocks.
func (r *Reflection) PushConstantCount() int { return r.Root().PushConstantCount }

// EnumerateDescriptors returns every descriptor sorted by (set, binding).
func (r *Reflection) EnumerateDescriptors() []Handle {
	return r.Root().Descriptors()
}

// EnumerateDescriptorSet returns the descriptors of one set in ascending
// binding order.
func (r *Reflection) EnumerateDescriptorSet(set uint32) []Handle {
	root := r.Root()
	i := sort.Search(len(root.Sets), func(i int) bool { return root.Sets[i].Set >= set })
	if i == len(root.Sets) || root.Sets[i].Set != set {
		return nil
	}
	rng := root.Sets[i]
	return root.members[rng.First : rng.First+rng.Count]
}

// EnumeratePushConstants returns the push-constant blocks sorted by offset.
func (r *Reflection) EnumeratePushConstants() []Handle {
	return r.Root().PushConstants()
}

// FindDescriptor returns the descriptor bound at (set, binding).
func (r *Reflection) FindDescriptor(set, binding uint32) (Handle, bool) {
	return r.Root().FindDescriptor(set, binding)
}

// FindPushConstant returns the push-constant block visible to every stage
// in mask.
func (r *Reflection) FindPushConstant(mask Stage) (Handle, bool) {
	for _, h := range r.EnumeratePushConstants() {
		if r.Node(h).Stages().Has(mask) {
			return h, true
		}
	}
	return InvalidHandle, false
}

// EntryPoints returns the entry points sorted by stage.
func (r *Reflection) EntryPoints() []EntryPoint {
	return r.entryPoints
}

// EntryPointName returns the entry function of a single stage.
func (r *Reflection) EntryPointName(stage Stage) (string, bool) {
	for _, ep := range r.entryPoints {
		if ep.Stage == stage {
			return ep.Name, true
		}
	}
	return "", false
}

// Cursor walks a member path from a top-level resource, accumulating the
// byte offset inside a block or the slot inside a descriptor array. The
// first failed step sticks; later steps are no-ops.
type Cursor struct {
	r      *Reflection
	h      Handle
	offset uint32
	slot   uint32
	err    error
}

// Variable starts a cursor at the resource declared under name.
func (r *Reflection) Variable(name string) Cursor {
	root := r.Root()
	i, ok := root.FindMember(name)
	if !ok {
		return Cursor{r: r, h: InvalidHandle, err: newError(ErrInvalidArgument, "no resource named %q", name)}
	}
	return Cursor{r: r, h: root.members[i]}
}

// Resolve walks a path such as "scene.lights[2].position". The first
// segment names a resource; "[n]" indexes arrays and descriptor arrays.
func (r *Reflection) Resolve(path string) Cursor {
	steps, err := parsePath(path)
	if err != nil {
		return Cursor{r: r, h: InvalidHandle, err: err}
	}
	c := r.Variable(steps[0].name)
	for _, s := range steps[1:] {
		if s.isIndex {
			c = c.Index(s.index)
		} else {
			c = c.Member(s.name)
		}
	}
	return c
}

// Member steps into the member declared under name.
func (c Cursor) Member(name string) Cursor {
	if c.err != nil {
		return c
	}
	list, ok := membersOf(c.r.Node(c.h))
	if !ok {
		return c.fail("%s has no members", describe(c.r.arena, c.h))
	}
	i, ok := list.FindMember(name)
	if !ok {
		return c.fail("%s has no member %q", describe(c.r.arena, c.h), name)
	}
	h := list.members[i]
	if l, ok := layoutOf(c.r.Node(h)); ok {
		c.offset += l.Offset
	}
	c.h = h
	return c
}

// Index steps into element i of an array or descriptor array.
func (c Cursor) Index(i uint32) Cursor {
	if c.err != nil {
		return c
	}
	switch n := c.r.Node(c.h).(type) {
	case *Array:
		if n.Count != Unbounded && i >= n.Count {
			return c.fail("index %d out of range for %s of %d", i, describe(c.r.arena, c.h), n.Count)
		}
		c.offset += i * n.Stride
		c.h = n.Elem
	case *DescriptorArray:
		if n.Count != Unbounded && i >= n.Count {
			return c.fail("index %d out of range for %s of %d", i, describe(c.r.arena, c.h), n.Count)
		}
		c.slot += i * n.Stride
		c.h = n.Elem
	default:
		return c.fail("%s is not an array", describe(c.r.arena, c.h))
	}
	return c
}

func (c Cursor) fail(format string, args ...any) Cursor {
	c.err = newError(ErrInvalidArgument, format, args...)
	c.h = InvalidHandle
	return c
}

// Err returns the first failure along the path.
func (c Cursor) Err() error { return c.err }

// Handle returns the node reached, or InvalidHandle.
func (c Cursor) Handle() Handle { return c.h }

// Node returns the node reached, or nil.
func (c Cursor) Node() Node {
	if c.err != nil {
		return nil
	}
	return c.r.Node(c.h)
}

// Offset returns the accumulated byte offset. Inside push-constant
// blocks it is an offset in push-constant space.
func (c Cursor) Offset() uint32 { return c.offset }

// Slot returns the accumulated descriptor array slot.
func (c Cursor) Slot() uint32 { return c.slot }

type pathStep struct {
	name    string
	index   uint32
	isIndex bool
}

func parsePath(path string) ([]pathStep, error) {
	var steps []pathStep
	rest := path
	for rest != "" {
		switch {
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, newError(ErrInvalidArgument, "path %q: unterminated index", path)
			}
			n, err := strconv.ParseUint(rest[1:end], 10, 32)
			if err != nil || len(steps) == 0 {
				return nil, newError(ErrInvalidArgument, "path %q: bad index %q", path, rest[:end+1])
			}
			steps = append(steps, pathStep{index: uint32(n), isIndex: true})
			rest = rest[end+1:]
		case rest[0] == '.':
			if len(steps) == 0 {
				return nil, newError(ErrInvalidArgument, "path %q: leading '.'", path)
			}
			rest = rest[1:]
			fallthrough
		default:
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if end == 0 {
				return nil, newError(ErrInvalidArgument, "path %q: empty member name", path)
			}
			steps = append(steps, pathStep{name: rest[:end]})
			rest = rest[end:]
		}
	}
	if len(steps) == 0 {
		return nil, newError(ErrInvalidArgument, "empty path")
	}
	return steps, nil
}
