// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvreflect reflects the resource interface of compiled shaders.
//
// It turns the descriptor bindings, uniform and storage blocks and push
// constants of a SPIR-V module into a queryable tree, and merges the trees
// of the stages of a program into one layout description.
//
// Example usage:
//
//	vs, err := spvreflect.ReflectBytes(vertexSPIRV)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fs, err := spvreflect.ReflectBytes(fragmentSPIRV)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	program, err := spvreflect.Merge(vs, fs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := program.Resolve("camera.viewProj")
//	fmt.Println(c.Offset())
//
// WGSL sources are compiled with naga first:
//
//	r, err := spvreflect.ReflectWGSL(source)
//
// The tree itself lives in the reflection package; the layout package turns
// it into bind group layouts and the cache package memoizes it per device.
package spvreflect

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/spvreflect/reflection"
	"github.com/gogpu/spvreflect/spirv"
)

// Reflect builds the tree of a single-stage module.
func Reflect(words []uint32) (*reflection.Reflection, error) {
	return reflection.ParseWords(words)
}

// ReflectBytes builds the tree of a single-stage module given as a SPIR-V
// binary in either byte order.
func ReflectBytes(data []byte) (*reflection.Reflection, error) {
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return nil, &reflection.Error{Kind: reflection.ErrMalformedModule, Message: err.Error(), Err: err}
	}
	return reflection.ParseWords(words)
}

// CompileWGSL compiles WGSL source to SPIR-V with debug names kept, so
// that reflected nodes carry the source's variable and member names.
func CompileWGSL(source string) ([]byte, error) {
	opts := naga.DefaultOptions()
	opts.Debug = true
	return naga.CompileWithOptions(source, opts)
}

// ReflectWGSL compiles a WGSL source with exactly one entry point and
// reflects the result.
func ReflectWGSL(source string) (*reflection.Reflection, error) {
	data, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("compile WGSL: %w", err)
	}
	return ReflectBytes(data)
}

// Merge combines the trees of distinct stages into a program tree.
func Merge(stages ...*reflection.Reflection) (*reflection.Reflection, error) {
	return reflection.Merge(stages...)
}

// MergeWords reflects each module and merges the results. The
// intermediate stage trees are released before returning.
func MergeWords(modules ...[]uint32) (*reflection.Reflection, error) {
	stages := make([]*reflection.Reflection, 0, len(modules))
	defer func() {
		for _, r := range stages {
			r.Release()
		}
	}()
	for i, words := range modules {
		r, err := Reflect(words)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		stages = append(stages, r)
	}
	return reflection.Merge(stages...)
}
