// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package reflection builds queryable resource-layout trees from SPIR-V
// modules and merges the trees of the stages of one program.
//
// A tree describes shapes only: descriptor bindings grouped by set, the
// byte layout of uniform, storage and push-constant blocks, and which
// shader stages use each resource. Trees never touch device memory.
//
// # Building
//
// Parse turns one decoded stage module into a stage tree:
//
//	module, err := spirv.Decode(words)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vs, err := reflection.Parse(module)
//
// Merge unifies the trees of several stages into one program tree.
// Resources declared by more than one stage at the same (set, binding)
// must agree on descriptor type, array shape and the byte layout of
// every overlapping block member:
//
//	program, err := reflection.Merge(vs, fs)
//
// # Node Model
//
// All nodes of a tree live in one Arena and are addressed by Handle.
// Node is a closed sum type: Primitive, Array, Struct, Descriptor,
// DescriptorArray, DescriptorBlock, PushConstant and Root. Every node
// carries a stage mask and a name chain, the names under which the
// contributing stages declare it.
//
// # Queries
//
// Reflection exposes the read-only lookup surface used to build
// descriptor-set layouts and to write shader parameters:
//
//	for _, h := range program.EnumerateDescriptorSet(0) {
//	    fmt.Println(program.Node(h).Names())
//	}
//	off := program.Resolve("scene.lights[2].position").Offset()
//
// Finished trees are immutable and safe for concurrent readers.
package reflection
