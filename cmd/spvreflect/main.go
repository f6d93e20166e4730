// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command spvreflect prints the resource interface of SPIR-V shaders.
//
// Usage:
//
//	spvreflect reflect shader.frag.spv
//	spvreflect merge -f json shader.vert.spv shader.frag.spv
//	spvreflect layout shader.vert.wgsl shader.frag.wgsl
//	spvreflect program shaders.toml
//	spvreflect dis shader.spv
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/spvreflect/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.SetVersion(version, commit, date)
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
