// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package cli implements the spvreflect command-line interface.
//
// # Commands
//
//   - reflect: print the reflection tree of one shader stage
//   - merge: merge several stages into a program tree
//   - layout: print the bind group layouts of a program
//   - program: merge every program listed in a TOML manifest
//   - dis: disassemble a SPIR-V binary
//
// Inputs are SPIR-V binaries, or WGSL sources (".wgsl") compiled with naga.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/spvreflect/cache"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// app holds state shared by all commands of one invocation.
type app struct {
	verbose   bool
	format    string
	cacheSize int

	cache *cache.Cache
}

// Execute runs the spvreflect CLI.
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stderr).ExecuteContext(ctx)
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{format: formatText, cacheSize: cache.DefaultSize}

	root := &cobra.Command{
		Use:           "spvreflect",
		Short:         "spvreflect describes the resource interface of SPIR-V shaders",
		Long:          `spvreflect reads compiled SPIR-V (or WGSL compiled with naga), builds a tree of its descriptor bindings, blocks and push constants, and merges the stages of a program into one layout.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if a.verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(logOut, level)
			cmd.SetContext(withLogger(cmd.Context(), logger))

			if err := validateFormat(a.format); err != nil {
				return err
			}
			opts := cache.DefaultOptions()
			opts.Size = a.cacheSize
			opts.Logger = logger
			c, err := cache.New(opts)
			if err != nil {
				return err
			}
			a.cache = c
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("spvreflect %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&a.format, "format", "f", a.format, "output format: text, json or yaml")
	root.PersistentFlags().IntVar(&a.cacheSize, "cache-size", a.cacheSize, "number of reflection trees kept in memory")

	root.AddCommand(newReflectCmd(a))
	root.AddCommand(newMergeCmd(a))
	root.AddCommand(newLayoutCmd(a))
	root.AddCommand(newProgramCmd(a))
	root.AddCommand(newDisCmd())

	return root
}
