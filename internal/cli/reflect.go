// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvreflect/reflection"
)

func newReflectCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "reflect <shader>",
		Short: "Print the reflection tree of one shader stage",
		Long: `Print the reflection tree of one shader stage.

Examples:
  spvreflect reflect lit.frag.spv
  spvreflect reflect -f json lit.wgsl
  spvreflect reflect --path camera.viewProj lit.vert.spv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.stage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if path != "" {
				return writeCursor(cmd.OutOrStdout(), a.format, path, r.Resolve(path))
			}
			return writeTree(cmd.OutOrStdout(), a.format, r)
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", `resolve a variable path such as "lights[2].color"`)
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "merge <shader>...",
		Short: "Merge shader stages into one program tree",
		Long: `Merge the reflection trees of several shader stages into one program tree.

Each input must be a different stage. A binding declared by several stages
must agree in kind and shape; block members may differ as long as they are
offset-compatible.

Examples:
  spvreflect merge lit.vert.spv lit.frag.spv
  spvreflect merge -f yaml lit.vert.wgsl lit.frag.wgsl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.program(cmd.Context(), args)
			if err != nil {
				return err
			}
			if path != "" {
				return writeCursor(cmd.OutOrStdout(), a.format, path, r.Resolve(path))
			}
			return writeTree(cmd.OutOrStdout(), a.format, r)
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "resolve a variable path in the merged tree")
	return cmd
}

func writeTree(w io.Writer, format string, r *reflection.Reflection) error {
	return encode(w, format, r.View(), r.Dump)
}

// cursorView is the serializable result of a path resolution.
type cursorView struct {
	Path   string               `json:"path" yaml:"path"`
	Offset uint32               `json:"offset" yaml:"offset"`
	Slot   uint32               `json:"slot" yaml:"slot"`
	Node   *reflection.NodeView `json:"node" yaml:"node"`
}

func writeCursor(w io.Writer, format, path string, c reflection.Cursor) error {
	if err := c.Err(); err != nil {
		return err
	}
	v := cursorView{Path: path, Offset: c.Offset(), Slot: c.Slot(), Node: c.View()}
	return encode(w, format, v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %s offset=%d slot=%d\n", path, c.Node().Kind(), v.Offset, v.Slot)
		return err
	})
}
