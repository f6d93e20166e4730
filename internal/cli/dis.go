// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/spvreflect/spirv"
)

func newDisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dis <shader>",
		Short: "Disassemble a SPIR-V binary",
		Long: `Print a SPIR-V binary (or a WGSL source compiled with naga) as one
instruction per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := loadWords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return spirv.Disassemble(cmd.OutOrStdout(), words)
		},
	}
}
