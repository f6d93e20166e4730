// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/spvreflect/layout"
	"github.com/gogpu/spvreflect/reflection"
)

func newLayoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <shader>...",
		Short: "Print the bind group layouts and push-constant ranges of a program",
		Long: `Merge the given stages and print the bind group layout of every
descriptor set together with the push-constant ranges.

Examples:
  spvreflect layout lit.vert.spv lit.frag.spv
  spvreflect layout -f json particles.comp.wgsl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.program(cmd.Context(), args)
			if err != nil {
				return err
			}
			v, err := newPipelineView(r)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), a.format, v, v.text)
		},
	}
}

type pipelineView struct {
	Sets          []setView   `json:"sets" yaml:"sets"`
	PushConstants []rangeView `json:"pushConstants,omitempty" yaml:"pushConstants,omitempty"`
}

type setView struct {
	Set     uint32      `json:"set" yaml:"set"`
	Entries []entryView `json:"entries" yaml:"entries"`
}

type entryView struct {
	Binding        uint32 `json:"binding" yaml:"binding"`
	Resource       string `json:"resource" yaml:"resource"`
	Visibility     string `json:"visibility" yaml:"visibility"`
	MinBindingSize uint64 `json:"minBindingSize,omitempty" yaml:"minBindingSize,omitempty"`
}

type rangeView struct {
	Stages string `json:"stages" yaml:"stages"`
	Offset uint32 `json:"offset" yaml:"offset"`
	Size   uint32 `json:"size" yaml:"size"`
}

func newPipelineView(r *reflection.Reflection) (*pipelineView, error) {
	sets, err := layout.BindGroupLayouts(r)
	if err != nil {
		return nil, err
	}
	v := &pipelineView{Sets: make([]setView, 0, len(sets))}
	for _, s := range sets {
		sv := setView{Set: s.Set, Entries: make([]entryView, 0, len(s.Entries))}
		for _, e := range s.Entries {
			ev := entryView{Binding: e.Binding, Resource: resourceName(e), Visibility: visibilityName(e)}
			if e.Buffer != nil {
				ev.MinBindingSize = e.Buffer.MinBindingSize
			}
			sv.Entries = append(sv.Entries, ev)
		}
		v.Sets = append(v.Sets, sv)
	}
	for _, pc := range layout.PushConstantRanges(r) {
		v.PushConstants = append(v.PushConstants, rangeView{Stages: pc.Stages.String(), Offset: pc.Offset, Size: pc.Size})
	}
	return v, nil
}

func resourceName(e gputypes.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer != nil && e.Buffer.Type == gputypes.BufferBindingTypeUniform:
		return "uniform-buffer"
	case e.Buffer != nil && e.Buffer.Type == gputypes.BufferBindingTypeReadOnlyStorage:
		return "read-only-storage-buffer"
	case e.Buffer != nil:
		return "storage-buffer"
	case e.Sampler != nil:
		return "sampler"
	case e.Texture != nil:
		return "texture"
	case e.StorageTexture != nil:
		return "storage-texture"
	}
	return "unknown"
}

func visibilityName(e gputypes.BindGroupLayoutEntry) string {
	var names []string
	if e.Visibility&gputypes.ShaderStageVertex != 0 {
		names = append(names, "vertex")
	}
	if e.Visibility&gputypes.ShaderStageFragment != 0 {
		names = append(names, "fragment")
	}
	if e.Visibility&gputypes.ShaderStageCompute != 0 {
		names = append(names, "compute")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

func (v *pipelineView) text(w io.Writer) error {
	for _, s := range v.Sets {
		if _, err := fmt.Fprintf(w, "set %d\n", s.Set); err != nil {
			return err
		}
		for _, e := range s.Entries {
			line := fmt.Sprintf("  binding %d %s <%s>", e.Binding, e.Resource, e.Visibility)
			if e.MinBindingSize > 0 {
				line += fmt.Sprintf(" min=%d", e.MinBindingSize)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	for _, pc := range v.PushConstants {
		if _, err := fmt.Fprintf(w, "push constants offset=%d size=%d <%s>\n", pc.Offset, pc.Size, pc.Stages); err != nil {
			return err
		}
	}
	return nil
}
