// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/gogpu/spvreflect/reflection"
)

// manifest lists the programs of a project. Stage paths are relative to
// the manifest file.
//
//	[[program]]
//	name = "lit"
//	stages = ["lit.vert.spv", "lit.frag.spv"]
//	format = "json"
type manifest struct {
	Programs []programSpec `toml:"program"`
}

type programSpec struct {
	Name   string   `toml:"name"`
	Stages []string `toml:"stages"`
	Format string   `toml:"format"`
}

func loadManifest(path string) (*manifest, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var m manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}

	if len(m.Programs) == 0 {
		return nil, nil, fmt.Errorf("%s: no [[program]] entries", path)
	}
	dir := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Programs))
	for i := range m.Programs {
		p := &m.Programs[i]
		switch {
		case p.Name == "":
			return nil, nil, fmt.Errorf("%s: program %d has no name", path, i)
		case seen[p.Name]:
			return nil, nil, fmt.Errorf("%s: program %q is listed twice", path, p.Name)
		case len(p.Stages) == 0:
			return nil, nil, fmt.Errorf("%s: program %q has no stages", path, p.Name)
		}
		if p.Format != "" {
			if err := validateFormat(p.Format); err != nil {
				return nil, nil, fmt.Errorf("%s: program %q: %w", path, p.Name, err)
			}
		}
		seen[p.Name] = true
		for j, stage := range p.Stages {
			if !filepath.IsAbs(stage) {
				p.Stages[j] = filepath.Join(dir, stage)
			}
		}
	}
	return &m, unknown, nil
}

type programView struct {
	Name string           `json:"name" yaml:"name"`
	Tree *reflection.View `json:"tree" yaml:"tree"`
}

func newProgramCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "program <manifest.toml> [name...]",
		Short: "Merge every program listed in a TOML manifest",
		Long: `Merge every program listed in a TOML manifest, or only the named ones.

A program's format key overrides the default output format unless --format
is given explicitly. Stage trees shared between programs are reflected once.

Example manifest:
  [[program]]
  name = "lit"
  stages = ["lit.vert.spv", "lit.frag.spv"]

  [[program]]
  name = "particles"
  stages = ["particles.comp.wgsl"]
  format = "json"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			m, unknown, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			for _, key := range unknown {
				logger.Warnf("%s: unknown key %q", args[0], key)
			}

			wanted := args[1:]
			for _, name := range wanted {
				if !slices.ContainsFunc(m.Programs, func(p programSpec) bool { return p.Name == name }) {
					return fmt.Errorf("%s: no program named %q", args[0], name)
				}
			}

			explicit := cmd.Flags().Changed("format")
			for _, p := range m.Programs {
				if len(wanted) > 0 && !slices.Contains(wanted, p.Name) {
					continue
				}
				r, err := a.program(ctx, p.Stages)
				if err != nil {
					return fmt.Errorf("program %q: %w", p.Name, err)
				}
				format := a.format
				if p.Format != "" && !explicit {
					format = p.Format
				}
				v := programView{Name: p.Name, Tree: r.View()}
				err = encode(cmd.OutOrStdout(), format, v, func(w io.Writer) error {
					if _, err := fmt.Fprintf(w, "program %s\n", p.Name); err != nil {
						return err
					}
					return r.Dump(w)
				})
				if err != nil {
					return err
				}
			}
			logger.Debug("cache", "stats", fmt.Sprintf("%+v", a.cache.Stats()))
			return nil
		},
	}
}
