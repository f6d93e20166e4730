// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/spvreflect"
	"github.com/gogpu/spvreflect/reflection"
	"github.com/gogpu/spvreflect/spirv"
)

// loadWords reads a SPIR-V binary, compiling it first when path is a WGSL
// source.
func loadWords(ctx context.Context, path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".wgsl") {
		loggerFromContext(ctx).Debugf("Compiling %s with naga", path)
		if data, err = spvreflect.CompileWGSL(string(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// stage reflects one input through the cache.
func (a *app) stage(ctx context.Context, path string) (*reflection.Reflection, error) {
	logger := loggerFromContext(ctx)
	words, err := loadWords(ctx, path)
	if err != nil {
		return nil, err
	}
	p := newProgress(logger)
	r, err := a.cache.Stage(words)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if r.DescriptorCount() == 0 && r.PushConstantCount() == 0 {
		logger.Warnf("%s declares no resources", path)
	}
	p.done("Reflected " + path)
	return r, nil
}

// program merges the stages at paths through the cache.
func (a *app) program(ctx context.Context, paths []string) (*reflection.Reflection, error) {
	modules := make([][]uint32, len(paths))
	for i, path := range paths {
		words, err := loadWords(ctx, path)
		if err != nil {
			return nil, err
		}
		modules[i] = words
	}
	p := newProgress(loggerFromContext(ctx))
	r, err := a.cache.Program(modules...)
	if err != nil {
		return nil, err
	}
	p.done(fmt.Sprintf("Merged %d stages", len(paths)))
	return r, nil
}
