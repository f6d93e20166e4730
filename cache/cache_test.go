// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"bytes"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvreflect/internal/spvtest"
	"github.com/gogpu/spvreflect/reflection"
)

func vertexWords() []uint32 {
	s := spvtest.Vertex()
	s.Uniform("camera", 0, 0, spvtest.Member{Name: "viewProj", Type: s.Mat(4, 4), MatrixStride: 16})
	return s.Words()
}

func fragmentWords() []uint32 {
	s := spvtest.Fragment()
	s.Uniform("camera", 0, 0, spvtest.Member{Name: "viewProj", Type: s.Mat(4, 4), MatrixStride: 16})
	s.Sampler("samp", 0, 1)
	return s.Words()
}

func newCache(t *testing.T, size int) *Cache {
	t.Helper()
	opts := DefaultOptions()
	opts.Size = size
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestSum(t *testing.T) {
	vs, fs := vertexWords(), fragmentWords()
	assert.Equal(t, Sum(vs), Sum(append([]uint32(nil), vs...)))
	assert.NotEqual(t, Sum(vs), Sum(fs))
	assert.NotEqual(t, programKey([]uint64{1, 2}), programKey([]uint64{2, 1}))
}

func TestStage_Memoizes(t *testing.T) {
	c := newCache(t, DefaultSize)
	words := vertexWords()

	first, err := c.Stage(words)
	require.NoError(t, err)
	second, err := c.Stage(words)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Builds: 1}, c.Stats())
}

func TestStage_ConcurrentBuildsOnce(t *testing.T) {
	c := newCache(t, DefaultSize)
	words := fragmentWords()

	const workers = 32
	results := make([]*reflection.Reflection, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Stage(words)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1), c.Stats().Builds)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestStage_FailedBuildIsNotStored(t *testing.T) {
	c := newCache(t, DefaultSize)
	garbage := []uint32{0xdeadbeef, 1, 2, 3, 4}

	_, err := c.Stage(garbage)
	kind, ok := reflection.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, reflection.ErrMalformedModule, kind)
	assert.Zero(t, c.Len())

	_, err = c.Stage(garbage)
	assert.Error(t, err)
	assert.Equal(t, uint64(2), c.Stats().Builds)
}

func TestProgram(t *testing.T) {
	c := newCache(t, DefaultSize)
	vs, fs := vertexWords(), fragmentWords()

	prog, err := c.Program(vs, fs)
	require.NoError(t, err)
	assert.Equal(t, reflection.OriginProgram, prog.Origin())
	assert.Equal(t, reflection.StageVertex|reflection.StageFragment, prog.Stages())
	assert.Equal(t, 2, prog.DescriptorCount())
	assert.Equal(t, 3, c.Len())

	again, err := c.Program(vs, fs)
	require.NoError(t, err)
	assert.Same(t, prog, again)

	// Stage trees survive as inputs of the merge.
	stage, err := c.Stage(vs)
	require.NoError(t, err)
	assert.Equal(t, reflection.OriginStage, stage.Origin())
	assert.Equal(t, uint64(3), c.Stats().Builds)
}

func TestProgram_StageError(t *testing.T) {
	c := newCache(t, DefaultSize)
	_, err := c.Program(vertexWords(), []uint32{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 1")
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(Options{Size: 1, Logger: log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})})
	require.NoError(t, err)
	vs, fs := vertexWords(), fragmentWords()

	_, err = c.Stage(vs)
	require.NoError(t, err)
	_, err = c.Stage(fs)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = c.Stage(vs)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c.Stats().Builds)
	assert.Contains(t, buf.String(), "evicted reflection")

	c.Purge()
	assert.Zero(t, c.Len())
}
