// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package cache memoizes reflection trees by module content.
//
// A Cache is shared by everything that creates pipelines on one device.
// Identical SPIR-V is reflected once: concurrent requests for the same
// module wait for a single build, and finished trees are kept in a
// bounded LRU. Failed builds are never stored, so a later request retries.
//
// Trees handed out by a Cache are shared. Callers must not Release them.
package cache

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/gogpu/spvreflect/reflection"
)

// DefaultSize is the number of trees kept by DefaultOptions.
const DefaultSize = 256

// Options configures a Cache.
type Options struct {
	// Size bounds the number of cached trees, stages and programs together.
	Size int

	// Logger receives debug records for builds and evictions.
	// Nil discards them.
	Logger *log.Logger
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{Size: DefaultSize}
}

// Stats counts cache traffic.
type Stats struct {
	Hits   uint64
	Misses uint64
	Builds uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	trees  *lru.Cache
	group  singleflight.Group
	logger *log.Logger

	hits, misses, builds atomic.Uint64
}

// New returns an empty cache.
func New(opts Options) (*Cache, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("cache: size must be positive, got %d", opts.Size)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	c := &Cache{logger: logger}
	trees, err := lru.NewWithEvict(opts.Size, func(key, _ interface{}) {
		c.logger.Debug("evicted reflection", "key", key)
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.trees = trees
	return c, nil
}

// Sum returns the content hash of a SPIR-V word stream.
func Sum(words []uint32) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[:], w)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func stageKey(sum uint64) string { return fmt.Sprintf("stage:%016x", sum) }

// programKey depends on the order of the stage hashes, since Merge keeps
// input order for name chains.
func programKey(sums []uint64) string {
	d := xxhash.New()
	var buf [8]byte
	for _, s := range sums {
		binary.LittleEndian.PutUint64(buf[:], s)
		_, _ = d.Write(buf[:])
	}
	return fmt.Sprintf("program:%016x", d.Sum64())
}

// Stage returns the tree for a single-stage module, building it on first use.
func (c *Cache) Stage(words []uint32) (*reflection.Reflection, error) {
	sum := Sum(words)
	return c.load(stageKey(sum), func() (*reflection.Reflection, error) {
		return reflection.ParseWords(words)
	})
}

// Program returns the merged tree of the given stage modules. Each stage
// tree is cached too.
func (c *Cache) Program(stages ...[]uint32) (*reflection.Reflection, error) {
	sums := make([]uint64, len(stages))
	for i, words := range stages {
		sums[i] = Sum(words)
	}
	return c.load(programKey(sums), func() (*reflection.Reflection, error) {
		trees := make([]*reflection.Reflection, len(stages))
		for i, words := range stages {
			r, err := c.Stage(words)
			if err != nil {
				return nil, fmt.Errorf("stage %d: %w", i, err)
			}
			trees[i] = r
		}
		return reflection.Merge(trees...)
	})
}

func (c *Cache) load(key string, build func() (*reflection.Reflection, error)) (*reflection.Reflection, error) {
	if v, ok := c.trees.Get(key); ok {
		c.hits.Add(1)
		return v.(*reflection.Reflection), nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// A build that finished between the miss and Do already stored it.
		if v, ok := c.trees.Peek(key); ok {
			return v, nil
		}
		c.builds.Add(1)
		r, err := build()
		if err != nil {
			c.logger.Debug("reflection failed", "key", key, "err", err)
			return nil, err
		}
		c.trees.Add(key, r)
		c.logger.Debug("reflected", "key", key, "stages", r.Stages(), "descriptors", r.DescriptorCount())
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight reflection", "key", key)
	}
	return v.(*reflection.Reflection), nil
}

// Len returns the number of cached trees.
func (c *Cache) Len() int { return c.trees.Len() }

// Purge drops every cached tree.
func (c *Cache) Purge() { c.trees.Purge() }

// Stats returns a snapshot of the traffic counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Builds: c.builds.Load()}
}
