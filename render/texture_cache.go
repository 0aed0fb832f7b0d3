// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/compositor"
)

// SizeBucket is a coarse texture-size class. Pooled textures are
// matched by bucket rather than exact size so a 180x40 request can
// reuse a 256x256 texture.
type SizeBucket uint8

const (
	BucketSmall SizeBucket = iota
	BucketMedium
	BucketLarge
	BucketOversized
)

// String returns the bucket name.
func (b SizeBucket) String() string {
	switch b {
	case BucketSmall:
		return "small"
	case BucketMedium:
		return "medium"
	case BucketLarge:
		return "large"
	case BucketOversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// Bucket thresholds and canonical allocation sizes. Selection is by
// the larger of width/height.
const (
	smallMax  = 256
	mediumMax = 512
	largeMax  = 1024

	// oversizedStep is the allocation granularity for textures beyond
	// the large bucket.
	oversizedStep = 128
)

// bucketFor returns the size class for a texture whose larger
// dimension is d.
func bucketFor(d int) SizeBucket {
	switch {
	case d <= smallMax:
		return BucketSmall
	case d <= mediumMax:
		return BucketMedium
	case d <= largeMax:
		return BucketLarge
	default:
		return BucketOversized
	}
}

// canonicalSize returns the allocation size for a miss in the given
// bucket. Oversized requests round each axis up to oversizedStep
// instead of a fixed square.
func canonicalSize(b SizeBucket, w, h int) (int, int) {
	switch b {
	case BucketSmall:
		return smallMax, smallMax
	case BucketMedium:
		return mediumMax, mediumMax
	case BucketLarge:
		return largeMax, largeMax
	default:
		return roundUp(w, oversizedStep), roundUp(h, oversizedStep)
	}
}

func roundUp(v, step int) int {
	if v <= 0 {
		return step
	}
	return (v + step - 1) / step * step
}

// defaultBucketCapacity is the maximum retained texture count per
// bucket. Release drops textures beyond the cap.
var defaultBucketCapacity = map[SizeBucket]int{
	BucketSmall:     16,
	BucketMedium:    8,
	BucketLarge:     4,
	BucketOversized: 2,
}

// CacheStats is a snapshot of pool accounting.
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	PooledCount int
	PooledBytes int64
	NamedCount  int
}

// namedEntry is one ID-keyed long-lived texture plus the generation
// it was stored at. The generation bumps on every replacement so
// consumers can detect a swap without comparing pointers.
type namedEntry struct {
	tex *LayerTexture
	gen uint64
}

// TextureCache pools reusable offscreen render targets, bucketed by
// size class. Textures handed out by Acquire are owned solely by the
// caller until returned via Release; pooled textures are owned by the
// cache. Named textures form a separate store and are never
// implicitly evicted.
//
// The cache is owned by a single FrameRenderer and is never accessed
// concurrently; the atomic counters exist so Stats can be read from
// monitoring code without racing the render thread.
type TextureCache struct {
	backend Backend
	diag    compositor.Diagnostics

	pool     map[SizeBucket][]*LayerTexture
	capacity map[SizeBucket]int

	named   map[uint64]namedEntry
	nextGen uint64

	hits        atomic.Uint64
	misses      atomic.Uint64
	pooledBytes atomic.Int64
}

// NewTextureCache creates an empty cache allocating through backend.
func NewTextureCache(backend Backend, diag compositor.Diagnostics) *TextureCache {
	capacity := make(map[SizeBucket]int, len(defaultBucketCapacity))
	for b, n := range defaultBucketCapacity {
		capacity[b] = n
	}
	return &TextureCache{
		backend:  backend,
		diag:     diag,
		pool:     make(map[SizeBucket][]*LayerTexture),
		capacity: capacity,
		named:    make(map[uint64]namedEntry),
	}
}

// SetBucketCapacity overrides the retained-count cap for one bucket.
func (c *TextureCache) SetBucketCapacity(b SizeBucket, n int) {
	if n >= 0 {
		c.capacity[b] = n
	}
}

// Acquire hands out a texture at least width x height with the
// requested depth attachment. The matching bucket is searched first,
// then larger buckets; a total miss allocates at the bucket's
// canonical size. The caller owns the returned texture until Release.
func (c *TextureCache) Acquire(width, height int, needsDepth bool) (*LayerTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrTextureUnavailable, width, height)
	}
	d := width
	if height > d {
		d = height
	}
	start := bucketFor(d)

	for b := start; b <= BucketOversized; b++ {
		list := c.pool[b]
		for i, t := range list {
			if t.W >= width && t.H >= height && t.HasDepth == needsDepth {
				list[i] = list[len(list)-1]
				c.pool[b] = list[:len(list)-1]
				c.hits.Add(1)
				c.pooledBytes.Add(-t.SizeBytes())
				return t, nil
			}
		}
	}

	c.misses.Add(1)
	w, h := canonicalSize(start, width, height)
	tex, err := c.backend.CreateLayerTexture(w, h, needsDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: allocating %dx%d: %v", ErrTextureUnavailable, w, h, err)
	}
	c.diag.Logger().Debug("texture cache miss",
		"requested_w", width, "requested_h", height,
		"allocated_w", w, "allocated_h", h,
		"bucket", start.String(), "depth", needsDepth)
	return tex, nil
}

// Release returns a texture to the pool. The bucket is chosen by the
// texture's actual size; if that bucket is at capacity the texture is
// destroyed instead of retained.
func (c *TextureCache) Release(t *LayerTexture) {
	if t == nil {
		return
	}
	d := t.W
	if t.H > d {
		d = t.H
	}
	b := bucketFor(d)
	if len(c.pool[b]) >= c.capacity[b] {
		c.diag.Logger().Debug("texture cache bucket full, dropping",
			"bucket", b.String(), "w", t.W, "h", t.H)
		c.backend.DestroyLayerTexture(t)
		return
	}
	c.pool[b] = append(c.pool[b], t)
	c.pooledBytes.Add(t.SizeBytes())
}

// Store records a long-lived texture under id, taking ownership. Any
// previous texture under the same id is destroyed. The returned
// generation identifies this revision of the slot.
func (c *TextureCache) Store(id uint64, t *LayerTexture) uint64 {
	if old, ok := c.named[id]; ok && old.tex != nil && old.tex != t {
		c.backend.DestroyLayerTexture(old.tex)
	}
	c.nextGen++
	c.named[id] = namedEntry{tex: t, gen: c.nextGen}
	return c.nextGen
}

// Get returns the named texture and its generation. A caller holding
// a stale generation knows the texture was replaced since it last
// looked.
func (c *TextureCache) Get(id uint64) (*LayerTexture, uint64, bool) {
	e, ok := c.named[id]
	if !ok {
		return nil, 0, false
	}
	return e.tex, e.gen, true
}

// Remove destroys the named texture and frees its slot.
func (c *TextureCache) Remove(id uint64) {
	if e, ok := c.named[id]; ok {
		if e.tex != nil {
			c.backend.DestroyLayerTexture(e.tex)
		}
		delete(c.named, id)
	}
}

// Stats returns a snapshot of the hit/miss counters and pool
// contents. The byte figure is maintained incrementally; call
// RecalculateBytes first if exactness matters after external
// mutation.
func (c *TextureCache) Stats() CacheStats {
	count := 0
	for _, list := range c.pool {
		count += len(list)
	}
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		PooledCount: count,
		PooledBytes: c.pooledBytes.Load(),
		NamedCount:  len(c.named),
	}
}

// RecalculateBytes rebuilds the pooled-byte estimate from the actual
// pool contents.
func (c *TextureCache) RecalculateBytes() {
	var bytes int64
	for _, list := range c.pool {
		for _, t := range list {
			bytes += t.SizeBytes()
		}
	}
	c.pooledBytes.Store(bytes)
}

// Purge destroys all pooled and named textures. Used at shutdown.
func (c *TextureCache) Purge() {
	for b, list := range c.pool {
		for _, t := range list {
			c.backend.DestroyLayerTexture(t)
		}
		c.pool[b] = nil
	}
	for id, e := range c.named {
		if e.tex != nil {
			c.backend.DestroyLayerTexture(e.tex)
		}
		delete(c.named, id)
	}
	c.pooledBytes.Store(0)
}
