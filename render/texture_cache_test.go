// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/compositor"
)

func newTestCache() (*TextureCache, *stubBackend) {
	backend := newStubBackend()
	return NewTextureCache(backend, compositor.Diagnostics{}), backend
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		dim  int
		want SizeBucket
	}{
		{1, BucketSmall},
		{256, BucketSmall},
		{257, BucketMedium},
		{512, BucketMedium},
		{513, BucketLarge},
		{1024, BucketLarge},
		{1025, BucketOversized},
		{4000, BucketOversized},
	}
	for _, tt := range tests {
		if got := bucketFor(tt.dim); got != tt.want {
			t.Errorf("bucketFor(%d) = %v, want %v", tt.dim, got, tt.want)
		}
	}
}

func TestTextureCache_HitAccounting(t *testing.T) {
	cache, _ := newTestCache()

	tex, err := cache.Acquire(100, 100, false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if stats := cache.Stats(); stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("after first acquire: hits=%d misses=%d, want 0/1", stats.Hits, stats.Misses)
	}

	before := cache.Stats().PooledCount
	cache.Release(tex)
	if got := cache.Stats().PooledCount; got != before+1 {
		t.Errorf("PooledCount after release = %d, want %d", got, before+1)
	}

	again, err := cache.Acquire(100, 100, false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want exactly 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.PooledCount != before {
		t.Errorf("PooledCount = %d, want pre-acquire count %d", stats.PooledCount, before)
	}
	if again != tex {
		t.Error("second acquire returned a different texture, want the pooled one")
	}
}

func TestTextureCache_AcquireRemovesFromPool(t *testing.T) {
	cache, _ := newTestCache()
	tex, _ := cache.Acquire(64, 64, false)
	cache.Release(tex)

	a, _ := cache.Acquire(64, 64, false)
	b, _ := cache.Acquire(64, 64, false)
	if a == b {
		t.Error("two live acquires returned the same texture; pooled texture was aliased")
	}
}

func TestTextureCache_DepthFlagMustMatch(t *testing.T) {
	cache, _ := newTestCache()
	tex, _ := cache.Acquire(64, 64, true)
	if !tex.HasDepth {
		t.Fatal("Acquire(needsDepth=true) returned texture without depth")
	}
	cache.Release(tex)

	flat, _ := cache.Acquire(64, 64, false)
	if flat == tex {
		t.Error("depth texture reused for a no-depth request")
	}
	if s := cache.Stats(); s.Hits != 0 {
		t.Errorf("Hits = %d, want 0 (depth mismatch is a miss)", s.Hits)
	}
}

func TestTextureCache_CanonicalAllocation(t *testing.T) {
	cache, _ := newTestCache()
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{10, 10, 256, 256},
		{300, 40, 512, 512},
		{513, 513, 1024, 1024},
		{1100, 600, 1152, 640},
	}
	for _, tt := range tests {
		tex, err := cache.Acquire(tt.w, tt.h, false)
		if err != nil {
			t.Fatalf("Acquire(%d, %d) error = %v", tt.w, tt.h, err)
		}
		if tex.W != tt.wantW || tex.H != tt.wantH {
			t.Errorf("Acquire(%d, %d) allocated %dx%d, want %dx%d",
				tt.w, tt.h, tex.W, tex.H, tt.wantW, tt.wantH)
		}
	}
}

func TestTextureCache_LargerBucketSatisfiesRequest(t *testing.T) {
	cache, _ := newTestCache()
	big, _ := cache.Acquire(600, 600, false) // large bucket, 1024x1024
	cache.Release(big)

	small, err := cache.Acquire(50, 50, false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if small != big {
		t.Error("small request did not reuse pooled larger texture")
	}
	if s := cache.Stats(); s.Hits != 1 {
		t.Errorf("Hits = %d, want 1", s.Hits)
	}
}

func TestTextureCache_BucketCapacityEviction(t *testing.T) {
	cache, backend := newTestCache()
	cache.SetBucketCapacity(BucketSmall, 3)

	var textures []*LayerTexture
	for i := 0; i < 6; i++ {
		tex, err := backend.CreateLayerTexture(256, 256, false)
		if err != nil {
			t.Fatalf("CreateLayerTexture() error = %v", err)
		}
		textures = append(textures, tex)
	}
	for _, tex := range textures {
		cache.Release(tex)
	}

	if got := cache.Stats().PooledCount; got != 3 {
		t.Errorf("PooledCount = %d, want capped at 3", got)
	}
	if backend.destroyed != 3 {
		t.Errorf("destroyed = %d, want 3 (excess textures not retained)", backend.destroyed)
	}

	// The retained instances are the first three released.
	seen := make(map[*LayerTexture]bool)
	for i := 0; i < 3; i++ {
		tex, err := cache.Acquire(256, 256, false)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		seen[tex] = true
	}
	for _, tex := range textures[:3] {
		if !seen[tex] {
			t.Errorf("retained set missing texture %p released within capacity", tex)
		}
	}
}

func TestTextureCache_NamedStoreSeparateFromPool(t *testing.T) {
	cache, backend := newTestCache()
	tex, _ := backend.CreateLayerTexture(128, 128, false)
	cache.Store(7, tex)

	if got := cache.Stats().PooledCount; got != 0 {
		t.Errorf("PooledCount = %d, want 0 (named textures are not pooled)", got)
	}
	got, _, ok := cache.Get(7)
	if !ok || got != tex {
		t.Errorf("Get(7) = %v, %v, want stored texture", got, ok)
	}

	// Pool churn must never evict named textures.
	for i := 0; i < 40; i++ {
		p, _ := cache.Acquire(64, 64, false)
		cache.Release(p)
	}
	if _, _, ok := cache.Get(7); !ok {
		t.Error("named texture evicted by pool churn")
	}

	cache.Remove(7)
	if _, _, ok := cache.Get(7); ok {
		t.Error("Get(7) found texture after Remove")
	}
	if backend.destroyed == 0 {
		t.Error("Remove did not destroy the named texture")
	}
}

func TestTextureCache_StoreBumpsGeneration(t *testing.T) {
	cache, backend := newTestCache()
	first, _ := backend.CreateLayerTexture(64, 64, false)
	second, _ := backend.CreateLayerTexture(64, 64, false)

	gen1 := cache.Store(3, first)
	_, got1, _ := cache.Get(3)
	if got1 != gen1 {
		t.Errorf("Get generation = %d, want %d", got1, gen1)
	}

	gen2 := cache.Store(3, second)
	if gen2 == gen1 {
		t.Error("replacement did not bump the generation")
	}
	if backend.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1 (replaced texture destroyed)", backend.destroyed)
	}
}

func TestTextureCache_PooledBytes(t *testing.T) {
	cache, _ := newTestCache()
	tex, _ := cache.Acquire(100, 100, false) // allocates 256x256
	cache.Release(tex)

	want := int64(256 * 256 * 4)
	if got := cache.Stats().PooledBytes; got != want {
		t.Errorf("PooledBytes = %d, want %d", got, want)
	}

	cache.Acquire(100, 100, false)
	if got := cache.Stats().PooledBytes; got != 0 {
		t.Errorf("PooledBytes after re-acquire = %d, want 0", got)
	}

	cache.Release(tex)
	cache.RecalculateBytes()
	if got := cache.Stats().PooledBytes; got != want {
		t.Errorf("PooledBytes after refresh = %d, want %d", got, want)
	}
}

func TestTextureCache_Purge(t *testing.T) {
	cache, backend := newTestCache()
	a, _ := cache.Acquire(64, 64, false)
	cache.Release(a)
	named, _ := backend.CreateLayerTexture(32, 32, false)
	cache.Store(1, named)

	cache.Purge()
	s := cache.Stats()
	if s.PooledCount != 0 || s.NamedCount != 0 || s.PooledBytes != 0 {
		t.Errorf("Stats after Purge = %+v, want empty", s)
	}
	if backend.destroyed != 2 {
		t.Errorf("destroyed = %d, want 2", backend.destroyed)
	}
}
