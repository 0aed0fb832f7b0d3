// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// GrowthBuffer tracks the byte size of a GPU-side allocation that
// only ever grows. Backends pair one GrowthBuffer with each real GPU
// buffer: when Ensure reports growth, the backing allocation and any
// descriptor sets referencing it are rebuilt; otherwise the existing
// allocation is overwritten in place. Nothing shrinks between frames.
type GrowthBuffer struct {
	size       int
	generation uint64
}

// Ensure grows the tracked size to hold at least n bytes, rounding up
// to the next power of two. It reports whether a reallocation is
// needed; the generation advances on every growth so descriptor
// caches keyed on it invalidate.
func (b *GrowthBuffer) Ensure(n int) bool {
	if n <= b.size {
		return false
	}
	size := b.size
	if size == 0 {
		size = 256
	}
	for size < n {
		size *= 2
	}
	b.size = size
	b.generation++
	return true
}

// Size returns the current allocation size in bytes.
func (b *GrowthBuffer) Size() int { return b.size }

// Generation returns a counter that advances on every growth. A
// cached descriptor built at generation g is stale once Generation
// differs.
func (b *GrowthBuffer) Generation() uint64 { return b.generation }
