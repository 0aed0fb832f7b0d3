// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"

	"github.com/gogpu/compositor"
)

// stubBackend records calls without rasterizing anything. Tests use
// it to observe pass ordering, texture lifecycles, and composite
// placement.
type stubBackend struct {
	created   int
	destroyed int

	drawCalls      []string
	primBatches    [][]compositor.Primitive
	primOffsets    []compositor.Point
	blurPasses     int
	composites     []stubComposite
	clearCount     int
	uploadedPixels map[*LayerTexture][]byte
}

type stubComposite struct {
	src      *LayerTexture
	srcRect  compositor.Rect
	dstRect  compositor.Rect
	scissor  compositor.Rect
	opacity  float32
	mode     compositor.BlendMode
}

func newStubBackend() *stubBackend {
	return &stubBackend{uploadedPixels: make(map[*LayerTexture][]byte)}
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Capabilities() DeviceCapabilities {
	return DeviceCapabilities{MaxTextureSize: 8192, MaxBufferSize: 1 << 28}
}

func (s *stubBackend) CreateLayerTexture(w, h int, withDepth bool) (*LayerTexture, error) {
	s.created++
	return &LayerTexture{W: w, H: h, HasDepth: withDepth}, nil
}

func (s *stubBackend) DestroyLayerTexture(t *LayerTexture) {
	s.destroyed++
}

func (s *stubBackend) UploadPixels(t *LayerTexture, pixels []byte, w, h int) error {
	s.uploadedPixels[t] = pixels
	return nil
}

func (s *stubBackend) Clear(dst Surface, c compositor.Color) error {
	s.clearCount++
	return nil
}

func (s *stubBackend) DrawPrimitives(dst Surface, prims []compositor.Primitive, offset compositor.Point, viewport compositor.Rect) error {
	s.drawCalls = append(s.drawCalls, "primitives")
	batch := make([]compositor.Primitive, len(prims))
	copy(batch, prims)
	s.primBatches = append(s.primBatches, batch)
	s.primOffsets = append(s.primOffsets, offset)
	return nil
}

func (s *stubBackend) DrawLines(dst Surface, lines []compositor.LineSegment, offset compositor.Point, viewport compositor.Rect) error {
	s.drawCalls = append(s.drawCalls, "lines")
	return nil
}

func (s *stubBackend) DrawPaths(dst Surface, batch *compositor.PathBatch, offset compositor.Point, viewport compositor.Rect) error {
	s.drawCalls = append(s.drawCalls, "paths")
	return nil
}

func (s *stubBackend) DrawGlass(dst Surface, panels []compositor.GlassPanel, viewport compositor.Rect) error {
	s.drawCalls = append(s.drawCalls, "glass")
	return nil
}

func (s *stubBackend) BlurPass(dst, src *LayerTexture, offset float32, preserveAlpha bool) error {
	s.blurPasses++
	return nil
}

func (s *stubBackend) ShadowComposite(dst, blurred, original *LayerTexture, effect compositor.DropShadowEffect) error {
	s.drawCalls = append(s.drawCalls, "shadow")
	return nil
}

func (s *stubBackend) GlowComposite(dst, blurred, original *LayerTexture, effect compositor.GlowEffect) error {
	s.drawCalls = append(s.drawCalls, "glow")
	return nil
}

func (s *stubBackend) ColorMatrixPass(dst, src *LayerTexture, matrix [20]float32) error {
	s.drawCalls = append(s.drawCalls, "colormatrix")
	return nil
}

func (s *stubBackend) Composite(dst Surface, src *LayerTexture, srcRect, dstRect, scissor compositor.Rect, opacity float32, mode compositor.BlendMode) error {
	s.drawCalls = append(s.drawCalls, "composite")
	s.composites = append(s.composites, stubComposite{
		src: src, srcRect: srcRect, dstRect: dstRect, scissor: scissor,
		opacity: opacity, mode: mode,
	})
	return nil
}

func (s *stubBackend) Flush(ctx context.Context) error { return nil }

var _ Backend = (*stubBackend)(nil)
