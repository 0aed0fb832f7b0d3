// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/compositor"
)

func newTestProcessor() (*LayerEffectProcessor, *stubBackend) {
	backend := newStubBackend()
	cache := NewTextureCache(backend, compositor.Diagnostics{})
	return NewLayerEffectProcessor(backend, cache, compositor.Diagnostics{}), backend
}

func TestDetectEffectLayers_Basic(t *testing.T) {
	blur := compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 5})
	cmds := []compositor.LayerCommand{
		{Kind: compositor.PushLayer, PrimitiveIndex: 2, Config: blur},
		{Kind: compositor.PopLayer, PrimitiveIndex: 5},
	}
	layers := DetectEffectLayers(cmds)
	if len(layers) != 1 {
		t.Fatalf("len(layers) = %d, want 1", len(layers))
	}
	if layers[0].Start != 2 || layers[0].End != 5 {
		t.Errorf("range = [%d,%d), want [2,5)", layers[0].Start, layers[0].End)
	}
}

func TestDetectEffectLayers_EffectFreeLayersIgnored(t *testing.T) {
	cmds := []compositor.LayerCommand{
		{Kind: compositor.PushLayer, PrimitiveIndex: 0, Config: compositor.NewLayerConfig().WithOpacity(0.5)},
		{Kind: compositor.PopLayer, PrimitiveIndex: 3},
	}
	if layers := DetectEffectLayers(cmds); len(layers) != 0 {
		t.Errorf("len(layers) = %d, want 0", len(layers))
	}
}

func TestDetectEffectLayers_UnmatchedPopIgnored(t *testing.T) {
	cmds := []compositor.LayerCommand{
		{Kind: compositor.PopLayer, PrimitiveIndex: 0},
	}
	if layers := DetectEffectLayers(cmds); len(layers) != 0 {
		t.Errorf("len(layers) = %d, want 0", len(layers))
	}
}

func TestDetectEffectLayers_NestedFoldsIntoOuter(t *testing.T) {
	blur := compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 3})
	cmds := []compositor.LayerCommand{
		{Kind: compositor.PushLayer, PrimitiveIndex: 0, Config: blur},
		{Kind: compositor.PushLayer, PrimitiveIndex: 1, Config: blur},
		{Kind: compositor.PopLayer, PrimitiveIndex: 2},
		{Kind: compositor.PopLayer, PrimitiveIndex: 4},
	}
	layers := DetectEffectLayers(cmds)
	if len(layers) != 1 {
		t.Fatalf("len(layers) = %d, want 1 (inner folded)", len(layers))
	}
	if layers[0].Start != 0 || layers[0].End != 4 {
		t.Errorf("range = [%d,%d), want [0,4)", layers[0].Start, layers[0].End)
	}
}

func TestDetectEffectLayers_SiblingsBothKept(t *testing.T) {
	blur := compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 3})
	cmds := []compositor.LayerCommand{
		{Kind: compositor.PushLayer, PrimitiveIndex: 0, Config: blur},
		{Kind: compositor.PopLayer, PrimitiveIndex: 2},
		{Kind: compositor.PushLayer, PrimitiveIndex: 2, Config: blur},
		{Kind: compositor.PopLayer, PrimitiveIndex: 5},
	}
	if layers := DetectEffectLayers(cmds); len(layers) != 2 {
		t.Errorf("len(layers) = %d, want 2", len(layers))
	}
}

func TestProcessLayer_ExpansionAndOffset(t *testing.T) {
	p, backend := newTestProcessor()

	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{
		Bounds: compositor.NewRect(100, 100, 50, 50),
		Color:  compositor.RGBA(1, 0, 0, 1),
	})
	layer := EffectLayer{
		Start:  0,
		End:    1,
		Config: compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 10}),
	}

	target := NewPixmapTarget(800, 600)
	viewport := compositor.NewRect(0, 0, 800, 600)
	if err := p.ProcessLayer(target, batch, layer, viewport); err != nil {
		t.Fatalf("ProcessLayer() error = %v", err)
	}

	// Blur radius 10 expands 20px on every side of the tight bounds
	// (100,100,50,50): the working region must cover (80,80,90,90).
	wantRegion := compositor.NewRect(80, 80, 90, 90)
	if p.LastTextureRect != wantRegion {
		t.Errorf("working region = %+v, want %+v", p.LastTextureRect, wantRegion)
	}
	if p.LastExpansion != (compositor.Expansion{Left: 20, Top: 20, Right: 20, Bottom: 20}) {
		t.Errorf("expansion = %+v, want 20 on all sides", p.LastExpansion)
	}

	// Offscreen content is offset so it starts at the expansion
	// margin rather than its screen position.
	if len(backend.primOffsets) == 0 {
		t.Fatal("no offscreen primitive draw recorded")
	}
	wantOffset := compositor.Pt(20-100, 20-100)
	if backend.primOffsets[0] != wantOffset {
		t.Errorf("offscreen offset = %+v, want %+v", backend.primOffsets[0], wantOffset)
	}

	// The composite lands at the expanded position: offset from tight
	// bounds by exactly the expansion.
	if len(backend.composites) != 1 {
		t.Fatalf("composites = %d, want 1", len(backend.composites))
	}
	comp := backend.composites[0]
	if comp.dstRect != wantRegion {
		t.Errorf("composite dstRect = %+v, want %+v", comp.dstRect, wantRegion)
	}
	if comp.srcRect != compositor.NewRect(0, 0, 90, 90) {
		t.Errorf("composite srcRect = %+v, want (0,0,90,90)", comp.srcRect)
	}

	// Working texture is rounded up for pool reuse but never smaller
	// than the expanded region.
	if comp.src.W < 90 || comp.src.H < 90 {
		t.Errorf("working texture = %dx%d, want at least 90x90", comp.src.W, comp.src.H)
	}
}

func TestProcessLayer_AllTexturesReleased(t *testing.T) {
	p, _ := newTestProcessor()

	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{
		Bounds: compositor.NewRect(10, 10, 40, 40),
		Color:  compositor.RGBA(0, 1, 0, 1),
	})
	layer := EffectLayer{
		Start: 0,
		End:   1,
		Config: compositor.NewLayerConfig().
			WithEffect(compositor.BlurEffect{Radius: 6}).
			WithEffect(compositor.DropShadowEffect{OffsetX: 2, OffsetY: 2, Blur: 3, Color: compositor.RGBA(0, 0, 0, 0.5)}).
			WithEffect(compositor.ColorMatrixEffect{}),
	}

	target := NewPixmapTarget(200, 200)
	if err := p.ProcessLayer(target, batch, layer, compositor.NewRect(0, 0, 200, 200)); err != nil {
		t.Fatalf("ProcessLayer() error = %v", err)
	}

	// Every acquire must be matched by a release: each texture the pool
	// created (a miss) ends up pooled or destroyed, nothing stays
	// checked out across layers. Hits re-hand-out pooled textures and
	// create nothing.
	stats := p.cache.Stats()
	if int(stats.Misses) != stats.PooledCount+p.backend.(*stubBackend).destroyed {
		t.Errorf("created %d textures, pooled %d + destroyed %d; leak suspected",
			stats.Misses, stats.PooledCount, p.backend.(*stubBackend).destroyed)
	}
}

func TestProcessLayer_SkipsDegenerate(t *testing.T) {
	p, backend := newTestProcessor()
	target := NewPixmapTarget(100, 100)
	viewport := compositor.NewRect(0, 0, 100, 100)
	blur := compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 5})

	// Empty range.
	if err := p.ProcessLayer(target, compositor.NewBatch(), EffectLayer{Start: 3, End: 3, Config: blur}, viewport); err != nil {
		t.Errorf("empty range error = %v, want nil", err)
	}

	// Zero-size content.
	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(10, 10, 0, 0)})
	if err := p.ProcessLayer(target, batch, EffectLayer{Start: 0, End: 1, Config: blur}, viewport); err != nil {
		t.Errorf("zero-size layer error = %v, want nil", err)
	}

	// Fully outside the viewport.
	far := compositor.NewBatch()
	far.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(5000, 5000, 40, 40)})
	if err := p.ProcessLayer(target, far, EffectLayer{Start: 0, End: 1, Config: blur}, viewport); err != nil {
		t.Errorf("offscreen layer error = %v, want nil", err)
	}

	if len(backend.composites) != 0 {
		t.Errorf("composites = %d, want 0 (degenerate layers skipped)", len(backend.composites))
	}
}

func TestProcessLayer_OpacityAndBlendForwarded(t *testing.T) {
	p, backend := newTestProcessor()
	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(10, 10, 20, 20)})
	layer := EffectLayer{
		Start: 0, End: 1,
		Config: compositor.NewLayerConfig().
			WithEffect(compositor.ColorMatrixEffect{}).
			WithOpacity(0.5).
			WithBlendMode(compositor.BlendAdditive),
	}
	target := NewPixmapTarget(100, 100)
	if err := p.ProcessLayer(target, batch, layer, compositor.NewRect(0, 0, 100, 100)); err != nil {
		t.Fatalf("ProcessLayer() error = %v", err)
	}
	if len(backend.composites) != 1 {
		t.Fatalf("composites = %d, want 1", len(backend.composites))
	}
	comp := backend.composites[0]
	if comp.opacity != 0.5 {
		t.Errorf("opacity = %v, want 0.5", comp.opacity)
	}
	if comp.mode != compositor.BlendAdditive {
		t.Errorf("mode = %v, want additive", comp.mode)
	}
}

func TestProcessLayer_ScissorClampedToViewport(t *testing.T) {
	p, backend := newTestProcessor()
	batch := compositor.NewBatch()
	// Content hugging the viewport edge: expansion extends past it.
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(0, 0, 30, 30)})
	layer := EffectLayer{
		Start: 0, End: 1,
		Config: compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 8}),
	}
	target := NewPixmapTarget(100, 100)
	viewport := compositor.NewRect(0, 0, 100, 100)
	if err := p.ProcessLayer(target, batch, layer, viewport); err != nil {
		t.Fatalf("ProcessLayer() error = %v", err)
	}
	comp := backend.composites[0]
	if comp.scissor.MinX < 0 || comp.scissor.MinY < 0 {
		t.Errorf("scissor = %+v extends past the viewport origin", comp.scissor)
	}
}

func TestBlurPassCount(t *testing.T) {
	tests := []struct {
		radius, quality float32
		want            int
	}{
		{1, 0, 1},
		{4, 0, 1},
		{8, 0, 2},
		{10, 0, 3},
		{100, 0, maxBlurPasses},
		{8, 2, 4},
		{8, 0.5, 1},
	}
	for _, tt := range tests {
		if got := blurPassCount(tt.radius, tt.quality); got != tt.want {
			t.Errorf("blurPassCount(%v, %v) = %d, want %d", tt.radius, tt.quality, got, tt.want)
		}
	}
}

func TestRunBlur_PingPong(t *testing.T) {
	p, backend := newTestProcessor()
	src, err := p.cache.Acquire(128, 128, false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	out, err := p.runBlur(src, 10, 0, true)
	if err != nil {
		t.Fatalf("runBlur() error = %v", err)
	}
	if out == src {
		t.Error("runBlur returned the source texture; source must stay untouched")
	}
	if backend.blurPasses != 3 {
		t.Errorf("blur passes = %d, want 3 for radius 10", backend.blurPasses)
	}
	p.cache.Release(out)
	p.cache.Release(src)
}
