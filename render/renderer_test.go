// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/compositor"
)

// recordHandler captures warning messages for assertion.
type recordHandler struct {
	messages *[]string
}

func (h recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (h recordHandler) Handle(_ context.Context, rec slog.Record) error {
	*h.messages = append(*h.messages, rec.Message)
	return nil
}

func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordHandler) WithGroup(string) slog.Handler      { return h }

func newTestRenderer(t *testing.T, cfg RendererConfig) (*FrameRenderer, *stubBackend, *[]string) {
	t.Helper()
	var messages []string
	diag := compositor.NewDiagnostics(
		compositor.WithLogger(slog.New(recordHandler{messages: &messages})),
	)
	backend := newStubBackend()
	r, err := NewFrameRenderer(backend, cfg.WithDiagnostics(diag))
	if err != nil {
		t.Fatalf("NewFrameRenderer() error = %v", err)
	}
	return r, backend, &messages
}

func TestNewFrameRenderer_NilBackend(t *testing.T) {
	_, err := NewFrameRenderer(nil, DefaultRendererConfig())
	if err == nil {
		t.Fatal("NewFrameRenderer(nil) error = nil, want ErrDeviceUnavailable")
	}
}

func TestRender_PassOrder(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())

	batch := compositor.NewBatch()
	batch.Paths.Vertices = []compositor.PathVertex{
		{Pos: compositor.Pt(0, 0)}, {Pos: compositor.Pt(10, 0)}, {Pos: compositor.Pt(0, 10)},
	}
	batch.Paths.Indices = []uint32{0, 1, 2}
	batch.Paths.Runs = []compositor.PathRun{{IndexOffset: 0, IndexCount: 3}}
	batch.PushLine(compositor.LineSegment{P0: compositor.Pt(0, 0), P1: compositor.Pt(5, 5), Width: 1})
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(0, 0, 10, 10)})
	fg := compositor.Primitive{Bounds: compositor.NewRect(5, 5, 10, 10)}
	fg.Z = compositor.ZForeground
	batch.PushPrimitive(fg)
	batch.PushGlass(compositor.GlassPanel{Bounds: compositor.NewRect(2, 2, 6, 6), BlurRadius: 3})

	target := NewPixmapTarget(100, 100)
	if err := r.Render(target, batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := []string{"paths", "lines", "primitives", "glass", "primitives"}
	if len(backend.drawCalls) != len(want) {
		t.Fatalf("drawCalls = %v, want %v", backend.drawCalls, want)
	}
	for i, call := range want {
		if backend.drawCalls[i] != call {
			t.Errorf("drawCalls[%d] = %q, want %q", i, backend.drawCalls[i], call)
		}
	}
	// Background pass carries the background primitive, foreground
	// pass the foreground one.
	if len(backend.primBatches[0]) != 1 || backend.primBatches[0][0].Z != compositor.ZBackground {
		t.Errorf("background pass = %d prims, want the 1 background primitive", len(backend.primBatches[0]))
	}
	if len(backend.primBatches[1]) != 1 || backend.primBatches[1][0].Z != compositor.ZForeground {
		t.Errorf("foreground pass = %d prims, want the 1 foreground primitive", len(backend.primBatches[1]))
	}
}

func TestRender_ClearsAndOverlayPreserves(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())
	target := NewPixmapTarget(10, 10)
	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(0, 0, 5, 5)})

	if err := r.Render(target, batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if backend.clearCount != 1 {
		t.Errorf("clearCount after Render = %d, want 1", backend.clearCount)
	}

	if err := r.RenderOverlay(target, batch); err != nil {
		t.Fatalf("RenderOverlay() error = %v", err)
	}
	if backend.clearCount != 1 {
		t.Errorf("clearCount after RenderOverlay = %d, want still 1 (content preserved)", backend.clearCount)
	}
}

func TestRender_PrimitiveTruncationWarns(t *testing.T) {
	r, backend, messages := newTestRenderer(t, DefaultRendererConfig().WithMaxPrimitives(4))

	batch := compositor.NewBatch()
	for i := 0; i < 10; i++ {
		batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(float32(i), 0, 5, 5)})
	}
	if err := r.Render(NewPixmapTarget(100, 100), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if len(backend.primBatches) != 1 || len(backend.primBatches[0]) != 4 {
		t.Fatalf("uploaded %d primitives, want truncated to 4", len(backend.primBatches[0]))
	}
	foundWarn := false
	for _, m := range *messages {
		if strings.Contains(m, "primitive buffer capacity exceeded") {
			foundWarn = true
		}
	}
	if !foundWarn {
		t.Errorf("messages = %v, want a primitive capacity warning", *messages)
	}
}

func TestRender_LineTruncationWarns(t *testing.T) {
	r, _, messages := newTestRenderer(t, DefaultRendererConfig().WithMaxLines(2))
	batch := compositor.NewBatch()
	for i := 0; i < 5; i++ {
		batch.PushLine(compositor.LineSegment{P0: compositor.Pt(0, float32(i)), P1: compositor.Pt(9, float32(i)), Width: 1})
	}
	if err := r.Render(NewPixmapTarget(100, 100), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	foundWarn := false
	for _, m := range *messages {
		if strings.Contains(m, "line buffer capacity exceeded") {
			foundWarn = true
		}
	}
	if !foundWarn {
		t.Errorf("messages = %v, want a line capacity warning", *messages)
	}
}

func TestRender_EffectRangeExcludedFromDirectPass(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())

	batch := compositor.NewBatch()
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(0, 0, 10, 10)})
	batch.PushLayer(compositor.NewLayerConfig().WithEffect(compositor.BlurEffect{Radius: 4}))
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(20, 20, 10, 10)})
	batch.PopLayer()
	batch.PushPrimitive(compositor.Primitive{Bounds: compositor.NewRect(40, 40, 10, 10)})

	if err := r.Render(NewPixmapTarget(100, 100), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// First primitive draw is the direct background pass; it must
	// exclude the layered primitive at index 1.
	direct := backend.primBatches[0]
	if len(direct) != 2 {
		t.Fatalf("direct pass = %d primitives, want 2 (layer range excluded)", len(direct))
	}
	for _, p := range direct {
		if p.Bounds.MinX == 20 {
			t.Error("direct pass contains the effect layer's primitive")
		}
	}
	// The layer itself renders offscreen and composites back once.
	found := false
	for _, call := range backend.drawCalls {
		if call == "composite" {
			found = true
		}
	}
	if !found {
		t.Error("no composite recorded for the effect layer")
	}
}

func TestRender_ImageOpsLifecycle(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())

	batch := compositor.NewBatch()
	pixels := make([]byte, 8*8*4)
	ops := []compositor.ImageOp{
		{Kind: compositor.ImageOpCreate, ID: 9, Order: 0, Width: 8, Height: 8},
		{Kind: compositor.ImageOpWrite, ID: 9, Order: 1, Pixels: pixels, Width: 8, Height: 8},
		{Kind: compositor.ImageOpDraw, ID: 9, Order: 2,
			SrcRect: compositor.NewRect(0, 0, 8, 8), DstRect: compositor.NewRect(10, 10, 16, 16)},
	}
	for _, op := range ops {
		if err := batch.PushImageOp(op); err != nil {
			t.Fatalf("PushImageOp() error = %v", err)
		}
	}

	if err := r.Render(NewPixmapTarget(100, 100), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	tex, _, ok := r.Cache().Get(9)
	if !ok {
		t.Fatal("image 9 not stored after create")
	}
	if got := backend.uploadedPixels[tex]; len(got) != len(pixels) {
		t.Errorf("uploaded %d bytes, want %d", len(got), len(pixels))
	}
	if len(backend.composites) != 1 {
		t.Fatalf("composites = %d, want 1 draw", len(backend.composites))
	}
	if backend.composites[0].dstRect != compositor.NewRect(10, 10, 16, 16) {
		t.Errorf("draw dstRect = %+v, want (10,10,16,16)", backend.composites[0].dstRect)
	}
}

func TestRender_SampleLayerComposites(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())

	stored, _ := backend.CreateLayerTexture(64, 64, false)
	r.Cache().Store(5, stored)

	batch := compositor.NewBatch()
	batch.SampleLayer(5, compositor.NewRect(0, 0, 64, 64), compositor.NewRect(20, 20, 32, 32))
	if err := r.Render(NewPixmapTarget(100, 100), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(backend.composites) != 1 {
		t.Fatalf("composites = %d, want 1", len(backend.composites))
	}
	if backend.composites[0].src != stored {
		t.Error("sample composited a different texture than the stored one")
	}
}

func TestRender_UnknownSampleSkipped(t *testing.T) {
	r, backend, messages := newTestRenderer(t, DefaultRendererConfig())
	batch := compositor.NewBatch()
	batch.SampleLayer(404, compositor.NewRect(0, 0, 8, 8), compositor.NewRect(0, 0, 8, 8))
	if err := r.Render(NewPixmapTarget(50, 50), batch); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(backend.composites) != 0 {
		t.Errorf("composites = %d, want 0", len(backend.composites))
	}
	if len(*messages) == 0 {
		t.Error("expected a warning for the unknown sample id")
	}
}

func TestClose_PurgesPool(t *testing.T) {
	r, backend, _ := newTestRenderer(t, DefaultRendererConfig())
	tex, err := r.Cache().Acquire(64, 64, false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	r.Cache().Release(tex)

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if backend.destroyed == 0 {
		t.Error("Close did not destroy pooled textures")
	}
}

func TestGrowthBuffer(t *testing.T) {
	var b GrowthBuffer
	if !b.Ensure(100) {
		t.Error("Ensure(100) = false on empty buffer, want growth")
	}
	if b.Size() < 100 {
		t.Errorf("Size() = %d, want >= 100", b.Size())
	}
	gen := b.Generation()

	if b.Ensure(50) {
		t.Error("Ensure(50) = true, want no growth within capacity")
	}
	if b.Generation() != gen {
		t.Error("generation advanced without growth")
	}

	if !b.Ensure(10000) {
		t.Error("Ensure(10000) = false, want growth")
	}
	if b.Generation() == gen {
		t.Error("generation did not advance on growth")
	}
	if b.Size() < 10000 {
		t.Errorf("Size() = %d, want >= 10000", b.Size())
	}
}

func TestRendererConfig_ClampToDeviceLimits(t *testing.T) {
	cfg := DefaultRendererConfig().WithMaxPrimitives(1 << 20)
	clamped := cfg.clampTo(DeviceCapabilities{MaxBufferSize: 1 << 20})
	if got := clamped.MaxPrimitives(); got != (1<<20)/primitiveStride {
		t.Errorf("MaxPrimitives() = %d, want %d", got, (1<<20)/primitiveStride)
	}
	// Zero limit leaves the config untouched.
	same := cfg.clampTo(DeviceCapabilities{})
	if same.MaxPrimitives() != cfg.MaxPrimitives() {
		t.Error("clampTo with no limit changed capacities")
	}
}
