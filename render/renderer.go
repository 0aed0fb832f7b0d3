// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"

	"github.com/gogpu/compositor"
)

// FrameRenderer orchestrates one frame: buffer upload with overflow
// protection, fixed pass ordering, image operations, and delegation
// of effect sub-trees to the LayerEffectProcessor.
//
// Pass order: tessellated paths, then compact line segments, then
// filled primitives, then glass panels and effect-layer composites,
// then foreground primitives, then foreground image draws.
//
// A FrameRenderer is single-threaded: all batching, clip resolution,
// and pass recording happen sequentially on one goroutine. The only
// blocking call is Close's bounded device wait.
type FrameRenderer struct {
	backend Backend
	cache   *TextureCache
	effects *LayerEffectProcessor
	cfg     RendererConfig
	diag    compositor.Diagnostics
}

// NewFrameRenderer creates a renderer drawing through backend.
// Capacities in cfg are clamped to the backend's reported device
// limits. A nil backend returns ErrDeviceUnavailable.
func NewFrameRenderer(backend Backend, cfg RendererConfig) (*FrameRenderer, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrDeviceUnavailable)
	}
	cfg = cfg.clampTo(backend.Capabilities())
	diag := cfg.Diagnostics()
	cache := NewTextureCache(backend, diag)
	return &FrameRenderer{
		backend: backend,
		cache:   cache,
		effects: NewLayerEffectProcessor(backend, cache, diag),
		cfg:     cfg,
		diag:    diag,
	}, nil
}

// Cache exposes the texture pool, primarily for stats and tests.
func (r *FrameRenderer) Cache() *TextureCache { return r.cache }

// EffectProcessor exposes the layer-effect processor.
func (r *FrameRenderer) EffectProcessor() *LayerEffectProcessor { return r.effects }

// Render draws the batch to the target, clearing it first.
func (r *FrameRenderer) Render(target RenderTarget, batch *compositor.Batch) error {
	return r.render(target, batch, true)
}

// RenderOverlay draws the batch over the target's existing content.
func (r *FrameRenderer) RenderOverlay(target RenderTarget, batch *compositor.Batch) error {
	return r.render(target, batch, false)
}

func (r *FrameRenderer) render(target RenderTarget, batch *compositor.Batch, clear bool) error {
	viewport := compositor.NewRect(0, 0, float32(target.Width()), float32(target.Height()))
	if viewport.Empty() {
		return nil
	}
	if clear {
		if err := r.backend.Clear(target, compositor.Transparent); err != nil {
			return fmt.Errorf("clearing target: %w", err)
		}
	}

	if err := r.executeImageOps(batch); err != nil {
		return err
	}

	var layers []EffectLayer
	if batch.HasEffects() {
		layers = DetectEffectLayers(batch.LayerCommands)
	}

	// Paths first: path geometry sits behind everything batched after
	// it in the same frame.
	if err := r.drawPaths(target, batch, viewport); err != nil {
		return err
	}
	if err := r.drawLines(target, batch, viewport); err != nil {
		return err
	}
	if err := r.drawPrimitives(target, batch, layers, compositor.ZBackground, viewport); err != nil {
		return err
	}
	if err := r.drawGlass(target, batch, viewport); err != nil {
		return err
	}
	if err := r.drawImages(target, batch, viewport, false); err != nil {
		return err
	}
	if err := r.drawSamples(target, batch, viewport); err != nil {
		return err
	}
	for _, layer := range layers {
		if err := r.effects.ProcessLayer(target, batch, layer, viewport); err != nil {
			return fmt.Errorf("processing effect layer [%d,%d): %w", layer.Start, layer.End, err)
		}
	}
	if err := r.drawPrimitives(target, batch, layers, compositor.ZForeground, viewport); err != nil {
		return err
	}
	return r.drawImages(target, batch, viewport, true)
}

// drawPaths uploads and draws tessellated path geometry, truncated to
// the configured capacities.
func (r *FrameRenderer) drawPaths(target RenderTarget, batch *compositor.Batch, viewport compositor.Rect) error {
	if batch.Paths.Empty() {
		return nil
	}
	pb := &batch.Paths
	if len(pb.Vertices) > r.cfg.MaxPathVertices() || len(pb.Indices) > r.cfg.MaxPathIndices() {
		r.diag.Logger().Warn("path buffer capacity exceeded, truncating",
			"vertices", len(pb.Vertices), "max_vertices", r.cfg.MaxPathVertices(),
			"indices", len(pb.Indices), "max_indices", r.cfg.MaxPathIndices())
		pb = truncatePaths(pb, r.cfg.MaxPathVertices(), r.cfg.MaxPathIndices())
		if pb.Empty() {
			return nil
		}
	}
	if r.diag.TracePaths() {
		b := pb.Bounds()
		r.diag.Logger().Debug("path pass",
			"runs", len(pb.Runs), "indices", len(pb.Indices),
			"min_x", b.MinX, "min_y", b.MinY, "max_x", b.MaxX, "max_y", b.MaxY)
	}
	return r.backend.DrawPaths(target, pb, compositor.Point{}, viewport)
}

// drawLines draws the compact line-segment pass.
func (r *FrameRenderer) drawLines(target RenderTarget, batch *compositor.Batch, viewport compositor.Rect) error {
	lines := batch.Lines
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > r.cfg.MaxLines() {
		r.diag.Logger().Warn("line buffer capacity exceeded, truncating",
			"count", len(lines), "capacity", r.cfg.MaxLines())
		lines = lines[:r.cfg.MaxLines()]
	}
	if r.diag.TraceLines() {
		step := r.diag.SampleInterval()
		for i := 0; i < len(lines); i += step {
			l := &lines[i]
			r.diag.Logger().Debug("line segment",
				"index", i, "x0", l.P0.X, "y0", l.P0.Y, "x1", l.P1.X, "y1", l.P1.Y,
				"width", l.Width)
		}
	}
	return r.backend.DrawLines(target, lines, compositor.Point{}, viewport)
}

// drawPrimitives draws the filled-primitive pass for one z-layer,
// excluding ranges owned by effect layers, truncated to capacity.
func (r *FrameRenderer) drawPrimitives(target RenderTarget, batch *compositor.Batch, layers []EffectLayer, z compositor.ZLayer, viewport compositor.Rect) error {
	if len(batch.Primitives) == 0 {
		return nil
	}
	prims := selectPrimitives(batch.Primitives, layers, z)
	if len(prims) == 0 {
		return nil
	}
	if len(prims) > r.cfg.MaxPrimitives() {
		r.diag.Logger().Warn("primitive buffer capacity exceeded, truncating",
			"count", len(prims), "capacity", r.cfg.MaxPrimitives(), "z", int(z))
		prims = prims[:r.cfg.MaxPrimitives()]
	}
	if r.diag.TraceWarmPrimitives() {
		for i := range prims {
			if compositor.IsWarmColor(prims[i].Color) {
				r.diag.Logger().Debug("warm primitive",
					"x", prims[i].Bounds.MinX, "y", prims[i].Bounds.MinY,
					"r", prims[i].Color.R, "g", prims[i].Color.G, "b", prims[i].Color.B)
			}
		}
	}
	return r.backend.DrawPrimitives(target, prims, compositor.Point{}, viewport)
}

// drawGlass renders background-blur panels over the background
// passes.
func (r *FrameRenderer) drawGlass(target RenderTarget, batch *compositor.Batch, viewport compositor.Rect) error {
	panels := batch.Glass
	if len(panels) == 0 {
		return nil
	}
	if len(panels) > r.cfg.MaxGlassPanels() {
		r.diag.Logger().Warn("glass buffer capacity exceeded, truncating",
			"count", len(panels), "capacity", r.cfg.MaxGlassPanels())
		panels = panels[:r.cfg.MaxGlassPanels()]
	}
	return r.backend.DrawGlass(target, panels, viewport)
}

// executeImageOps runs creates and writes in sequence order. Draws
// are deferred to their pass (background or foreground).
func (r *FrameRenderer) executeImageOps(batch *compositor.Batch) error {
	for i := range batch.ImageOps {
		op := &batch.ImageOps[i]
		switch op.Kind {
		case compositor.ImageOpCreate:
			if op.Width <= 0 || op.Height <= 0 {
				continue
			}
			tex, err := r.backend.CreateLayerTexture(op.Width, op.Height, false)
			if err != nil {
				return fmt.Errorf("creating image %d: %w", op.ID, err)
			}
			r.cache.Store(op.ID, tex)
		case compositor.ImageOpWrite:
			tex, _, ok := r.cache.Get(op.ID)
			if !ok {
				return fmt.Errorf("%w: write to unknown image %d", ErrTextureUnavailable, op.ID)
			}
			if err := r.backend.UploadPixels(tex, op.Pixels, op.Width, op.Height); err != nil {
				return fmt.Errorf("writing image %d: %w", op.ID, err)
			}
		}
	}
	return nil
}

// drawImages composites image draws for one pass.
func (r *FrameRenderer) drawImages(target RenderTarget, batch *compositor.Batch, viewport compositor.Rect, foreground bool) error {
	for i := range batch.ImageOps {
		op := &batch.ImageOps[i]
		if op.Kind != compositor.ImageOpDraw || op.Foreground != foreground {
			continue
		}
		tex, _, ok := r.cache.Get(op.ID)
		if !ok {
			r.diag.Logger().Warn("draw of unknown image, skipping", "id", op.ID)
			continue
		}
		if op.DstRect.Empty() || !op.DstRect.Intersects(viewport) {
			continue
		}
		if err := r.backend.Composite(target, tex, op.SrcRect, op.DstRect, viewport, 1, compositor.BlendNormal); err != nil {
			return fmt.Errorf("drawing image %d: %w", op.ID, err)
		}
	}
	return nil
}

// drawSamples composites stored named textures recorded by
// SampleLayer commands.
func (r *FrameRenderer) drawSamples(target RenderTarget, batch *compositor.Batch, viewport compositor.Rect) error {
	for i := range batch.LayerCommands {
		cmd := &batch.LayerCommands[i]
		if cmd.Kind != compositor.SampleLayer {
			continue
		}
		tex, _, ok := r.cache.Get(cmd.SampleID)
		if !ok {
			r.diag.Logger().Warn("sample of unknown layer, skipping", "id", cmd.SampleID)
			continue
		}
		if cmd.DstRect.Empty() || !cmd.DstRect.Intersects(viewport) {
			continue
		}
		if err := r.backend.Composite(target, tex, cmd.SrcRect, cmd.DstRect, viewport, 1, compositor.BlendNormal); err != nil {
			return fmt.Errorf("sampling layer %d: %w", cmd.SampleID, err)
		}
	}
	return nil
}

// Close waits for outstanding device work and destroys all pooled
// textures. The context bounds the wait.
func (r *FrameRenderer) Close(ctx context.Context) error {
	err := r.backend.Flush(ctx)
	r.cache.Purge()
	return err
}

// selectPrimitives returns the primitives of one z-layer whose
// indices fall outside every effect-layer range.
func selectPrimitives(prims []compositor.Primitive, layers []EffectLayer, z compositor.ZLayer) []compositor.Primitive {
	if len(layers) == 0 {
		// Fast path: filter by z only. Background batches with no
		// foreground content pass through without copying.
		allMatch := true
		for i := range prims {
			if prims[i].Z != z {
				allMatch = false
				break
			}
		}
		if allMatch {
			if z == compositor.ZBackground {
				return prims
			}
		}
		var out []compositor.Primitive
		for i := range prims {
			if prims[i].Z == z {
				out = append(out, prims[i])
			}
		}
		return out
	}

	covered := func(i int) bool {
		for _, l := range layers {
			if i >= l.Start && i < l.End {
				return true
			}
		}
		return false
	}
	var out []compositor.Primitive
	for i := range prims {
		if prims[i].Z == z && !covered(i) {
			out = append(out, prims[i])
		}
	}
	return out
}

// truncatePaths clips a path batch to the vertex and index caps,
// dropping runs that no longer fit entirely.
func truncatePaths(pb *compositor.PathBatch, maxVertices, maxIndices int) *compositor.PathBatch {
	out := &compositor.PathBatch{
		Vertices: pb.Vertices,
		Indices:  pb.Indices,
	}
	if len(out.Vertices) > maxVertices {
		out.Vertices = out.Vertices[:maxVertices]
	}
	if len(out.Indices) > maxIndices {
		out.Indices = out.Indices[:maxIndices]
	}
	for _, run := range pb.Runs {
		end := int(run.IndexOffset) + int(run.IndexCount)
		if end > len(out.Indices) {
			break
		}
		ok := true
		for i := run.IndexOffset; i < run.IndexOffset+run.IndexCount; i++ {
			if int(out.Indices[i]) >= len(out.Vertices) {
				ok = false
				break
			}
		}
		if !ok {
			break
		}
		out.Runs = append(out.Runs, run)
	}
	return out
}
