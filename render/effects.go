// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/compositor"
)

// layerTextureGranularity rounds offscreen texture sizes to improve
// pool reuse across layers of similar size.
const layerTextureGranularity = 64

// maxBlurPasses caps the Kawase chain length; beyond this, larger
// per-pass offsets approximate the radius instead.
const maxBlurPasses = 6

// EffectLayer is one effect sub-tree discovered in a batch's
// layer-command log: the primitive range [Start, End) and the pushed
// configuration.
type EffectLayer struct {
	Start  int
	End    int
	Config compositor.LayerConfig
}

// LayerEffectProcessor isolates effect sub-trees, renders them to
// tight pooled textures, runs their effect chains, and composites the
// results back. It owns no textures across calls; everything it
// acquires is released before ProcessLayer returns.
type LayerEffectProcessor struct {
	backend Backend
	cache   *TextureCache
	diag    compositor.Diagnostics

	// LastExpansion and LastTextureRect record the most recent layer's
	// computed margin and working-texture placement, for tests and
	// debug overlays.
	LastExpansion   compositor.Expansion
	LastTextureRect compositor.Rect
}

// NewLayerEffectProcessor creates a processor drawing through backend
// and pooling through cache.
func NewLayerEffectProcessor(backend Backend, cache *TextureCache, diag compositor.Diagnostics) *LayerEffectProcessor {
	return &LayerEffectProcessor{backend: backend, cache: cache, diag: diag}
}

// DetectEffectLayers walks the layer-command log and returns the
// effect sub-trees, outermost first. A Push opens a region at its
// primitive index; the matching Pop closes it. Only regions whose
// configuration carries effects are returned, and regions nested
// inside another effect region are folded into the outer one — their
// primitives render as part of the outer layer's content.
func DetectEffectLayers(cmds []compositor.LayerCommand) []EffectLayer {
	type open struct {
		start int
		cfg   compositor.LayerConfig
	}
	var stack []open
	var found []EffectLayer

	for i := range cmds {
		cmd := &cmds[i]
		switch cmd.Kind {
		case compositor.PushLayer:
			stack = append(stack, open{start: cmd.PrimitiveIndex, cfg: cmd.Config})
		case compositor.PopLayer:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.cfg.HasEffects() {
				found = append(found, EffectLayer{Start: top.start, End: cmd.PrimitiveIndex, Config: top.cfg})
			}
		}
	}

	// Drop layers contained in another layer's range; the outer
	// render covers them.
	out := found[:0]
	for i, l := range found {
		contained := false
		for j, o := range found {
			if i == j {
				continue
			}
			if o.Start <= l.Start && l.End <= o.End && (o.Start != l.Start || o.End != l.End || j < i) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, l)
		}
	}
	return out
}

// Samples returns the sample commands from the log in order. Sampling
// is independent of push/pop nesting.
func Samples(cmds []compositor.LayerCommand) []compositor.LayerCommand {
	var out []compositor.LayerCommand
	for i := range cmds {
		if cmds[i].Kind == compositor.SampleLayer {
			out = append(out, cmds[i])
		}
	}
	return out
}

// tightBounds unions the screen-space bounds of the primitives in
// [start, end). The declared configuration size is ignored: primitives
// arrive already transformed, so their bounds are the truth.
func tightBounds(prims []compositor.Primitive, start, end int) compositor.Rect {
	var out compositor.Rect
	first := true
	for i := start; i < end && i < len(prims); i++ {
		b := prims[i].Bounds
		if b.Empty() {
			continue
		}
		if first {
			out = b
			first = false
			continue
		}
		out = out.Union(b)
	}
	if first {
		return compositor.Rect{}
	}
	return out
}

// layerClip finds the composite-time clip for an effect layer: the
// clip bounds of the first primitive in range that carries a
// non-trivial clip, or the no-clip sentinel.
func layerClip(prims []compositor.Primitive, start, end int) compositor.Rect {
	for i := start; i < end && i < len(prims); i++ {
		if prims[i].Clip != compositor.ClipNone {
			return prims[i].ClipBounds
		}
	}
	return compositor.NoClipBounds()
}

// ProcessLayer renders one effect layer offscreen, applies its effect
// chain, and composites the result into dst. Degenerate layers (no
// primitives, empty bounds, expanded region outside the viewport)
// are skipped silently.
func (p *LayerEffectProcessor) ProcessLayer(dst Surface, batch *compositor.Batch, layer EffectLayer, viewport compositor.Rect) error {
	if layer.End <= layer.Start {
		return nil
	}
	tight := tightBounds(batch.Primitives, layer.Start, layer.End)
	if tight.Empty() {
		return nil
	}

	exp := compositor.ChainExpansion(layer.Config.Effects())
	expanded := tight.Outset(exp.Left, exp.Top, exp.Right, exp.Bottom)
	if !expanded.Intersects(viewport) {
		return nil
	}

	texW := int(roundUpF(expanded.Width(), layerTextureGranularity))
	texH := int(roundUpF(expanded.Height(), layerTextureGranularity))
	p.LastExpansion = exp
	p.LastTextureRect = expanded

	content, err := p.cache.Acquire(texW, texH, false)
	if err != nil {
		return err
	}
	released := false
	defer func() {
		if !released {
			p.cache.Release(content)
		}
	}()

	if err := p.backend.Clear(content, compositor.Transparent); err != nil {
		return err
	}

	// Content starts at the expansion margin, not at its screen
	// position: the offscreen target stays tight instead of
	// viewport-sized.
	offset := compositor.Pt(exp.Left-tight.MinX, exp.Top-tight.MinY)
	texViewport := compositor.NewRect(0, 0, float32(content.W), float32(content.H))
	if err := p.backend.DrawPrimitives(content, batch.Primitives[layer.Start:layer.End], offset, texViewport); err != nil {
		return err
	}

	cur := content
	for _, e := range layer.Config.Effects() {
		next, err := p.applyEffect(cur, e)
		if err != nil {
			if cur != content {
				p.cache.Release(cur)
			}
			return err
		}
		if next != cur {
			if cur == content {
				released = true
			}
			p.cache.Release(cur)
			cur = next
		}
	}
	if cur != content {
		released = true
		defer p.cache.Release(cur)
	}

	srcRect := compositor.NewRect(0, 0, expanded.Width(), expanded.Height())
	scissor := expanded.Intersect(viewport).Intersect(layerClip(batch.Primitives, layer.Start, layer.End))
	if scissor.Empty() {
		return nil
	}
	return p.backend.Composite(dst, cur, srcRect, expanded, scissor,
		layer.Config.Opacity(), layer.Config.BlendMode())
}

// applyEffect runs one effect step, returning a texture holding the
// result. The input texture is never written to; the caller decides
// when to release it. The returned texture may be the input when the
// effect is a no-op.
func (p *LayerEffectProcessor) applyEffect(src *LayerTexture, e compositor.Effect) (*LayerTexture, error) {
	switch e := e.(type) {
	case compositor.BlurEffect:
		if e.Radius <= 0 {
			return src, nil
		}
		// Element blur softens alpha too, so edges feather out into
		// the expansion margin instead of staying hard.
		return p.runBlur(src, e.Radius, e.Quality, false)

	case compositor.DropShadowEffect:
		blurred, err := p.blurMask(src, e.Blur)
		if err != nil {
			return nil, err
		}
		out, err := p.cache.Acquire(src.W, src.H, false)
		if err != nil {
			p.cache.Release(blurred)
			return nil, err
		}
		err = p.backend.ShadowComposite(out, blurred, src, e)
		p.cache.Release(blurred)
		if err != nil {
			p.cache.Release(out)
			return nil, err
		}
		return out, nil

	case compositor.GlowEffect:
		blurred, err := p.blurMask(src, e.Blur+e.Range)
		if err != nil {
			return nil, err
		}
		out, err := p.cache.Acquire(src.W, src.H, false)
		if err != nil {
			p.cache.Release(blurred)
			return nil, err
		}
		err = p.backend.GlowComposite(out, blurred, src, e)
		p.cache.Release(blurred)
		if err != nil {
			p.cache.Release(out)
			return nil, err
		}
		return out, nil

	case compositor.ColorMatrixEffect:
		out, err := p.cache.Acquire(src.W, src.H, false)
		if err != nil {
			return nil, err
		}
		if err := p.backend.ColorMatrixPass(out, src, e.Matrix); err != nil {
			p.cache.Release(out)
			return nil, err
		}
		return out, nil

	default:
		return nil, fmt.Errorf("render: unknown effect %T", e)
	}
}

// blurMask blurs both color and alpha, producing the soft silhouette
// shadow and glow composites consume.
func (p *LayerEffectProcessor) blurMask(src *LayerTexture, radius float32) (*LayerTexture, error) {
	if radius <= 0 {
		// The composite still needs its own mask texture; copy src.
		out, err := p.cache.Acquire(src.W, src.H, false)
		if err != nil {
			return nil, err
		}
		if err := p.backend.BlurPass(out, src, 0, false); err != nil {
			p.cache.Release(out)
			return nil, err
		}
		return out, nil
	}
	return p.runBlur(src, radius, 0, false)
}

// runBlur executes the Kawase chain: pass count scales with radius up
// to the cap, ping-ponging between two pooled textures. src is left
// untouched.
func (p *LayerEffectProcessor) runBlur(src *LayerTexture, radius, quality float32, preserveAlpha bool) (*LayerTexture, error) {
	passes := blurPassCount(radius, quality)
	offsets := kawaseOffsets(radius, passes)

	a, err := p.cache.Acquire(src.W, src.H, false)
	if err != nil {
		return nil, err
	}
	if err := p.backend.BlurPass(a, src, offsets[0], preserveAlpha); err != nil {
		p.cache.Release(a)
		return nil, err
	}
	if passes == 1 {
		return a, nil
	}

	b, err := p.cache.Acquire(src.W, src.H, false)
	if err != nil {
		p.cache.Release(a)
		return nil, err
	}
	cur, other := a, b
	for _, off := range offsets[1:] {
		if err := p.backend.BlurPass(other, cur, off, preserveAlpha); err != nil {
			p.cache.Release(a)
			p.cache.Release(b)
			return nil, err
		}
		cur, other = other, cur
	}
	p.cache.Release(other)
	return cur, nil
}

// blurPassCount maps radius and quality to a Kawase pass count in
// [1, maxBlurPasses]. Quality above 1 adds passes, below 1 removes
// them; zero means default.
func blurPassCount(radius, quality float32) int {
	passes := int(math32.Ceil(radius / 4))
	if passes < 1 {
		passes = 1
	}
	if quality > 0 {
		passes = int(math32.Ceil(float32(passes) * quality))
		if passes < 1 {
			passes = 1
		}
	}
	if passes > maxBlurPasses {
		passes = maxBlurPasses
	}
	return passes
}

// kawaseOffsets returns the per-pass sample offsets. The increasing
// sequence approximates a Gaussian of the requested radius once all
// passes compound.
func kawaseOffsets(radius float32, passes int) []float32 {
	out := make([]float32, passes)
	scale := radius / float32(2*passes)
	for i := range out {
		out[i] = (float32(i) + 0.5) * scale
	}
	return out
}

func roundUpF(v float32, step int) float32 {
	s := float32(step)
	return math32.Ceil(v/s) * s
}
