// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"

	"github.com/gogpu/compositor"
)

// LayerTexture is one owned offscreen render target: a texture, its
// view, an optional depth attachment, and the recorded pixel size.
// A layer texture is exclusively owned by whichever component holds
// it at a time — the TextureCache when pooled, the effect processor
// or frame renderer while in use. It is never aliased.
type LayerTexture struct {
	Texture Texture
	View    TextureView
	Depth   Texture

	W, H     int
	HasDepth bool
}

// Width returns the pixel width.
func (t *LayerTexture) Width() int { return t.W }

// Height returns the pixel height.
func (t *LayerTexture) Height() int { return t.H }

// SizeBytes estimates the GPU memory held by the texture, assuming
// 4 bytes per pixel plus the same again for a depth attachment.
func (t *LayerTexture) SizeBytes() int64 {
	bytes := int64(t.W) * int64(t.H) * 4
	if t.HasDepth {
		bytes *= 2
	}
	return bytes
}

// Destroy releases the texture, view, and depth attachment.
func (t *LayerTexture) Destroy() {
	if t.View != nil {
		t.View.Destroy()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Destroy()
		t.Texture = nil
	}
	if t.Depth != nil {
		t.Depth.Destroy()
		t.Depth = nil
	}
}

// Surface is anything a render pass can draw into: the frame's render
// target or a pooled layer texture. Backends type-assert to their own
// concrete target and texture types.
type Surface interface {
	// Width returns the drawable width in pixels.
	Width() int

	// Height returns the drawable height in pixels.
	Height() int
}

var (
	_ Surface = (*LayerTexture)(nil)
	_ Surface = (*PixmapTarget)(nil)
	_ Surface = (*TextureTarget)(nil)
	_ Surface = (*SurfaceTarget)(nil)
)

// Backend executes render passes. It is the single seam between the
// frame orchestration in this package and actual rasterization;
// backend/software implements it on the CPU and backend/wgpu on the
// GPU.
//
// All methods are called sequentially from the rendering thread.
// Draw positions are screen-space; offset shifts geometry (including
// its baked clip bounds) before rasterization, which is how layer
// content is relocated into tight offscreen textures.
type Backend interface {
	// Name identifies the backend for diagnostics.
	Name() string

	// Capabilities reports device limits used to clamp buffer
	// capacities.
	Capabilities() DeviceCapabilities

	// CreateLayerTexture allocates an offscreen texture of exactly the
	// given pixel size.
	CreateLayerTexture(width, height int, withDepth bool) (*LayerTexture, error)

	// DestroyLayerTexture releases a texture that will not return to
	// any pool.
	DestroyLayerTexture(t *LayerTexture)

	// UploadPixels writes tightly packed RGBA8 rows into the top-left
	// corner of t.
	UploadPixels(t *LayerTexture, pixels []byte, width, height int) error

	// Clear fills dst with c, replacing existing content.
	Clear(dst Surface, c compositor.Color) error

	// DrawPrimitives rasterizes filled primitives into dst. Bounds and
	// clip bounds are shifted by offset first; fragments outside
	// viewport are discarded.
	DrawPrimitives(dst Surface, prims []compositor.Primitive, offset compositor.Point, viewport compositor.Rect) error

	// DrawLines rasterizes polyline segments into dst.
	DrawLines(dst Surface, lines []compositor.LineSegment, offset compositor.Point, viewport compositor.Rect) error

	// DrawPaths rasterizes tessellated path geometry into dst, one
	// draw per clip run.
	DrawPaths(dst Surface, batch *compositor.PathBatch, offset compositor.Point, viewport compositor.Rect) error

	// DrawGlass renders background-blur panels over the content
	// already in dst.
	DrawGlass(dst Surface, panels []compositor.GlassPanel, viewport compositor.Rect) error

	// BlurPass runs one Kawase box-blur step from src into dst with
	// the given sample offset. When preserveAlpha is set only the
	// color channels blur; alpha is copied from src.
	BlurPass(dst, src *LayerTexture, offset float32, preserveAlpha bool) error

	// ShadowComposite combines a blurred silhouette with the original
	// content: the tinted, offset shadow behind, the original on top.
	ShadowComposite(dst, blurred, original *LayerTexture, effect compositor.DropShadowEffect) error

	// GlowComposite combines a blurred halo mask with the original
	// content: the tinted glow behind, the original on top.
	GlowComposite(dst, blurred, original *LayerTexture, effect compositor.GlowEffect) error

	// ColorMatrixPass applies a 4x5 affine color transform from src
	// into dst.
	ColorMatrixPass(dst, src *LayerTexture, matrix [20]float32) error

	// Composite blends the srcRect region of src into the dstRect
	// region of dst using premultiplied alpha, scaled by opacity and
	// combined with mode. Output is restricted to the scissor
	// rectangle.
	Composite(dst Surface, src *LayerTexture, srcRect, dstRect, scissor compositor.Rect, opacity float32, mode compositor.BlendMode) error

	// Flush blocks until all submitted work completes. This is the
	// only blocking call in the render path; it is used at cleanup,
	// never mid-frame. The context bounds the wait.
	Flush(ctx context.Context) error
}
