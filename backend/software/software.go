// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements the render.Backend contract on the CPU.
//
// It rasterizes the same primitive, line, and path records the GPU
// backend consumes, using signed-distance coverage for rounded shapes
// and premultiplied source-over blending. It exists for headless
// rendering and as the reference implementation the tests run
// against; output is meant to be visually equivalent to the GPU path,
// not bit-identical.
package software

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/gputypes"
)

// texture is a CPU texture: an RGBA image behind the render.Texture
// interface. Pixels are alpha-premultiplied, matching image.RGBA.
type texture struct {
	img *image.RGBA
}

func newTexture(w, h int) *texture {
	return &texture{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (t *texture) Width() uint32  { return uint32(t.img.Bounds().Dx()) }
func (t *texture) Height() uint32 { return uint32(t.img.Bounds().Dy()) }

func (t *texture) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

func (t *texture) CreateView() render.TextureView { return textureView{} }

func (t *texture) Destroy() { t.img = nil }

// textureView is a no-op view; the CPU path reads pixels directly.
type textureView struct{}

func (textureView) Destroy() {}

var (
	_ render.Texture     = (*texture)(nil)
	_ render.TextureView = textureView{}
)

// Backend is the CPU rasterizer.
type Backend struct {
	diag compositor.Diagnostics
}

// New creates a software backend.
func New() *Backend {
	return &Backend{}
}

// NewWithDiagnostics creates a software backend that logs through d.
func NewWithDiagnostics(d compositor.Diagnostics) *Backend {
	return &Backend{diag: d}
}

// Name identifies the backend.
func (b *Backend) Name() string { return "software" }

// Capabilities reports generous CPU-side limits; system memory is the
// real bound.
func (b *Backend) Capabilities() render.DeviceCapabilities {
	return render.DeviceCapabilities{
		MaxTextureSize: 16384,
		MaxBufferSize:  1 << 30,
		MaxBindGroups:  8,
		VendorName:     "cpu",
		DeviceName:     "software rasterizer",
	}
}

// CreateLayerTexture allocates a CPU texture of exactly the given
// size. The depth flag is recorded for pool matching; the CPU path
// does no depth testing.
func (b *Backend) CreateLayerTexture(width, height int, withDepth bool) (*render.LayerTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("software: invalid texture size %dx%d", width, height)
	}
	tex := newTexture(width, height)
	return &render.LayerTexture{
		Texture:  tex,
		View:     tex.CreateView(),
		W:        width,
		H:        height,
		HasDepth: withDepth,
	}, nil
}

// DestroyLayerTexture releases the texture's pixel storage.
func (b *Backend) DestroyLayerTexture(t *render.LayerTexture) {
	if t != nil {
		t.Destroy()
	}
}

// UploadPixels writes tightly packed straight-alpha RGBA8 rows into
// the top-left corner of t, premultiplying on the way in.
func (b *Backend) UploadPixels(t *render.LayerTexture, pixels []byte, width, height int) error {
	img, err := layerImage(t)
	if err != nil {
		return err
	}
	if len(pixels) < width*height*4 {
		return fmt.Errorf("software: pixel payload %d bytes, want %d", len(pixels), width*height*4)
	}
	maxW := min(width, img.Bounds().Dx())
	maxH := min(height, img.Bounds().Dy())
	for y := 0; y < maxH; y++ {
		src := pixels[y*width*4:]
		for x := 0; x < maxW; x++ {
			r := src[x*4]
			g := src[x*4+1]
			bl := src[x*4+2]
			a := src[x*4+3]
			i := img.PixOffset(x, y)
			img.Pix[i] = mul8(r, a)
			img.Pix[i+1] = mul8(g, a)
			img.Pix[i+2] = mul8(bl, a)
			img.Pix[i+3] = a
		}
	}
	return nil
}

// Clear fills dst with c.
func (b *Backend) Clear(dst render.Surface, c compositor.Color) error {
	img, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	p := c.Premultiply()
	r8 := floatByte(p.R)
	g8 := floatByte(p.G)
	b8 := floatByte(p.B)
	a8 := floatByte(p.A)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r8
		img.Pix[i+1] = g8
		img.Pix[i+2] = b8
		img.Pix[i+3] = a8
	}
	return nil
}

// Flush is a no-op: CPU rasterization is synchronous.
func (b *Backend) Flush(ctx context.Context) error {
	return ctx.Err()
}

// layerImage unwraps the CPU pixels behind a layer texture.
func layerImage(t *render.LayerTexture) (*image.RGBA, error) {
	if t == nil {
		return nil, fmt.Errorf("software: nil layer texture")
	}
	tex, ok := t.Texture.(*texture)
	if !ok || tex.img == nil {
		return nil, fmt.Errorf("software: layer texture is not CPU-backed")
	}
	return tex.img, nil
}

// surfaceImage unwraps the CPU pixels behind any drawable surface.
func surfaceImage(dst render.Surface) (*image.RGBA, error) {
	switch d := dst.(type) {
	case *render.LayerTexture:
		return layerImage(d)
	case *render.PixmapTarget:
		return d.Image(), nil
	case *render.TextureTarget:
		return layerImage(d.Layer())
	default:
		return nil, fmt.Errorf("software: unsupported surface %T", dst)
	}
}

func mul8(v, a uint8) uint8 {
	return uint8((uint32(v)*uint32(a) + 127) / 255)
}

func floatByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

var _ render.Backend = (*Backend)(nil)
