// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/render"
)

// targetRef resolves a render.Surface to the HAL view a pass draws
// into. Pixmap targets draw into a mirror texture and owe a readback,
// settled by finish.
type targetRef struct {
	backend *Backend
	view    hal.TextureView
	tex     hal.Texture
	w, h    uint32
	format  gputypes.TextureFormat

	// pixmap is non-nil when the pass rendered into a mirror and the
	// result must be copied back to CPU memory.
	pixmap *render.PixmapTarget
}

// finish settles the readback owed for a pixmap target. It forwards
// err unchanged when the pass itself failed.
func (r *targetRef) finish(err error) error {
	if err != nil || r.pixmap == nil {
		return err
	}
	return r.backend.readbackPixmap(r)
}

// targetFor resolves dst to a HAL texture view. For pixmap targets the
// current pixel content is uploaded to the mirror texture first, so a
// pass composes over whatever the pixmap already holds.
func (b *Backend) targetFor(dst render.Surface) (*targetRef, error) {
	switch t := dst.(type) {
	case *render.LayerTexture:
		view, err := halView(t.View)
		if err != nil {
			return nil, err
		}
		tex, err := halTexture(t.Texture)
		if err != nil {
			return nil, err
		}
		return &targetRef{backend: b, view: view, tex: tex, w: uint32(t.W), h: uint32(t.H), format: colorFormat}, nil

	case *render.TextureTarget:
		return b.targetFor(t.Layer())

	case *render.SurfaceTarget:
		view, err := halView(t.TextureView())
		if err != nil {
			return nil, err
		}
		return &targetRef{backend: b, view: view, w: uint32(t.Width()), h: uint32(t.Height()), format: t.Format()}, nil

	case *render.PixmapTarget:
		mirror, err := b.ensureMirror(t)
		if err != nil {
			return nil, err
		}
		if err := b.uploadPixmap(mirror, t); err != nil {
			return nil, err
		}
		view, err := halView(mirror.View)
		if err != nil {
			return nil, err
		}
		tex, err := halTexture(mirror.Texture)
		if err != nil {
			return nil, err
		}
		return &targetRef{
			backend: b, view: view, tex: tex,
			w: uint32(mirror.W), h: uint32(mirror.H),
			format: colorFormat,
			pixmap: t,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported surface %T", dst)
	}
}

// ensureMirror returns the offscreen texture backing a pixmap target,
// recreating it when the target was resized.
func (b *Backend) ensureMirror(t *render.PixmapTarget) (*render.LayerTexture, error) {
	if mirror, ok := b.mirrors[t]; ok {
		if mirror.W == t.Width() && mirror.H == t.Height() {
			return mirror, nil
		}
		mirror.Destroy()
		delete(b.mirrors, t)
	}
	mirror, err := b.CreateLayerTexture(t.Width(), t.Height(), false)
	if err != nil {
		return nil, err
	}
	b.mirrors[t] = mirror
	return mirror, nil
}

// uploadPixmap copies the target's pixel rows into its mirror texture.
func (b *Backend) uploadPixmap(mirror *render.LayerTexture, t *render.PixmapTarget) error {
	w, h := t.Width(), t.Height()
	if w <= 0 || h <= 0 {
		return nil
	}
	img := t.Image()
	pixels := img.Pix
	if img.Stride != w*4 || img.Rect.Min.X != 0 || img.Rect.Min.Y != 0 {
		// Repack into tight rows; mirrors of wrapped sub-images are
		// rare enough that the copy does not matter.
		pixels = make([]byte, w*h*4)
		for y := 0; y < h; y++ {
			src := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
			copy(pixels[y*w*4:(y+1)*w*4], img.Pix[src:src+w*4])
		}
	}
	return b.UploadPixels(mirror, pixels, w, h)
}

// readbackPixmap copies the mirror texture back into the pixmap's
// CPU rows through a staging buffer. Vulkan requires a layout
// transition before the texture can serve as a copy source, and
// 256-byte row alignment in the staging buffer.
func (b *Backend) readbackPixmap(r *targetRef) error {
	w, h := r.w, r.h
	alignedBPR := (w*4 + 255) &^ 255
	bufSize := uint64(alignedBPR) * uint64(h)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pixmap_staging",
		Size:  bufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	err = b.encodeSubmit("pixmap_readback", func(enc hal.CommandEncoder) error {
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: r.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(r.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBPR, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: r.tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		return nil
	})
	if err != nil {
		return err
	}

	readback := make([]byte, bufSize)
	if err := b.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}

	img := r.pixmap.Image()
	rowBytes := int(w) * 4
	for y := 0; y < int(h); y++ {
		dst := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(img.Pix[dst:dst+rowBytes], readback[y*int(alignedBPR):y*int(alignedBPR)+rowBytes])
	}
	return nil
}
