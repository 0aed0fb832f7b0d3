// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// layerView unwraps a layer texture's HAL view.
func layerView(t *render.LayerTexture) (hal.TextureView, error) {
	if t == nil {
		return nil, fmt.Errorf("nil layer texture")
	}
	return halView(t.View)
}

// fullscreenPass runs one fullscreen-triangle effect pass into
// dstView.
func (b *Backend) fullscreenPass(label string, dstView hal.TextureView, pipeline hal.RenderPipeline, bindGroup hal.BindGroup) error {
	return b.encodeSubmit(label, func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: label,
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       dstView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{},
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
		return nil
	})
}

// texEffectPass binds one source texture plus a uniform block and
// runs a fullscreen pass into dst.
func (b *Backend) texEffectPass(label string, dst *render.LayerTexture, srcView hal.TextureView, uniform []byte, kind pipelineKind) error {
	dstView, err := layerView(dst)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(kind, compositor.BlendNormal, colorFormat)
	if err != nil {
		return err
	}
	uniformBuf, err := b.createAndUploadBuffer("compositor_effect_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(uniformBuf)

	bindGroup, err := b.texBindGroup(uniformBuf, uint64(len(uniform)), srcView)
	if err != nil {
		return err
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.fullscreenPass(label, dstView, pipeline, bindGroup)
}

// BlurPass runs one Kawase box-blur step from src into dst. A zero
// offset degenerates to a copy: all four taps land on the same texel.
func (b *Backend) BlurPass(dst, src *render.LayerTexture, offset float32, preserveAlpha bool) error {
	srcView, err := layerView(src)
	if err != nil {
		return err
	}
	preserve := float32(0)
	if preserveAlpha {
		preserve = 1
	}
	uniform := make([]byte, 16)
	putVec4(uniform, 0, 1/float32(max(src.W, 1)), 1/float32(max(src.H, 1)), max(offset, 0), preserve)
	return b.texEffectPass("blur", dst, srcView, uniform, pipeBlur)
}

// ShadowComposite combines a blurred silhouette with the original
// content: the tinted, offset shadow behind, the original on top.
func (b *Backend) ShadowComposite(dst, blurred, original *render.LayerTexture, effect compositor.DropShadowEffect) error {
	dstView, err := layerView(dst)
	if err != nil {
		return err
	}
	blurredView, err := layerView(blurred)
	if err != nil {
		return err
	}
	originalView, err := layerView(original)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(pipeShadow, compositor.BlendNormal, colorFormat)
	if err != nil {
		return err
	}

	tint := effect.Color.Premultiply()
	uniform := make([]byte, 32)
	putVec4(uniform, 0, 1/float32(max(dst.W, 1)), 1/float32(max(dst.H, 1)), effect.OffsetX, effect.OffsetY)
	putVec4(uniform, 16, tint.R, tint.G, tint.B, tint.A)

	uniformBuf, err := b.createAndUploadBuffer("compositor_shadow_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(uniformBuf)

	bindGroup, err := b.twoTexBindGroup(uniformBuf, uint64(len(uniform)), blurredView, originalView)
	if err != nil {
		return err
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.fullscreenPass("shadow_composite", dstView, pipeline, bindGroup)
}

// GlowComposite combines a blurred halo mask with the original
// content: the tinted glow behind, the original on top.
func (b *Backend) GlowComposite(dst, blurred, original *render.LayerTexture, effect compositor.GlowEffect) error {
	dstView, err := layerView(dst)
	if err != nil {
		return err
	}
	blurredView, err := layerView(blurred)
	if err != nil {
		return err
	}
	originalView, err := layerView(original)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(pipeGlow, compositor.BlendNormal, colorFormat)
	if err != nil {
		return err
	}

	tint := effect.Color.Premultiply()
	opacity := effect.Opacity
	if opacity <= 0 {
		opacity = 1
	}
	uniform := make([]byte, 32)
	putVec4(uniform, 0, tint.R, tint.G, tint.B, tint.A)
	putVec4(uniform, 16, opacity, 0, 0, 0)

	uniformBuf, err := b.createAndUploadBuffer("compositor_glow_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(uniformBuf)

	bindGroup, err := b.twoTexBindGroup(uniformBuf, uint64(len(uniform)), blurredView, originalView)
	if err != nil {
		return err
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.fullscreenPass("glow_composite", dstView, pipeline, bindGroup)
}

// ColorMatrixPass applies a 4x5 affine color transform from src into
// dst. The row-major CSS layout is repacked into four coefficient
// rows plus an offset vector.
func (b *Backend) ColorMatrixPass(dst, src *render.LayerTexture, matrix [20]float32) error {
	srcView, err := layerView(src)
	if err != nil {
		return err
	}
	uniform := make([]byte, 80)
	for row := 0; row < 4; row++ {
		putVec4(uniform, row*16, matrix[row*5], matrix[row*5+1], matrix[row*5+2], matrix[row*5+3])
	}
	putVec4(uniform, 64, matrix[4], matrix[9], matrix[14], matrix[19])
	return b.texEffectPass("colormatrix", dst, srcView, uniform, pipeColorMatrix)
}

// Composite blends the srcRect region of src into the dstRect region
// of dst, scaled by opacity and restricted to scissor.
func (b *Backend) Composite(dst render.Surface, src *render.LayerTexture, srcRect, dstRect, scissor compositor.Rect, opacity float32, mode compositor.BlendMode) error {
	if opacity <= 0 || srcRect.Empty() || dstRect.Empty() {
		return nil
	}
	ref, err := b.targetFor(dst)
	if err != nil {
		return err
	}
	srcView, err := layerView(src)
	if err != nil {
		return ref.finish(err)
	}
	region := dstRect.Intersect(scissor)
	sx, sy, sw, sh, ok := scissorFor(region, ref.w, ref.h)
	if !ok {
		return ref.finish(nil)
	}
	pipeline, err := b.pipelines.get(pipeComposite, mode, ref.format)
	if err != nil {
		return ref.finish(err)
	}

	srcW := float32(max(src.W, 1))
	srcH := float32(max(src.H, 1))
	uniform := make([]byte, 64)
	putVec4(uniform, 0, float32(ref.w), float32(ref.h), 0, 0)
	putVec4(uniform, 16, dstRect.MinX, dstRect.MinY, dstRect.MaxX, dstRect.MaxY)
	putVec4(uniform, 32, srcRect.MinX/srcW, srcRect.MinY/srcH, srcRect.MaxX/srcW, srcRect.MaxY/srcH)
	putVec4(uniform, 48, min(opacity, 1), 0, 0, 0)

	uniformBuf, err := b.createAndUploadBuffer("compositor_composite_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(uniformBuf)

	if err := b.pipelines.ensureLayouts(); err != nil {
		return ref.finish(err)
	}
	bindGroup, err := b.texBindGroup(uniformBuf, uint64(len(uniform)), srcView)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	err = b.encodeSubmit("composite", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "composite_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    ref.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, b.quadBuf, 0)
		rp.SetScissorRect(sx, sy, sw, sh)
		rp.Draw(6, 1, 0, 0)
		rp.End()
		return nil
	})
	return ref.finish(err)
}

// DrawGlass renders background-blur panels over the content already
// in dst: grab the backdrop behind each panel, blur it, and draw the
// panel as a tinted rounded rect filled with the blurred grab.
func (b *Backend) DrawGlass(dst render.Surface, panels []compositor.GlassPanel, viewport compositor.Rect) error {
	if len(panels) == 0 {
		return nil
	}
	ref, err := b.targetFor(dst)
	if err != nil {
		return err
	}
	target := compositor.NewRect(0, 0, float32(ref.w), float32(ref.h))
	for i := range panels {
		if err := b.drawGlassPanel(ref, &panels[i], viewport.Intersect(target)); err != nil {
			return ref.finish(err)
		}
	}
	return ref.finish(nil)
}

func (b *Backend) drawGlassPanel(ref *targetRef, panel *compositor.GlassPanel, viewport compositor.Rect) error {
	bounds := panel.Bounds.Intersect(viewport)
	if bounds.Empty() {
		return nil
	}
	margin := math32.Ceil(math32.Max(panel.BlurRadius, 1))
	grab := panel.Bounds.Outset(margin, margin, margin, margin).Intersect(
		compositor.NewRect(0, 0, float32(ref.w), float32(ref.h)))
	gw := int(math32.Ceil(grab.Width()))
	gh := int(math32.Ceil(grab.Height()))
	if gw <= 0 || gh <= 0 {
		return nil
	}

	// Two working textures for the blur ping-pong.
	texA, err := b.CreateLayerTexture(gw, gh, false)
	if err != nil {
		return err
	}
	defer texA.Destroy()
	texB, err := b.CreateLayerTexture(gw, gh, false)
	if err != nil {
		return err
	}
	defer texB.Destroy()

	// Grab the backdrop region into texA by sampling the target.
	if err := b.blitRegion(texA, ref, grab); err != nil {
		return err
	}

	// Chained Kawase steps approximate the gaussian falloff.
	blurred := texA
	if panel.BlurRadius > 0 {
		passes := int(math32.Ceil(panel.BlurRadius / 4))
		passes = min(max(passes, 1), 4)
		src, dstTex := texA, texB
		for i := 0; i < passes; i++ {
			offset := (float32(i) + 0.5) * panel.BlurRadius / (2 * float32(passes))
			if err := b.BlurPass(dstTex, src, offset, false); err != nil {
				return err
			}
			src, dstTex = dstTex, src
		}
		blurred = src
	}

	blurredView, err := layerView(blurred)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(pipeGlass, compositor.BlendNormal, ref.format)
	if err != nil {
		return err
	}

	uniform := make([]byte, 96)
	putVec4(uniform, 0, float32(ref.w), float32(ref.h), 0, 0)
	putVec4(uniform, 16, panel.Bounds.MinX, panel.Bounds.MinY, panel.Bounds.MaxX, panel.Bounds.MaxY)
	putVec4(uniform, 32, panel.Radii[0], panel.Radii[1], panel.Radii[2], panel.Radii[3])
	putVec4(uniform, 48, panel.Tint.R, panel.Tint.G, panel.Tint.B, panel.Tint.A)
	putVec4(uniform, 64, grab.MinX, grab.MinY, 1/float32(gw), 1/float32(gh))
	putVec4(uniform, 80, panel.NoiseAmount, 0, 0, 0)

	uniformBuf, err := b.createAndUploadBuffer("compositor_glass_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(uniformBuf)

	bindGroup, err := b.texBindGroup(uniformBuf, uint64(len(uniform)), blurredView)
	if err != nil {
		return err
	}
	defer b.device.DestroyBindGroup(bindGroup)

	sx, sy, sw, sh, ok := scissorFor(bounds, ref.w, ref.h)
	if !ok {
		return nil
	}
	return b.encodeSubmit("glass", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "glass_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    ref.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, b.quadBuf, 0)
		rp.SetScissorRect(sx, sy, sw, sh)
		rp.Draw(6, 1, 0, 0)
		rp.End()
		return nil
	})
}

// blitRegion copies the region rect of the target into dst via the
// composite pipeline, filling dst completely.
func (b *Backend) blitRegion(dst *render.LayerTexture, ref *targetRef, region compositor.Rect) error {
	dstView, err := layerView(dst)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(pipeComposite, compositor.BlendNormal, colorFormat)
	if err != nil {
		return err
	}

	w := float32(ref.w)
	h := float32(ref.h)
	uniform := make([]byte, 64)
	putVec4(uniform, 0, float32(dst.W), float32(dst.H), 0, 0)
	putVec4(uniform, 16, 0, 0, float32(dst.W), float32(dst.H))
	putVec4(uniform, 32, region.MinX/w, region.MinY/h, region.MaxX/w, region.MaxY/h)
	putVec4(uniform, 48, 1, 0, 0, 0)

	uniformBuf, err := b.createAndUploadBuffer("compositor_blit_uniform", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(uniformBuf)

	if err := b.pipelines.ensureLayouts(); err != nil {
		return err
	}
	bindGroup, err := b.texBindGroup(uniformBuf, uint64(len(uniform)), ref.view)
	if err != nil {
		return err
	}
	defer b.device.DestroyBindGroup(bindGroup)

	return b.encodeSubmit("blit", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "blit_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       dstView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{},
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, b.quadBuf, 0)
		rp.Draw(6, 1, 0, 0)
		rp.End()
		return nil
	})
}
