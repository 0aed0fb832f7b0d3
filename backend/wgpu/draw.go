// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// quadCornerData returns the six unit-quad corners shared by the
// instanced passes: two triangles over (0,0)..(1,1).
func quadCornerData() []byte {
	corners := []float32{
		0, 0, 1, 0, 0, 1,
		1, 0, 1, 1, 0, 1,
	}
	buf := make([]byte, len(corners)*4)
	for i, v := range corners {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// putF32 appends one little-endian float32.
func putF32(buf []byte, off int, v float32) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	return off + 4
}

func putVec4(buf []byte, off int, a, b, c, d float32) int {
	off = putF32(buf, off, a)
	off = putF32(buf, off, b)
	off = putF32(buf, off, c)
	return putF32(buf, off, d)
}

func putColor(buf []byte, off int, c compositor.Color) int {
	return putVec4(buf, off, c.R, c.G, c.B, c.A)
}

// shiftedClipRadii folds the draw offset into the packed clip
// parameters. Circle and ellipse clips carry their center in the
// radii slots, so translating the clip means translating the center.
func shiftedClipRadii(kind compositor.ClipKind, radii compositor.CornerRadii, offset compositor.Point) compositor.CornerRadii {
	if kind == compositor.ClipCircle || kind == compositor.ClipEllipse {
		radii[0] += offset.X
		radii[1] += offset.Y
	}
	return radii
}

// buildPrimitiveInstances serializes primitives into the instance
// layout the primitive shader consumes: thirteen float32x4 per
// instance.
func buildPrimitiveInstances(prims []compositor.Primitive, offset compositor.Point) []byte {
	buf := make([]byte, len(prims)*primitiveInstanceSize)
	off := 0
	for i := range prims {
		p := &prims[i]
		bounds := p.Bounds.Translate(offset)
		clipBounds := p.ClipBounds.Translate(offset)
		clipRadii := shiftedClipRadii(p.Clip, p.ClipRadii, offset)

		off = putVec4(buf, off, bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY)
		off = putVec4(buf, off, p.Radii[0], p.Radii[1], p.Radii[2], p.Radii[3])
		off = putColor(buf, off, p.Color)
		off = putColor(buf, off, p.Color2)
		off = putColor(buf, off, p.BorderColor)
		off = putVec4(buf, off, clipBounds.MinX, clipBounds.MinY, clipBounds.MaxX, clipBounds.MaxY)
		off = putVec4(buf, off, clipRadii[0], clipRadii[1], clipRadii[2], clipRadii[3])
		off = putVec4(buf, off, p.GradientCenter.X+offset.X, p.GradientCenter.Y+offset.Y, p.GradientAngle, p.GradientRadius)
		off = putVec4(buf, off, p.Brightness, p.Contrast, p.Saturation, p.HueRotate)
		off = putVec4(buf, off, p.RotationX, p.RotationY, p.Perspective, p.LightStrength)
		off = putVec4(buf, off, p.ShadowOffset.X, p.ShadowOffset.Y, p.ShadowBlur, 0)
		off = putColor(buf, off, p.ShadowColor)
		off = putVec4(buf, off, p.BorderWidth, float32(p.Shape), float32(p.Fill), float32(p.Clip))
	}
	return buf
}

// buildLineInstances serializes line segments: five float32x4 per
// instance.
func buildLineInstances(lines []compositor.LineSegment, offset compositor.Point) []byte {
	buf := make([]byte, len(lines)*lineInstanceSize)
	off := 0
	for i := range lines {
		l := &lines[i]
		clipBounds := l.ClipBounds.Translate(offset)
		clipRadii := shiftedClipRadii(l.Clip, l.ClipRadii, offset)
		half := math32.Max(l.Width/2, 0.5)

		off = putVec4(buf, off, l.P0.X+offset.X, l.P0.Y+offset.Y, l.P1.X+offset.X, l.P1.Y+offset.Y)
		off = putColor(buf, off, l.Color)
		off = putVec4(buf, off, clipBounds.MinX, clipBounds.MinY, clipBounds.MaxX, clipBounds.MaxY)
		off = putVec4(buf, off, clipRadii[0], clipRadii[1], clipRadii[2], clipRadii[3])
		off = putVec4(buf, off, half, float32(l.Clip), 0, 0)
	}
	return buf
}

// buildPathVertices serializes path vertices with the offset applied:
// position float32x2 followed by straight-alpha color float32x4.
func buildPathVertices(vertices []compositor.PathVertex, offset compositor.Point) []byte {
	buf := make([]byte, len(vertices)*pathVertexSize)
	off := 0
	for i := range vertices {
		v := &vertices[i]
		off = putF32(buf, off, v.Pos.X+offset.X)
		off = putF32(buf, off, v.Pos.Y+offset.Y)
		off = putColor(buf, off, v.Color)
	}
	return buf
}

func buildPathIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// viewportUniform packs the globals uniform for the geometry passes.
func viewportUniform(w, h uint32) []byte {
	buf := make([]byte, 16)
	putVec4(buf, 0, float32(w), float32(h), 0, 0)
	return buf
}

// scissorFor clamps a viewport rectangle to the target and returns it
// as integer scissor bounds. ok is false when nothing survives.
func scissorFor(viewport compositor.Rect, w, h uint32) (x, y, sw, sh uint32, ok bool) {
	minX := int(math32.Floor(math32.Max(viewport.MinX, 0)))
	minY := int(math32.Floor(math32.Max(viewport.MinY, 0)))
	maxX := int(math32.Ceil(math32.Min(viewport.MaxX, float32(w))))
	maxY := int(math32.Ceil(math32.Min(viewport.MaxY, float32(h))))
	if minX >= maxX || minY >= maxY {
		return 0, 0, 0, 0, false
	}
	return uint32(minX), uint32(minY), uint32(maxX - minX), uint32(maxY - minY), true
}

// uniformBindGroup binds one uniform buffer at binding 0.
func (b *Backend) uniformBindGroup(layout hal.BindGroupLayout, buf hal.Buffer, size uint64) (hal.BindGroup, error) {
	return b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor_uniform_bind",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
}

// texBindGroup binds a uniform buffer, one texture, and the shared
// sampler.
func (b *Backend) texBindGroup(buf hal.Buffer, size uint64, view hal.TextureView) (hal.BindGroup, error) {
	return b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor_tex_bind",
		Layout: b.pipelines.texLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
}

// twoTexBindGroup binds a uniform buffer, two textures, and the
// shared sampler.
func (b *Backend) twoTexBindGroup(buf hal.Buffer, size uint64, first, second hal.TextureView) (hal.BindGroup, error) {
	return b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor_two_tex_bind",
		Layout: b.pipelines.twoTexLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: first.NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: second.NativeHandle()}},
			{Binding: 3, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
}

// drawInstanced runs one instanced geometry pass over an existing
// target: quad corners in slot 0, instance data in slot 1.
func (b *Backend) drawInstanced(dst render.Surface, kind pipelineKind, instances []byte, count int, viewport compositor.Rect) error {
	if count == 0 {
		return nil
	}
	ref, err := b.targetFor(dst)
	if err != nil {
		return err
	}
	sx, sy, sw, sh, ok := scissorFor(viewport, ref.w, ref.h)
	if !ok {
		return ref.finish(nil)
	}
	pipeline, err := b.pipelines.get(kind, compositor.BlendNormal, ref.format)
	if err != nil {
		return ref.finish(err)
	}

	instBuf, err := b.createAndUploadBuffer("compositor_instances", instances,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(instBuf)

	uniform := viewportUniform(ref.w, ref.h)
	uniformBuf, err := b.createAndUploadBuffer("compositor_globals", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(uniformBuf)

	if err := b.pipelines.ensureLayouts(); err != nil {
		return ref.finish(err)
	}
	bindGroup, err := b.uniformBindGroup(b.pipelines.uniformLayout, uniformBuf, uint64(len(uniform)))
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	err = b.encodeSubmit("geometry", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "geometry_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    ref.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, b.quadBuf, 0)
		rp.SetVertexBuffer(1, instBuf, 0)
		rp.SetScissorRect(sx, sy, sw, sh)
		rp.Draw(6, uint32(count), 0, 0)
		rp.End()
		return nil
	})
	return ref.finish(err)
}

// DrawPrimitives rasterizes filled primitives into dst.
func (b *Backend) DrawPrimitives(dst render.Surface, prims []compositor.Primitive, offset compositor.Point, viewport compositor.Rect) error {
	if len(prims) == 0 {
		return nil
	}
	return b.drawInstanced(dst, pipePrimitive, buildPrimitiveInstances(prims, offset), len(prims), viewport)
}

// DrawLines rasterizes polyline segments into dst.
func (b *Backend) DrawLines(dst render.Surface, lines []compositor.LineSegment, offset compositor.Point, viewport compositor.Rect) error {
	if len(lines) == 0 {
		return nil
	}
	return b.drawInstanced(dst, pipeLine, buildLineInstances(lines, offset), len(lines), viewport)
}

// DrawPaths rasterizes tessellated path geometry, one indexed draw
// per clip run. Run clips are applied as scissor rectangles over the
// run's clip bounds; non-rect clip shapes degrade to their bounds.
func (b *Backend) DrawPaths(dst render.Surface, batch *compositor.PathBatch, offset compositor.Point, viewport compositor.Rect) error {
	if batch.Empty() {
		return nil
	}
	ref, err := b.targetFor(dst)
	if err != nil {
		return err
	}
	pipeline, err := b.pipelines.get(pipePath, compositor.BlendNormal, ref.format)
	if err != nil {
		return ref.finish(err)
	}

	vertBuf, err := b.createAndUploadBuffer("compositor_path_verts", buildPathVertices(batch.Vertices, offset),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(vertBuf)

	idxBuf, err := b.createAndUploadBuffer("compositor_path_indices", buildPathIndices(batch.Indices),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(idxBuf)

	uniform := viewportUniform(ref.w, ref.h)
	uniformBuf, err := b.createAndUploadBuffer("compositor_globals", uniform,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBuffer(uniformBuf)

	if err := b.pipelines.ensureLayouts(); err != nil {
		return ref.finish(err)
	}
	bindGroup, err := b.uniformBindGroup(b.pipelines.uniformLayout, uniformBuf, uint64(len(uniform)))
	if err != nil {
		return ref.finish(err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	err = b.encodeSubmit("paths", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "path_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    ref.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.SetVertexBuffer(0, vertBuf, 0)
		rp.SetIndexBuffer(idxBuf, gputypes.IndexFormatUint32, 0)

		indexCount := uint32(len(batch.Indices))
		for i := range batch.Runs {
			run := &batch.Runs[i]
			if run.IndexCount == 0 || run.IndexOffset >= indexCount {
				continue
			}
			count := min(run.IndexCount, indexCount-run.IndexOffset)

			clip := viewport
			if run.Clip != compositor.ClipNone {
				clip = clip.Intersect(run.ClipBounds.Translate(offset))
			}
			sx, sy, sw, sh, ok := scissorFor(clip, ref.w, ref.h)
			if !ok {
				continue
			}
			rp.SetScissorRect(sx, sy, sw, sh)
			rp.DrawIndexed(count, 1, run.IndexOffset, 0, 0)
		}
		rp.End()
		return nil
	})
	return ref.finish(err)
}
