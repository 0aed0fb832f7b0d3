// Package compositor implements the batching core of a GPU-accelerated
// 2D compositing engine.
//
// # Overview
//
// An upstream drawing layer translates high-level draw calls into
// screen-space primitives and records them into a Batch together with an
// ordered log of layer commands (push/pop/sample). The render package
// consumes the Batch once per frame, resolves effect sub-trees into
// offscreen textures, runs image-space effect chains (blur, drop shadow,
// glow, color matrix), and composites the result into the target.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/compositor"
//		"github.com/gogpu/compositor/backend/software"
//		"github.com/gogpu/compositor/render"
//	)
//
//	batch := compositor.NewBatch()
//	batch.PushPrimitive(compositor.Primitive{
//		Bounds: compositor.NewRect(100, 100, 50, 50),
//		Color:  compositor.RGBA(1, 0, 0, 1),
//		Shape:  compositor.ShapeRect,
//	})
//
//	backend := software.New()
//	renderer, _ := render.NewFrameRenderer(backend, render.DefaultRendererConfig())
//	target := render.NewPixmapTarget(800, 600)
//	renderer.Render(target, batch)
//
// The package itself is backend-neutral: it defines the data model, the
// clip resolution algorithm, effect descriptors, and image operation
// ordering. GPU and CPU execution live under backend/.
package compositor
