// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render consumes a compositor.Batch once per frame and turns
// it into pixels.
//
// # Key Principle
//
// The renderer RECEIVES a GPU device from the host application, it
// does NOT create its own. All GPU object creation and pipeline state
// live behind the Backend interface; the render package only decides
// what gets drawn where, in which order, and through which pooled
// textures.
//
// # Core Pieces
//
//   - FrameRenderer: per-frame orchestration — buffer upload with
//     overflow protection, pass ordering, delegation of effect
//     sub-trees
//   - LayerEffectProcessor: isolates effect layers into tight
//     offscreen textures, runs their effect chains, composites back
//   - TextureCache: size-bucketed pool of reusable offscreen targets
//     plus a separate named-texture store
//   - Backend: the pass-execution seam implemented by
//     backend/software and backend/wgpu
//
// # Targets
//
//   - PixmapTarget: CPU-backed *image.RGBA target
//   - TextureTarget: pooled GPU texture target
//   - SurfaceTarget: window surface from the host application
package render
