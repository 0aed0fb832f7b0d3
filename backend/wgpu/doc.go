// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the render.Backend interface on the GPU via
// gogpu/wgpu's hardware abstraction layer.
//
// Geometry is drawn with instanced render passes: filled primitives
// and line segments are expanded from unit quads in the vertex shader
// and evaluated as signed distance fields in the fragment shader, so
// edges stay anti-aliased without multisampling. Path geometry arrives
// pre-tessellated and is drawn indexed. Effect passes (blur, shadow,
// glow, color matrix, composite) are full-target textured draws.
//
// The backend either opens its own Vulkan device or adopts a shared
// device from the host application via NewWithProvider. All WGSL
// shaders are compiled to SPIR-V at pipeline creation time with
// gogpu/naga.
//
// Submission is synchronous: every pass is fenced and waited on before
// the call returns. Pixmap targets are mirrored into an offscreen
// texture and read back after each pass, which keeps them usable for
// tests and headless rendering at the cost of round trips.
package wgpu
