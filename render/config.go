// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/compositor"

// Default buffer capacities. These bound one frame's upload; anything
// beyond them is truncated with a logged warning.
const (
	DefaultMaxPrimitives   = 16384
	DefaultMaxLines        = 32768
	DefaultMaxPathVertices = 65536
	DefaultMaxPathIndices  = 196608
	DefaultMaxGlassPanels  = 256
)

// primitiveStride is the byte size of one primitive record in the
// GPU-visible instance layout: thirteen float32x4 attributes.
const primitiveStride = 208

// RendererConfig carries the frame renderer's buffer capacities and
// diagnostics. It is an immutable value: construct with
// DefaultRendererConfig or NewRendererConfig and derive variants
// through the With* methods, which return copies.
type RendererConfig struct {
	maxPrimitives   int
	maxLines        int
	maxPathVertices int
	maxPathIndices  int
	maxGlassPanels  int

	diag compositor.Diagnostics
}

// DefaultRendererConfig returns a config with the default buffer
// capacities and silent diagnostics.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		maxPrimitives:   DefaultMaxPrimitives,
		maxLines:        DefaultMaxLines,
		maxPathVertices: DefaultMaxPathVertices,
		maxPathIndices:  DefaultMaxPathIndices,
		maxGlassPanels:  DefaultMaxGlassPanels,
	}
}

// NewRendererConfig is an alias for DefaultRendererConfig, for callers
// that prefer the builder spelling.
func NewRendererConfig() RendererConfig {
	return DefaultRendererConfig()
}

// WithMaxPrimitives returns a copy with the primitive capacity set.
// Non-positive values keep the default.
func (c RendererConfig) WithMaxPrimitives(n int) RendererConfig {
	if n > 0 {
		c.maxPrimitives = n
	}
	return c
}

// WithMaxLines returns a copy with the line-segment capacity set.
func (c RendererConfig) WithMaxLines(n int) RendererConfig {
	if n > 0 {
		c.maxLines = n
	}
	return c
}

// WithMaxPathGeometry returns a copy with the path vertex and index
// capacities set.
func (c RendererConfig) WithMaxPathGeometry(vertices, indices int) RendererConfig {
	if vertices > 0 {
		c.maxPathVertices = vertices
	}
	if indices > 0 {
		c.maxPathIndices = indices
	}
	return c
}

// WithMaxGlassPanels returns a copy with the glass panel capacity set.
func (c RendererConfig) WithMaxGlassPanels(n int) RendererConfig {
	if n > 0 {
		c.maxGlassPanels = n
	}
	return c
}

// WithDiagnostics returns a copy with the diagnostics configuration
// set.
func (c RendererConfig) WithDiagnostics(d compositor.Diagnostics) RendererConfig {
	c.diag = d
	return c
}

// MaxPrimitives returns the primitive buffer capacity.
func (c RendererConfig) MaxPrimitives() int { return c.maxPrimitives }

// MaxLines returns the line-segment buffer capacity.
func (c RendererConfig) MaxLines() int { return c.maxLines }

// MaxPathVertices returns the path vertex buffer capacity.
func (c RendererConfig) MaxPathVertices() int { return c.maxPathVertices }

// MaxPathIndices returns the path index buffer capacity.
func (c RendererConfig) MaxPathIndices() int { return c.maxPathIndices }

// MaxGlassPanels returns the glass panel buffer capacity.
func (c RendererConfig) MaxGlassPanels() int { return c.maxGlassPanels }

// Diagnostics returns the diagnostics configuration.
func (c RendererConfig) Diagnostics() compositor.Diagnostics { return c.diag }

// clampTo lowers capacities that would exceed the device's reported
// buffer limit.
func (c RendererConfig) clampTo(caps DeviceCapabilities) RendererConfig {
	if caps.MaxBufferSize == 0 {
		return c
	}
	if limit := int(caps.MaxBufferSize / primitiveStride); limit > 0 && c.maxPrimitives > limit {
		c.maxPrimitives = limit
	}
	// Line segments and path vertices are far smaller records; clamp
	// against the same buffer limit at 32 bytes per element.
	if limit := int(caps.MaxBufferSize / 32); limit > 0 {
		if c.maxLines > limit {
			c.maxLines = limit
		}
		if c.maxPathVertices > limit {
			c.maxPathVertices = limit
		}
		if c.maxPathIndices > limit {
			c.maxPathIndices = limit
		}
	}
	return c
}
