// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor"
)

func f32At(t *testing.T, buf []byte, index int) float32 {
	t.Helper()
	off := index * 4
	if off+4 > len(buf) {
		t.Fatalf("float index %d out of range for %d bytes", index, len(buf))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestQuadCornerData(t *testing.T) {
	data := quadCornerData()
	if len(data) != 6*quadVertexStride {
		t.Fatalf("quadCornerData length = %d, want %d", len(data), 6*quadVertexStride)
	}
	// Two triangles covering the unit square: corners must span both
	// extremes on each axis.
	var minX, minY, maxX, maxY float32 = 1, 1, 0, 0
	for i := 0; i < 6; i++ {
		x := f32At(t, data, i*2)
		y := f32At(t, data, i*2+1)
		minX = min(minX, x)
		minY = min(minY, y)
		maxX = max(maxX, x)
		maxY = max(maxY, y)
	}
	if minX != 0 || minY != 0 || maxX != 1 || maxY != 1 {
		t.Errorf("quad corners span (%v,%v)-(%v,%v), want (0,0)-(1,1)", minX, minY, maxX, maxY)
	}
}

func TestBuildPrimitiveInstances_Layout(t *testing.T) {
	prims := []compositor.Primitive{
		{
			Bounds:     compositor.NewRect(10, 20, 30, 40),
			Color:      compositor.RGBA(1, 0, 0, 1),
			ClipBounds: compositor.NewRect(5, 5, 100, 100),
			Shape:      compositor.ShapeRoundedRect,
			Fill:       compositor.FillLinearGradient,
			Clip:       compositor.ClipRect,
		},
		{Bounds: compositor.NewRect(0, 0, 1, 1)},
	}
	data := buildPrimitiveInstances(prims, compositor.Pt(100, 200))

	if len(data) != 2*primitiveInstanceSize {
		t.Fatalf("instance data length = %d, want %d", len(data), 2*primitiveInstanceSize)
	}
	// Bounds land in the first vec4, shifted by the draw offset.
	if got := f32At(t, data, 0); got != 110 {
		t.Errorf("bounds.minX = %v, want 110", got)
	}
	if got := f32At(t, data, 3); got != 260 {
		t.Errorf("bounds.maxY = %v, want 260", got)
	}
	// Clip bounds shift too.
	if got := f32At(t, data, 20); got != 105 {
		t.Errorf("clipBounds.minX = %v, want 105", got)
	}
	// Shape, fill, and clip kinds ride in the trailing meta vec4.
	metaBase := primitiveInstanceSize/4 - 4
	if got := f32At(t, data, metaBase+1); got != float32(compositor.ShapeRoundedRect) {
		t.Errorf("meta shape = %v, want %v", got, float32(compositor.ShapeRoundedRect))
	}
	if got := f32At(t, data, metaBase+2); got != float32(compositor.FillLinearGradient) {
		t.Errorf("meta fill = %v, want %v", got, float32(compositor.FillLinearGradient))
	}
	if got := f32At(t, data, metaBase+3); got != float32(compositor.ClipRect) {
		t.Errorf("meta clip = %v, want %v", got, float32(compositor.ClipRect))
	}
}

func TestBuildLineInstances_MinHalfWidth(t *testing.T) {
	lines := []compositor.LineSegment{
		{P0: compositor.Pt(0, 0), P1: compositor.Pt(10, 0), Width: 0.2},
	}
	data := buildLineInstances(lines, compositor.Point{})
	if len(data) != lineInstanceSize {
		t.Fatalf("instance data length = %d, want %d", len(data), lineInstanceSize)
	}
	// Hairlines keep at least one pixel of coverage.
	if got := f32At(t, data, 16); got != 0.5 {
		t.Errorf("half width = %v, want 0.5", got)
	}
}

func TestBuildPathVertices(t *testing.T) {
	verts := []compositor.PathVertex{
		{Pos: compositor.Pt(1, 2), Color: compositor.RGBA(0, 1, 0, 1)},
		{Pos: compositor.Pt(3, 4), Color: compositor.RGBA(0, 0, 1, 1)},
	}
	data := buildPathVertices(verts, compositor.Pt(10, 10))
	if len(data) != 2*pathVertexSize {
		t.Fatalf("vertex data length = %d, want %d", len(data), 2*pathVertexSize)
	}
	if got := f32At(t, data, 0); got != 11 {
		t.Errorf("vertex 0 x = %v, want 11", got)
	}
	// Second vertex starts at the declared stride.
	if got := f32At(t, data, pathVertexSize/4); got != 13 {
		t.Errorf("vertex 1 x = %v, want 13", got)
	}
}

func TestShiftedClipRadii(t *testing.T) {
	radii := compositor.CornerRadii{40, 40, 20, 0}
	shifted := shiftedClipRadii(compositor.ClipCircle, radii, compositor.Pt(-10, -20))
	if shifted[0] != 30 || shifted[1] != 20 {
		t.Errorf("circle clip center = (%v,%v), want (30,20)", shifted[0], shifted[1])
	}
	if shifted[2] != 20 {
		t.Errorf("circle clip radius changed: %v", shifted[2])
	}
	// Rounded-rect radii are actual corner radii and must not shift.
	same := shiftedClipRadii(compositor.ClipRoundedRect, radii, compositor.Pt(-10, -20))
	if same != radii {
		t.Errorf("rounded-rect radii shifted: %v", same)
	}
}

func TestScissorFor(t *testing.T) {
	tests := []struct {
		name     string
		viewport compositor.Rect
		w, h     uint32
		wantOK   bool
		wantX    uint32
		wantW    uint32
	}{
		{"full", compositor.NewRect(0, 0, 100, 100), 100, 100, true, 0, 100},
		{"clamped", compositor.NewRect(-10, -10, 200, 200), 100, 100, true, 0, 100},
		{"partial", compositor.NewRect(25, 0, 50, 100), 100, 100, true, 25, 50},
		{"outside", compositor.NewRect(200, 200, 10, 10), 100, 100, false, 0, 0},
		{"empty", compositor.Rect{MinX: 5, MinY: 5, MaxX: 5, MaxY: 5}, 100, 100, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _, w, _, ok := scissorFor(tt.viewport, tt.w, tt.h)
			if ok != tt.wantOK {
				t.Fatalf("scissorFor() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if x != tt.wantX || w != tt.wantW {
				t.Errorf("scissorFor() x,w = %d,%d, want %d,%d", x, w, tt.wantX, tt.wantW)
			}
		})
	}
}

func TestVec4InstanceLayout(t *testing.T) {
	layout := vec4InstanceLayout(13)
	if layout.ArrayStride != primitiveInstanceSize {
		t.Errorf("stride = %d, want %d", layout.ArrayStride, primitiveInstanceSize)
	}
	if layout.StepMode != gputypes.VertexStepModeInstance {
		t.Errorf("step mode = %v, want instance", layout.StepMode)
	}
	if len(layout.Attributes) != 13 {
		t.Fatalf("attribute count = %d, want 13", len(layout.Attributes))
	}
	for i, attr := range layout.Attributes {
		if attr.ShaderLocation != uint32(i+1) {
			t.Errorf("attribute %d location = %d, want %d", i, attr.ShaderLocation, i+1)
		}
		if attr.Offset != uint64(i*16) {
			t.Errorf("attribute %d offset = %d, want %d", i, attr.Offset, i*16)
		}
	}
}

func TestBlendStateFor(t *testing.T) {
	add := blendStateFor(compositor.BlendAdditive)
	if add.Color.SrcFactor != gputypes.BlendFactorOne || add.Color.DstFactor != gputypes.BlendFactorOne {
		t.Errorf("additive factors = %v/%v, want one/one", add.Color.SrcFactor, add.Color.DstFactor)
	}
	screen := blendStateFor(compositor.BlendScreen)
	if screen.Color.DstFactor != gputypes.BlendFactorOneMinusSrc {
		t.Errorf("screen dst factor = %v, want one-minus-src", screen.Color.DstFactor)
	}
	normal := blendStateFor(compositor.BlendNormal)
	if normal != gputypes.BlendStatePremultiplied() {
		t.Errorf("normal mode should use the premultiplied blend state")
	}
}

func TestShaderSourcesNonEmpty(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"primitive", primitiveShaderSource},
		{"line", lineShaderSource},
		{"path", pathShaderSource},
		{"blur", blurShaderSource},
		{"composite", compositeShaderSource},
		{"shadow", shadowShaderSource},
		{"glow", glowShaderSource},
		{"colormatrix", colorMatrixShaderSource},
		{"glass", glassShaderSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.source) < 100 {
				t.Fatalf("%s shader source suspiciously short: %d bytes", tt.name, len(tt.source))
			}
			for _, required := range []string{"@vertex", "@fragment", "vs_main", "fs_main"} {
				if !strings.Contains(tt.source, required) {
					t.Errorf("%s shader source missing %q", tt.name, required)
				}
			}
		})
	}
}

func TestViewportUniform(t *testing.T) {
	data := viewportUniform(800, 600)
	if len(data) != 16 {
		t.Fatalf("uniform length = %d, want 16", len(data))
	}
	if f32At(t, data, 0) != 800 || f32At(t, data, 1) != 600 {
		t.Errorf("viewport = (%v,%v), want (800,600)", f32At(t, data, 0), f32At(t, data, 1))
	}
}
