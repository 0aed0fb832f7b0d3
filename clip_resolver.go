package compositor

import "github.com/chewxy/math32"

// ResolvedClip is the single effective clip descriptor stored per
// primitive. For rectangular clips, Radii holds corner radii. For
// circle, ellipse, and polygon clips, Bounds carries the conservative
// rectangular scissor and Radii is repurposed as packed shape
// parameters in the GPU layout:
//
//	circle:  [cx, cy, r, 0]
//	ellipse: [cx, cy, rx, ry]
//	polygon: [0, 0, vertexCount, auxOffset]
//
// Shape additionally references the source shape for CPU-side
// evaluation.
type ResolvedClip struct {
	Bounds Rect
	Radii  CornerRadii
	Kind   ClipKind
	Shape  *ClipShape
}

// NoClip returns the resolved clip for an empty stack: the sentinel
// bounds rectangle with zero radii.
func NoClip() ResolvedClip {
	return ResolvedClip{Bounds: NoClipBounds(), Kind: ClipNone}
}

// cornerSource tracks, per corner, the largest radius contributed by
// any rounded clip on the stack together with the rectangle that
// contributed it. The source rectangle decides whether the corner
// survives intersection.
type cornerSource struct {
	radius float32
	src    Rect
}

// ResolveClip computes the effective clip for the current stack.
//
// Rectangular and rounded-rectangle clips accumulate into a single
// intersection. Per corner, the largest radius seen wins, and after
// intersection a corner keeps its rounding only if the intersected
// edge still lies within radius distance of the source edge on both
// axes; otherwise the corner squares off. When any corner survives
// with rounding the result is reported as a rounded-rectangle clip;
// a fully squared result is a plain rectangle. If the topmost shape on the
// stack is non-rectangular it takes priority: the rectangular
// intersection (or the sentinel when none exists) becomes a
// conservative scissor and the shape parameters are carried for
// shape-based rejection. Path clips are unsupported and degrade to no
// clip. Multiple simultaneous non-rectangular clips are not composed;
// only the topmost applies.
func ResolveClip(stack *ClipStack) ResolvedClip {
	if stack == nil || len(stack.shapes) == 0 {
		return NoClip()
	}

	minX := math32.Inf(-1)
	minY := math32.Inf(-1)
	maxX := math32.Inf(1)
	maxY := math32.Inf(1)
	hasRect := false

	infRect := Rect{math32.Inf(-1), math32.Inf(-1), math32.Inf(1), math32.Inf(1)}
	sources := [4]cornerSource{
		{src: infRect}, {src: infRect}, {src: infRect}, {src: infRect},
	}

	for i := range stack.shapes {
		shape := &stack.shapes[i]
		switch shape.Kind {
		case ClipShapeRect:
			minX = math32.Max(minX, shape.Bounds.MinX)
			minY = math32.Max(minY, shape.Bounds.MinY)
			maxX = math32.Min(maxX, shape.Bounds.MaxX)
			maxY = math32.Min(maxY, shape.Bounds.MaxY)
			hasRect = true
		case ClipShapeRoundedRect:
			minX = math32.Max(minX, shape.Bounds.MinX)
			minY = math32.Max(minY, shape.Bounds.MinY)
			maxX = math32.Min(maxX, shape.Bounds.MaxX)
			maxY = math32.Min(maxY, shape.Bounds.MaxY)
			for c := 0; c < 4; c++ {
				if shape.Radii[c] > sources[c].radius {
					sources[c] = cornerSource{radius: shape.Radii[c], src: shape.Bounds}
				}
			}
			hasRect = true
		default:
			// Non-rect shapes do not participate in the intersection;
			// only the topmost one can win below.
		}
	}

	top := &stack.shapes[len(stack.shapes)-1]
	topNonRect := top.Kind != ClipShapeRect && top.Kind != ClipShapeRoundedRect

	if hasRect && !topNonRect {
		bounds := Rect{MinX: minX, MinY: minY, MaxX: math32.Max(minX, maxX), MaxY: math32.Max(minY, maxY)}
		radii := resolveCorners(bounds, sources)
		kind := ClipRect
		if !radii.IsZero() {
			kind = ClipRoundedRect
		}
		return ResolvedClip{
			Bounds: bounds,
			Radii:  radii,
			Kind:   kind,
		}
	}

	scissor := NoClipBounds()
	if hasRect {
		scissor = Rect{MinX: minX, MinY: minY, MaxX: math32.Max(minX, maxX), MaxY: math32.Max(minY, maxY)}
	}

	switch top.Kind {
	case ClipShapeCircle:
		return ResolvedClip{
			Bounds: scissor,
			Radii:  CornerRadii{top.Center.X, top.Center.Y, top.RadiusX, 0},
			Kind:   ClipCircle,
			Shape:  top,
		}
	case ClipShapeEllipse:
		return ResolvedClip{
			Bounds: scissor,
			Radii:  CornerRadii{top.Center.X, top.Center.Y, top.RadiusX, top.RadiusY},
			Kind:   ClipEllipse,
			Shape:  top,
		}
	case ClipShapePolygon:
		return ResolvedClip{
			Bounds: scissor,
			Radii:  CornerRadii{0, 0, float32(len(top.Points)), float32(top.AuxOffset)},
			Kind:   ClipPolygon,
			Shape:  top,
		}
	default:
		// Path clipping is not supported by the rasterizer.
		return NoClip()
	}
}

// resolveCorners re-derives the corner radii of the intersected bounds.
// A corner stays rounded only when the intersection boundary lies
// within the source corner's radius on both axes; the surviving radius
// shrinks by the distance the edge moved inward.
func resolveCorners(bounds Rect, sources [4]cornerSource) CornerRadii {
	var radii CornerRadii

	if s := sources[CornerTopLeft]; s.radius > 0 {
		dl := bounds.MinX - s.src.MinX
		dt := bounds.MinY - s.src.MinY
		if dl < s.radius && dt < s.radius {
			radii[CornerTopLeft] = clampRadius(s.radius-math32.Max(dl, 0), s.radius)
		}
	}
	if s := sources[CornerTopRight]; s.radius > 0 {
		dr := s.src.MaxX - bounds.MaxX
		dt := bounds.MinY - s.src.MinY
		if dr < s.radius && dt < s.radius {
			radii[CornerTopRight] = clampRadius(s.radius-math32.Max(dr, 0), s.radius)
		}
	}
	if s := sources[CornerBottomRight]; s.radius > 0 {
		dr := s.src.MaxX - bounds.MaxX
		db := s.src.MaxY - bounds.MaxY
		if dr < s.radius && db < s.radius {
			radii[CornerBottomRight] = clampRadius(s.radius-math32.Max(dr, 0), s.radius)
		}
	}
	if s := sources[CornerBottomLeft]; s.radius > 0 {
		dl := bounds.MinX - s.src.MinX
		db := s.src.MaxY - bounds.MaxY
		if dl < s.radius && db < s.radius {
			radii[CornerBottomLeft] = clampRadius(s.radius-math32.Max(dl, 0), s.radius)
		}
	}
	return radii
}

func clampRadius(v, max float32) float32 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
