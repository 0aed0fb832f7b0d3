package compositor

// ClipShapeKind identifies a shape pushed onto the clip stack. It is a
// superset of ClipKind: the stack accepts shapes the rasterizer cannot
// evaluate (paths), which the resolver degrades.
type ClipShapeKind uint8

const (
	ClipShapeRect ClipShapeKind = iota
	ClipShapeRoundedRect
	ClipShapeCircle
	ClipShapeEllipse
	ClipShapePolygon
	ClipShapePath
)

// ClipShape is one entry on the clip stack: a tagged variant over the
// supported clip geometries. Only the fields relevant to Kind are
// meaningful.
type ClipShape struct {
	Kind ClipShapeKind

	// Rect and rounded-rect clips.
	Bounds Rect
	Radii  CornerRadii

	// Circle and ellipse clips.
	Center  Point
	RadiusX float32
	RadiusY float32

	// Polygon clips. AuxOffset is the float offset of the vertex data
	// in the batch's auxiliary buffer, recorded by the producer.
	Points    []Point
	AuxOffset uint32
}

// RectClip creates a plain rectangular clip shape.
func RectClip(r Rect) ClipShape {
	return ClipShape{Kind: ClipShapeRect, Bounds: r}
}

// RoundedClip creates a rounded-rectangle clip shape.
func RoundedClip(r Rect, radii CornerRadii) ClipShape {
	return ClipShape{Kind: ClipShapeRoundedRect, Bounds: r, Radii: radii}
}

// CircleClip creates a circular clip shape.
func CircleClip(center Point, radius float32) ClipShape {
	return ClipShape{
		Kind:    ClipShapeCircle,
		Bounds:  Rect{center.X - radius, center.Y - radius, center.X + radius, center.Y + radius},
		Center:  center,
		RadiusX: radius,
		RadiusY: radius,
	}
}

// EllipseClip creates an elliptical clip shape.
func EllipseClip(center Point, rx, ry float32) ClipShape {
	return ClipShape{
		Kind:    ClipShapeEllipse,
		Bounds:  Rect{center.X - rx, center.Y - ry, center.X + rx, center.Y + ry},
		Center:  center,
		RadiusX: rx,
		RadiusY: ry,
	}
}

// PolygonClip creates a convex-polygon clip shape from screen-space
// vertices. auxOffset locates the vertex data in the batch auxiliary
// buffer for GPU evaluation.
func PolygonClip(points []Point, auxOffset uint32) ClipShape {
	var b Rect
	for i, p := range points {
		if i == 0 {
			b = Rect{p.X, p.Y, p.X, p.Y}
			continue
		}
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return ClipShape{Kind: ClipShapePolygon, Bounds: b, Points: points, AuxOffset: auxOffset}
}

// PathClip creates an arbitrary-path clip shape. The rasterizer cannot
// evaluate path clips; the resolver degrades them to no clip.
func PathClip(bounds Rect) ClipShape {
	return ClipShape{Kind: ClipShapePath, Bounds: bounds}
}

// ClipStack is the ordered set of clip shapes active at paint time.
// It is transient producer-side state; only the resolved effective
// clip is recorded per primitive.
type ClipStack struct {
	shapes []ClipShape
}

// Push adds a clip shape on top of the stack.
func (s *ClipStack) Push(shape ClipShape) {
	s.shapes = append(s.shapes, shape)
}

// Pop removes the topmost clip shape. Popping an empty stack is a
// no-op.
func (s *ClipStack) Pop() {
	if len(s.shapes) > 0 {
		s.shapes = s.shapes[:len(s.shapes)-1]
	}
}

// Len returns the number of active clip shapes.
func (s *ClipStack) Len() int { return len(s.shapes) }

// Top returns the topmost clip shape, or nil when the stack is empty.
func (s *ClipStack) Top() *ClipShape {
	if len(s.shapes) == 0 {
		return nil
	}
	return &s.shapes[len(s.shapes)-1]
}

// Clear removes all clip shapes, keeping capacity.
func (s *ClipStack) Clear() {
	s.shapes = s.shapes[:0]
}
