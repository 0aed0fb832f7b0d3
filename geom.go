package compositor

import "github.com/chewxy/math32"

// Point represents a 2D point or vector in screen space.
type Point struct {
	X, Y float32
}

// Pt is a convenience function to create a Point.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// Add returns the vector sum p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector difference p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Rect is an axis-aligned rectangle in screen space.
// Min is the top-left corner, Max the bottom-right.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// NewRect creates a Rect from position and size.
func NewRect(x, y, w, h float32) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width returns the horizontal extent of r, never negative.
func (r Rect) Width() float32 { return math32.Max(0, r.MaxX-r.MinX) }

// Height returns the vertical extent of r, never negative.
func (r Rect) Height() float32 { return math32.Max(0, r.MaxY-r.MinY) }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

// Intersect returns the largest rectangle contained in both r and s.
func (r Rect) Intersect(s Rect) Rect {
	return Rect{
		MinX: math32.Max(r.MinX, s.MinX),
		MinY: math32.Max(r.MinY, s.MinY),
		MaxX: math32.Min(r.MaxX, s.MaxX),
		MaxY: math32.Min(r.MaxY, s.MaxY),
	}
}

// Union returns the smallest rectangle containing both r and s.
// An empty rectangle does not contribute.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	return Rect{
		MinX: math32.Min(r.MinX, s.MinX),
		MinY: math32.Min(r.MinY, s.MinY),
		MaxX: math32.Max(r.MaxX, s.MaxX),
		MaxY: math32.Max(r.MaxY, s.MaxY),
	}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// Intersects reports whether r and s overlap with positive area.
func (r Rect) Intersects(s Rect) bool {
	return !r.Intersect(s).Empty()
}

// Outset grows r by the given margin on each edge.
func (r Rect) Outset(left, top, right, bottom float32) Rect {
	return Rect{
		MinX: r.MinX - left,
		MinY: r.MinY - top,
		MaxX: r.MaxX + right,
		MaxY: r.MaxY + bottom,
	}
}

// Translate returns r shifted by d.
func (r Rect) Translate(d Point) Rect {
	return Rect{r.MinX + d.X, r.MinY + d.Y, r.MaxX + d.X, r.MaxY + d.Y}
}

// Min returns the top-left corner of r.
func (r Rect) Min() Point { return Point{r.MinX, r.MinY} }

// Max returns the bottom-right corner of r.
func (r Rect) Max() Point { return Point{r.MaxX, r.MaxY} }

// noClipExtent is the side length of the sentinel clip rectangle. Any
// on-screen geometry is trivially inside it.
const noClipExtent = 100000

// NoClipBounds returns the sentinel rectangle used when no clip is
// active. It is large enough to contain any practical viewport.
func NoClipBounds() Rect {
	return Rect{MinX: -10000, MinY: -10000, MaxX: -10000 + noClipExtent, MaxY: -10000 + noClipExtent}
}

// Corner indexes into CornerRadii. The order matches the GPU-side
// primitive layout.
type Corner int

const (
	CornerTopLeft Corner = iota
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

// CornerRadii holds one rounding radius per rectangle corner, in the
// order top-left, top-right, bottom-right, bottom-left.
type CornerRadii [4]float32

// UniformRadii returns radii with the same value at every corner.
func UniformRadii(r float32) CornerRadii {
	return CornerRadii{r, r, r, r}
}

// IsZero reports whether no corner carries rounding.
func (c CornerRadii) IsZero() bool {
	return c[0] == 0 && c[1] == 0 && c[2] == 0 && c[3] == 0
}

// Max returns the largest radius among the four corners.
func (c CornerRadii) Max() float32 {
	m := c[0]
	for _, r := range c[1:] {
		if r > m {
			m = r
		}
	}
	return m
}
