package compositor

// ShapeKind identifies the geometry a primitive rasterizes.
type ShapeKind uint8

const (
	ShapeRect ShapeKind = iota
	ShapeRoundedRect
	ShapeCircle
	ShapeEllipse
)

// FillKind identifies how a primitive's interior is colored.
type FillKind uint8

const (
	FillSolid FillKind = iota
	FillLinearGradient
	FillRadialGradient
)

// ClipKind identifies the effective clip shape baked into a primitive
// by the clip resolver.
type ClipKind uint8

const (
	ClipNone ClipKind = iota
	ClipRect
	ClipRoundedRect
	ClipCircle
	ClipEllipse
	ClipPolygon
	// ClipPath is accepted on the clip stack but unsupported by the
	// rasterizer; the resolver degrades it to ClipNone.
	ClipPath
)

// String returns the name of the clip kind.
func (k ClipKind) String() string {
	switch k {
	case ClipNone:
		return "none"
	case ClipRect:
		return "rect"
	case ClipRoundedRect:
		return "rounded-rect"
	case ClipCircle:
		return "circle"
	case ClipEllipse:
		return "ellipse"
	case ClipPolygon:
		return "polygon"
	case ClipPath:
		return "path"
	default:
		return "unknown"
	}
}

// ZLayer splits primitives into render passes. Background primitives
// draw first; foreground primitives draw after all background content,
// including sampled layer composites.
type ZLayer uint8

const (
	ZBackground ZLayer = iota
	ZForeground
)

// Primitive is one GPU-ready drawable instance. It is produced fully
// transformed into screen space with its effective clip already
// resolved, and is immutable once recorded into a Batch.
type Primitive struct {
	Bounds Rect
	Radii  CornerRadii

	// Color and Color2 are the two stops of a 2-stop gradient; solid
	// fills use Color only.
	Color  Color
	Color2 Color

	BorderWidth float32
	BorderColor Color

	ShadowOffset Point
	ShadowBlur   float32
	ShadowColor  Color

	ClipBounds Rect
	ClipRadii  CornerRadii

	// GradientCenter and GradientAngle parameterize gradient fills:
	// the angle orients a linear gradient, the center anchors a radial
	// one. GradientRadius is the radial extent.
	GradientCenter Point
	GradientAngle  float32
	GradientRadius float32

	// Cosmetic 3D fields. RotationX/RotationY tilt the quad,
	// Perspective scales the foreshortening, LightStrength modulates
	// the fake specular term. All zero means flat.
	RotationX     float32
	RotationY     float32
	Perspective   float32
	LightStrength float32

	// CSS-style filter coefficients applied per fragment. The identity
	// filter is {1, 1, 1, 0}.
	Brightness float32
	Contrast   float32
	Saturation float32
	HueRotate  float32

	Shape ShapeKind
	Fill  FillKind
	Clip  ClipKind
	Z     ZLayer
}

// WithIdentityFilter returns p with the filter coefficients set to the
// identity transform. Producers that never touch filters should use
// this so a zero Brightness does not black out the fill.
func (p Primitive) WithIdentityFilter() Primitive {
	p.Brightness = 1
	p.Contrast = 1
	p.Saturation = 1
	p.HueRotate = 0
	return p
}

// LineSegment is one compact polyline segment. Segments are batched
// separately from filled primitives and render in their own pass.
type LineSegment struct {
	P0, P1 Point
	Width  float32
	Color  Color

	ClipBounds Rect
	ClipRadii  CornerRadii
	Clip       ClipKind
}

// GlassPanel is a background-blur panel: the content already rendered
// behind its bounds is blurred, tinted, and drawn back as a rounded
// rectangle. Panels render between the background and foreground
// primitive passes.
type GlassPanel struct {
	Bounds      Rect
	Radii       CornerRadii
	BlurRadius  float32
	Tint        Color
	NoiseAmount float32

	ClipBounds Rect
	ClipRadii  CornerRadii
	Clip       ClipKind
}
