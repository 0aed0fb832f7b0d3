package compositor

// Color is a straight-alpha RGBA color with float32 channels in [0, 1].
// Primitives store straight alpha; the compositing stage premultiplies
// at blend time.
type Color struct {
	R, G, B, A float32
}

// RGBA creates a Color from straight-alpha channel values.
func RGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Transparent is the zero color: fully transparent black.
var Transparent = Color{}

// Premultiply returns c with the color channels scaled by alpha.
func (c Color) Premultiply() Color {
	return Color{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

// Scale returns c with the alpha channel multiplied by s, clamped
// to [0, 1]. Color channels are unchanged; the result stays straight.
func (c Color) Scale(s float32) Color {
	a := c.A * s
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return Color{R: c.R, G: c.G, B: c.B, A: a}
}

// Lerp linearly interpolates between c and d by t in [0, 1].
func (c Color) Lerp(d Color, t float32) Color {
	return Color{
		R: c.R + (d.R-c.R)*t,
		G: c.G + (d.G-c.G)*t,
		B: c.B + (d.B-c.B)*t,
		A: c.A + (d.A-c.A)*t,
	}
}

// IsTransparent reports whether c contributes nothing when blended.
func (c Color) IsTransparent() bool { return c.A <= 0 }

// BlendMode selects how a layer or primitive combines with content
// already in the target. The compositing stage always works in
// premultiplied alpha.
type BlendMode uint8

const (
	// BlendNormal is standard source-over compositing.
	BlendNormal BlendMode = iota
	// BlendAdditive sums source and destination channels.
	BlendAdditive
	// BlendMultiply multiplies source and destination channels.
	BlendMultiply
	// BlendScreen inverts, multiplies, and inverts again.
	BlendScreen
)

// String returns the name of the blend mode.
func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendAdditive:
		return "additive"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	default:
		return "unknown"
	}
}
