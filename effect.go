package compositor

import "github.com/chewxy/math32"

// Effect is one image-space transform in a layer's effect chain. The
// set of effects is closed: BlurEffect, DropShadowEffect, GlowEffect,
// and ColorMatrixEffect. Adding a kind means extending the variant and
// the two consumers that switch over it, expansion calculation and
// execution.
type Effect interface {
	isEffect()
}

// BlurEffect softens the layer with a multi-pass Kawase box blur.
// Quality scales the pass count; zero means default quality.
type BlurEffect struct {
	Radius  float32
	Quality float32
}

// DropShadowEffect renders a blurred, offset silhouette of the layer
// behind the original content.
type DropShadowEffect struct {
	OffsetX float32
	OffsetY float32
	Blur    float32
	Spread  float32
	Color   Color
}

// GlowEffect renders a blurred halo extending Range pixels beyond the
// layer's silhouette, behind the original content.
type GlowEffect struct {
	Color   Color
	Blur    float32
	Range   float32
	Opacity float32
}

// ColorMatrixEffect applies a 4x5 affine color transform: a 4x4 matrix
// over RGBA plus a per-channel bias in the fifth column. Row-major,
// matching the CSS/SVG feColorMatrix layout.
type ColorMatrixEffect struct {
	Matrix [20]float32
}

func (BlurEffect) isEffect()        {}
func (DropShadowEffect) isEffect()  {}
func (GlowEffect) isEffect()        {}
func (ColorMatrixEffect) isEffect() {}

// IdentityColorMatrix returns the color matrix that leaves every
// channel unchanged.
func IdentityColorMatrix() ColorMatrixEffect {
	return ColorMatrixEffect{Matrix: [20]float32{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}}
}

// Expansion is the extra margin, per edge, that an effect chain needs
// beyond a layer's tight content bounds. Blurred pixels bleed outward;
// the offscreen texture must include the bleed or the effect clips.
type Expansion struct {
	Left, Top, Right, Bottom float32
}

// Max returns the per-edge maximum of e and o.
func (e Expansion) Max(o Expansion) Expansion {
	return Expansion{
		Left:   math32.Max(e.Left, o.Left),
		Top:    math32.Max(e.Top, o.Top),
		Right:  math32.Max(e.Right, o.Right),
		Bottom: math32.Max(e.Bottom, o.Bottom),
	}
}

// IsZero reports whether the expansion adds no margin.
func (e Expansion) IsZero() bool {
	return e.Left == 0 && e.Top == 0 && e.Right == 0 && e.Bottom == 0
}

// EffectExpansion returns the margin a single effect needs beyond
// tight content bounds. Blur bleeds roughly twice its radius in every
// direction. A drop shadow bleeds twice its blur plus spread, biased
// toward the offset direction. Glow bleeds twice blur plus range. A
// color matrix is purely per-pixel and needs nothing.
func EffectExpansion(e Effect) Expansion {
	switch e := e.(type) {
	case BlurEffect:
		m := 2 * e.Radius
		return Expansion{Left: m, Top: m, Right: m, Bottom: m}
	case DropShadowEffect:
		m := 2*e.Blur + e.Spread
		ex := Expansion{Left: m, Top: m, Right: m, Bottom: m}
		if e.OffsetX < 0 {
			ex.Left += -e.OffsetX
		} else {
			ex.Right += e.OffsetX
		}
		if e.OffsetY < 0 {
			ex.Top += -e.OffsetY
		} else {
			ex.Bottom += e.OffsetY
		}
		return ex
	case GlowEffect:
		m := 2 * (e.Blur + e.Range)
		return Expansion{Left: m, Top: m, Right: m, Bottom: m}
	case ColorMatrixEffect:
		return Expansion{}
	default:
		return Expansion{}
	}
}

// ChainExpansion returns the per-edge maximum expansion across all
// effects in the chain.
func ChainExpansion(effects []Effect) Expansion {
	var out Expansion
	for _, e := range effects {
		out = out.Max(EffectExpansion(e))
	}
	return out
}
