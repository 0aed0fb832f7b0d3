// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// sampleBilinear reads a premultiplied color at a fractional position
// with edge clamping.
func sampleBilinear(img *image.RGBA, x, y float32) rgba {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	fx := x - 0.5
	fy := y - 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := loadPixel(img, clampInt(x0, 0, w-1), clampInt(y0, 0, h-1))
	c10 := loadPixel(img, clampInt(x0+1, 0, w-1), clampInt(y0, 0, h-1))
	c01 := loadPixel(img, clampInt(x0, 0, w-1), clampInt(y0+1, 0, h-1))
	c11 := loadPixel(img, clampInt(x0+1, 0, w-1), clampInt(y0+1, 0, h-1))

	lerp := func(a, b rgba, t float32) rgba {
		return rgba{
			a.r + (b.r-a.r)*t,
			a.g + (b.g-a.g)*t,
			a.b + (b.b-a.b)*t,
			a.a + (b.a-a.a)*t,
		}
	}
	return lerp(lerp(c00, c10, tx), lerp(c01, c11, tx), ty)
}

// BlurPass runs one Kawase step: the average of four diagonal taps at
// the given offset. Offset zero degenerates to a copy.
func (b *Backend) BlurPass(dst, src *render.LayerTexture, offset float32, preserveAlpha bool) error {
	dimg, err := layerImage(dst)
	if err != nil {
		return err
	}
	simg, err := layerImage(src)
	if err != nil {
		return err
	}
	w := min(dst.W, src.W)
	h := min(dst.H, src.H)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5
			var c rgba
			if offset <= 0 {
				c = loadPixel(simg, x, y)
			} else {
				c00 := sampleBilinear(simg, px-offset, py-offset)
				c10 := sampleBilinear(simg, px+offset, py-offset)
				c01 := sampleBilinear(simg, px-offset, py+offset)
				c11 := sampleBilinear(simg, px+offset, py+offset)
				c = rgba{
					(c00.r + c10.r + c01.r + c11.r) / 4,
					(c00.g + c10.g + c01.g + c11.g) / 4,
					(c00.b + c10.b + c01.b + c11.b) / 4,
					(c00.a + c10.a + c01.a + c11.a) / 4,
				}
			}
			if preserveAlpha {
				c.a = loadPixel(simg, x, y).a
			}
			storePixel(dimg, x, y, c)
		}
	}
	return nil
}

// ShadowComposite paints the blurred silhouette tinted and offset
// behind the original content.
func (b *Backend) ShadowComposite(dst, blurred, original *render.LayerTexture, effect compositor.DropShadowEffect) error {
	dimg, err := layerImage(dst)
	if err != nil {
		return err
	}
	bimg, err := layerImage(blurred)
	if err != nil {
		return err
	}
	oimg, err := layerImage(original)
	if err != nil {
		return err
	}
	tint := premult(effect.Color)
	w := min(dst.W, original.W)
	h := min(dst.H, original.H)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := float32(x) + 0.5
			py := float32(y) + 0.5
			a := sampleBilinear(bimg, px-effect.OffsetX, py-effect.OffsetY).a
			shadow := tint.scale(a)
			o := loadPixel(oimg, x, y)
			inv := 1 - o.a
			storePixel(dimg, x, y, rgba{
				o.r + shadow.r*inv,
				o.g + shadow.g*inv,
				o.b + shadow.b*inv,
				o.a + shadow.a*inv,
			})
		}
	}
	return nil
}

// GlowComposite paints the blurred halo tinted behind the original
// content, scaled by the glow opacity.
func (b *Backend) GlowComposite(dst, blurred, original *render.LayerTexture, effect compositor.GlowEffect) error {
	dimg, err := layerImage(dst)
	if err != nil {
		return err
	}
	bimg, err := layerImage(blurred)
	if err != nil {
		return err
	}
	oimg, err := layerImage(original)
	if err != nil {
		return err
	}
	tint := premult(effect.Color)
	w := min(dst.W, original.W)
	h := min(dst.H, original.H)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := loadPixel(bimg, min(x, blurred.W-1), min(y, blurred.H-1)).a * effect.Opacity
			glow := tint.scale(clamp01(a))
			o := loadPixel(oimg, x, y)
			inv := 1 - o.a
			storePixel(dimg, x, y, rgba{
				o.r + glow.r*inv,
				o.g + glow.g*inv,
				o.b + glow.b*inv,
				o.a + glow.a*inv,
			})
		}
	}
	return nil
}

// ColorMatrixPass applies a 4x5 affine color transform in straight
// alpha.
func (b *Backend) ColorMatrixPass(dst, src *render.LayerTexture, matrix [20]float32) error {
	dimg, err := layerImage(dst)
	if err != nil {
		return err
	}
	simg, err := layerImage(src)
	if err != nil {
		return err
	}
	w := min(dst.W, src.W)
	h := min(dst.H, src.H)
	m := matrix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := loadPixel(simg, x, y)
			var r, g, bl float32
			if c.a > 0 {
				r, g, bl = c.r/c.a, c.g/c.a, c.b/c.a
			}
			a := c.a
			nr := clamp01(m[0]*r + m[1]*g + m[2]*bl + m[3]*a + m[4])
			ng := clamp01(m[5]*r + m[6]*g + m[7]*bl + m[8]*a + m[9])
			nb := clamp01(m[10]*r + m[11]*g + m[12]*bl + m[13]*a + m[14])
			na := clamp01(m[15]*r + m[16]*g + m[17]*bl + m[18]*a + m[19])
			storePixel(dimg, x, y, rgba{nr * na, ng * na, nb * na, na})
		}
	}
	return nil
}

// Composite blends the srcRect region of src into the dstRect region
// of dst, scaling when the rects differ in size. Output never escapes
// the scissor rectangle.
func (b *Backend) Composite(dst render.Surface, src *render.LayerTexture, srcRect, dstRect, scissor compositor.Rect, opacity float32, mode compositor.BlendMode) error {
	dimg, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	simg, err := layerImage(src)
	if err != nil {
		return err
	}
	if opacity <= 0 || dstRect.Empty() || srcRect.Empty() {
		return nil
	}

	region := dstRect.Intersect(scissor)
	x0, y0, x1, y1, ok := pixelSpan(dimg, region, compositor.Rect{
		MinX: 0, MinY: 0,
		MaxX: float32(dimg.Bounds().Dx()),
		MaxY: float32(dimg.Bounds().Dy()),
	})
	if !ok {
		return nil
	}

	sr := image.Rect(
		int(srcRect.MinX), int(srcRect.MinY),
		int(math32.Ceil(srcRect.MaxX)), int(math32.Ceil(srcRect.MaxY)),
	).Intersect(simg.Bounds())
	if sr.Empty() {
		return nil
	}

	dw := int(math32.Ceil(dstRect.Width()))
	dh := int(math32.Ceil(dstRect.Height()))
	source := simg.SubImage(sr).(*image.RGBA)
	if sr.Dx() != dw || sr.Dy() != dh {
		scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), source, sr, xdraw.Src, nil)
		source = scaled
		sr = scaled.Bounds()
	}

	opacity = clamp01(opacity)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sx := sr.Min.X + x - int(dstRect.MinX)
			sy := sr.Min.Y + y - int(dstRect.MinY)
			if sx < sr.Min.X || sy < sr.Min.Y || sx >= sr.Max.X || sy >= sr.Max.Y {
				continue
			}
			s := loadPixel(source, sx, sy).scale(opacity)
			if s.a <= 0 && s.r <= 0 && s.g <= 0 && s.b <= 0 {
				continue
			}
			d := loadPixel(dimg, x, y)
			storePixel(dimg, x, y, blendMode(s, d, mode))
		}
	}
	return nil
}

// blendMode combines premultiplied source and destination colors.
func blendMode(s, d rgba, mode compositor.BlendMode) rgba {
	switch mode {
	case compositor.BlendAdditive:
		return rgba{
			clamp01(s.r + d.r),
			clamp01(s.g + d.g),
			clamp01(s.b + d.b),
			clamp01(s.a + d.a),
		}
	case compositor.BlendMultiply:
		return rgba{
			s.r*d.r + s.r*(1-d.a) + d.r*(1-s.a),
			s.g*d.g + s.g*(1-d.a) + d.g*(1-s.a),
			s.b*d.b + s.b*(1-d.a) + d.b*(1-s.a),
			s.a + d.a*(1-s.a),
		}
	case compositor.BlendScreen:
		return rgba{
			s.r + d.r - s.r*d.r,
			s.g + d.g - s.g*d.g,
			s.b + d.b - s.b*d.b,
			s.a + d.a - s.a*d.a,
		}
	default:
		inv := 1 - s.a
		return rgba{
			s.r + d.r*inv,
			s.g + d.g*inv,
			s.b + d.b*inv,
			s.a + d.a*inv,
		}
	}
}
