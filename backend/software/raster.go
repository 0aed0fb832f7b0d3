// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"image"

	"github.com/chewxy/math32"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// rgba is a premultiplied float color, the working representation of
// every blend in this package.
type rgba struct {
	r, g, b, a float32
}

func premult(c compositor.Color) rgba {
	p := c.Premultiply()
	return rgba{p.R, p.G, p.B, p.A}
}

func (c rgba) scale(s float32) rgba {
	return rgba{c.r * s, c.g * s, c.b * s, c.a * s}
}

func loadPixel(img *image.RGBA, x, y int) rgba {
	i := img.PixOffset(x, y)
	return rgba{
		float32(img.Pix[i]) / 255,
		float32(img.Pix[i+1]) / 255,
		float32(img.Pix[i+2]) / 255,
		float32(img.Pix[i+3]) / 255,
	}
}

func storePixel(img *image.RGBA, x, y int, c rgba) {
	i := img.PixOffset(x, y)
	img.Pix[i] = floatByte(c.r)
	img.Pix[i+1] = floatByte(c.g)
	img.Pix[i+2] = floatByte(c.b)
	img.Pix[i+3] = floatByte(c.a)
}

// blendOver source-overs a premultiplied color onto a pixel.
func blendOver(img *image.RGBA, x, y int, src rgba) {
	if src.a <= 0 && src.r <= 0 && src.g <= 0 && src.b <= 0 {
		return
	}
	d := loadPixel(img, x, y)
	inv := 1 - src.a
	storePixel(img, x, y, rgba{
		src.r + d.r*inv,
		src.g + d.g*inv,
		src.b + d.b*inv,
		src.a + d.a*inv,
	})
}

// pixelSpan clamps a float rect to integer pixel coordinates within
// both the image and the viewport.
func pixelSpan(img *image.RGBA, area, viewport compositor.Rect) (x0, y0, x1, y1 int, ok bool) {
	r := area.Intersect(viewport)
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	x0 = max(0, int(math32.Floor(r.MinX)))
	y0 = max(0, int(math32.Floor(r.MinY)))
	x1 = min(img.Bounds().Dx(), int(math32.Ceil(r.MaxX)))
	y1 = min(img.Bounds().Dy(), int(math32.Ceil(r.MaxY)))
	return x0, y0, x1, y1, x0 < x1 && y0 < y1
}

// roundedRectSDF returns the signed distance from p to a rounded
// rectangle, negative inside. The radius is chosen per quadrant.
func roundedRectSDF(p compositor.Point, bounds compositor.Rect, radii compositor.CornerRadii) float32 {
	cx := (bounds.MinX + bounds.MaxX) / 2
	cy := (bounds.MinY + bounds.MaxY) / 2
	hx := bounds.Width() / 2
	hy := bounds.Height() / 2

	var r float32
	switch {
	case p.X < cx && p.Y < cy:
		r = radii[compositor.CornerTopLeft]
	case p.X >= cx && p.Y < cy:
		r = radii[compositor.CornerTopRight]
	case p.X >= cx && p.Y >= cy:
		r = radii[compositor.CornerBottomRight]
	default:
		r = radii[compositor.CornerBottomLeft]
	}

	qx := math32.Abs(p.X-cx) - hx + r
	qy := math32.Abs(p.Y-cy) - hy + r
	outside := math32.Hypot(math32.Max(qx, 0), math32.Max(qy, 0))
	inside := math32.Min(math32.Max(qx, qy), 0)
	return outside + inside - r
}

// shapeSDF returns the signed distance for a primitive's geometry.
func shapeSDF(p compositor.Point, bounds compositor.Rect, radii compositor.CornerRadii, shape compositor.ShapeKind) float32 {
	switch shape {
	case compositor.ShapeCircle:
		cx := (bounds.MinX + bounds.MaxX) / 2
		cy := (bounds.MinY + bounds.MaxY) / 2
		r := math32.Min(bounds.Width(), bounds.Height()) / 2
		return math32.Hypot(p.X-cx, p.Y-cy) - r
	case compositor.ShapeEllipse:
		cx := (bounds.MinX + bounds.MaxX) / 2
		cy := (bounds.MinY + bounds.MaxY) / 2
		rx := bounds.Width() / 2
		ry := bounds.Height() / 2
		if rx <= 0 || ry <= 0 {
			return 1
		}
		// Scaled-space approximation; exact ellipse distance is not
		// worth it for one pixel of antialiasing.
		k := math32.Hypot((p.X-cx)/rx, (p.Y-cy)/ry)
		return (k - 1) * math32.Min(rx, ry)
	default:
		return roundedRectSDF(p, bounds, radii)
	}
}

func coverage(d float32) float32 {
	return clamp01(0.5 - d)
}

func clamp01(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}

// clipCoverage evaluates the resolved clip baked into a draw record.
// Shape clips carry their parameters packed in the radii vector; the
// draw offset has already been folded into bounds and packed centers
// by the caller.
func clipCoverage(p compositor.Point, kind compositor.ClipKind, bounds compositor.Rect, radii compositor.CornerRadii) float32 {
	switch kind {
	case compositor.ClipNone:
		return 1
	case compositor.ClipRect:
		if bounds.Contains(p) {
			return 1
		}
		return 0
	case compositor.ClipRoundedRect:
		return coverage(roundedRectSDF(p, bounds, radii))
	case compositor.ClipCircle:
		d := math32.Hypot(p.X-radii[0], p.Y-radii[1]) - radii[2]
		return coverage(d)
	case compositor.ClipEllipse:
		rx, ry := radii[2], radii[3]
		if rx <= 0 || ry <= 0 {
			return 0
		}
		k := math32.Hypot((p.X-radii[0])/rx, (p.Y-radii[1])/ry)
		return coverage((k - 1) * math32.Min(rx, ry))
	case compositor.ClipPolygon:
		// Polygon vertex data lives in a side buffer the CPU path does
		// not receive; fall back to the polygon's bounding rect.
		if bounds.Contains(p) {
			return 1
		}
		return 0
	default:
		return 1
	}
}

// shiftClipRadii folds a draw offset into packed shape-clip centers.
func shiftClipRadii(kind compositor.ClipKind, radii compositor.CornerRadii, offset compositor.Point) compositor.CornerRadii {
	switch kind {
	case compositor.ClipCircle, compositor.ClipEllipse:
		radii[0] += offset.X
		radii[1] += offset.Y
	}
	return radii
}

// DrawPrimitives rasterizes filled primitives with analytic edge
// antialiasing.
func (b *Backend) DrawPrimitives(dst render.Surface, prims []compositor.Primitive, offset compositor.Point, viewport compositor.Rect) error {
	img, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	for i := range prims {
		b.drawPrimitive(img, &prims[i], offset, viewport)
	}
	return nil
}

func (b *Backend) drawPrimitive(img *image.RGBA, prim *compositor.Primitive, offset compositor.Point, viewport compositor.Rect) {
	bounds := prim.Bounds.Translate(offset)
	clipBounds := prim.ClipBounds.Translate(offset)
	clipRadii := shiftClipRadii(prim.Clip, prim.ClipRadii, offset)

	if prim.ShadowBlur > 0 && !prim.ShadowColor.IsTransparent() {
		b.drawPrimitiveShadow(img, prim, bounds, clipBounds, clipRadii, viewport)
	}

	x0, y0, x1, y1, ok := pixelSpan(img, bounds, viewport)
	if !ok {
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := compositor.Pt(float32(x)+0.5, float32(y)+0.5)
			d := shapeSDF(p, bounds, prim.Radii, prim.Shape)
			cov := coverage(d)
			if cov <= 0 {
				continue
			}
			cov *= clipCoverage(p, prim.Clip, clipBounds, clipRadii)
			if cov <= 0 {
				continue
			}
			c := fillColor(prim, p, bounds, offset)
			c = applyFilter(prim, c)
			blendOver(img, x, y, premult(c).scale(cov))
		}
	}
}

// drawPrimitiveShadow paints the primitive's soft drop shadow behind
// it: the shape silhouette offset and faded out over the blur radius.
func (b *Backend) drawPrimitiveShadow(img *image.RGBA, prim *compositor.Primitive, bounds, clipBounds compositor.Rect, clipRadii compositor.CornerRadii, viewport compositor.Rect) {
	blur := prim.ShadowBlur
	area := bounds.
		Translate(prim.ShadowOffset).
		Outset(blur, blur, blur, blur)
	x0, y0, x1, y1, ok := pixelSpan(img, area, viewport)
	if !ok {
		return
	}
	shadow := premult(prim.ShadowColor)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := compositor.Pt(float32(x)+0.5, float32(y)+0.5)
			d := shapeSDF(p.Sub(prim.ShadowOffset), bounds, prim.Radii, prim.Shape)
			// Linear falloff from the silhouette edge out to the blur
			// radius reads close enough to a true Gaussian penumbra.
			a := clamp01(0.5 - d/math32.Max(blur, 1))
			if a <= 0 {
				continue
			}
			a *= clipCoverage(p, prim.Clip, clipBounds, clipRadii)
			if a <= 0 {
				continue
			}
			blendOver(img, x, y, shadow.scale(a))
		}
	}
}

// fillColor evaluates the primitive's fill at a pixel, including the
// border ring.
func fillColor(prim *compositor.Primitive, p compositor.Point, bounds compositor.Rect, offset compositor.Point) compositor.Color {
	if prim.BorderWidth > 0 && !prim.BorderColor.IsTransparent() {
		d := shapeSDF(p, bounds, prim.Radii, prim.Shape)
		if d > -prim.BorderWidth {
			return prim.BorderColor
		}
	}
	switch prim.Fill {
	case compositor.FillLinearGradient:
		dirX := math32.Cos(prim.GradientAngle)
		dirY := math32.Sin(prim.GradientAngle)
		cx := (bounds.MinX + bounds.MaxX) / 2
		cy := (bounds.MinY + bounds.MaxY) / 2
		half := math32.Abs(dirX)*bounds.Width()/2 + math32.Abs(dirY)*bounds.Height()/2
		if half <= 0 {
			return prim.Color
		}
		t := ((p.X-cx)*dirX + (p.Y-cy)*dirY) / (2 * half)
		return prim.Color.Lerp(prim.Color2, clamp01(t+0.5))
	case compositor.FillRadialGradient:
		if prim.GradientRadius <= 0 {
			return prim.Color
		}
		center := prim.GradientCenter.Add(offset)
		t := math32.Hypot(p.X-center.X, p.Y-center.Y) / prim.GradientRadius
		return prim.Color.Lerp(prim.Color2, clamp01(t))
	default:
		return prim.Color
	}
}

// applyFilter applies the CSS-style per-fragment filter coefficients.
// An all-zero coefficient set means the producer never set them and is
// treated as the identity.
func applyFilter(prim *compositor.Primitive, c compositor.Color) compositor.Color {
	if prim.Brightness == 0 && prim.Contrast == 0 && prim.Saturation == 0 && prim.HueRotate == 0 {
		return c
	}
	r, g, b := c.R*prim.Brightness, c.G*prim.Brightness, c.B*prim.Brightness

	r = (r-0.5)*prim.Contrast + 0.5
	g = (g-0.5)*prim.Contrast + 0.5
	b = (b-0.5)*prim.Contrast + 0.5

	luma := 0.2126*r + 0.7152*g + 0.0722*b
	r = luma + (r-luma)*prim.Saturation
	g = luma + (g-luma)*prim.Saturation
	b = luma + (b-luma)*prim.Saturation

	if prim.HueRotate != 0 {
		cos := math32.Cos(prim.HueRotate)
		sin := math32.Sin(prim.HueRotate)
		nr := r*(0.213+cos*0.787-sin*0.213) + g*(0.715-cos*0.715-sin*0.715) + b*(0.072-cos*0.072+sin*0.928)
		ng := r*(0.213-cos*0.213+sin*0.143) + g*(0.715+cos*0.285+sin*0.140) + b*(0.072-cos*0.072-sin*0.283)
		nb := r*(0.213-cos*0.213-sin*0.787) + g*(0.715-cos*0.715+sin*0.715) + b*(0.072+cos*0.928+sin*0.072)
		r, g, b = nr, ng, nb
	}

	return compositor.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b), A: c.A}
}

// DrawLines rasterizes polyline segments as capsules: distance to the
// segment against half the stroke width.
func (b *Backend) DrawLines(dst render.Surface, lines []compositor.LineSegment, offset compositor.Point, viewport compositor.Rect) error {
	img, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	for i := range lines {
		seg := &lines[i]
		p0 := seg.P0.Add(offset)
		p1 := seg.P1.Add(offset)
		half := math32.Max(seg.Width/2, 0.5)
		area := compositor.Rect{
			MinX: math32.Min(p0.X, p1.X) - half - 1,
			MinY: math32.Min(p0.Y, p1.Y) - half - 1,
			MaxX: math32.Max(p0.X, p1.X) + half + 1,
			MaxY: math32.Max(p0.Y, p1.Y) + half + 1,
		}
		x0, y0, x1, y1, ok := pixelSpan(img, area, viewport)
		if !ok {
			continue
		}
		clipBounds := seg.ClipBounds.Translate(offset)
		clipRadii := shiftClipRadii(seg.Clip, seg.ClipRadii, offset)
		col := premult(seg.Color)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				p := compositor.Pt(float32(x)+0.5, float32(y)+0.5)
				cov := coverage(segmentDistance(p, p0, p1) - half + 0.5)
				if cov <= 0 {
					continue
				}
				cov *= clipCoverage(p, seg.Clip, clipBounds, clipRadii)
				if cov <= 0 {
					continue
				}
				blendOver(img, x, y, col.scale(cov))
			}
		}
	}
	return nil
}

func segmentDistance(p, a, b compositor.Point) float32 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	t := float32(0)
	if lenSq > 0 {
		t = clamp01((ap.X*ab.X + ap.Y*ab.Y) / lenSq)
	}
	return math32.Hypot(ap.X-ab.X*t, ap.Y-ab.Y*t)
}

// DrawPaths fills tessellated triangles with interpolated vertex
// colors, one clip per run.
func (b *Backend) DrawPaths(dst render.Surface, batch *compositor.PathBatch, offset compositor.Point, viewport compositor.Rect) error {
	if batch.Empty() {
		return nil
	}
	img, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	for _, run := range batch.Runs {
		clipBounds := run.ClipBounds.Translate(offset)
		clipRadii := shiftClipRadii(run.Clip, run.ClipRadii, offset)
		end := run.IndexOffset + run.IndexCount
		for i := run.IndexOffset; i+2 < end && int(i)+2 < len(batch.Indices); i += 3 {
			i0, i1, i2 := batch.Indices[i], batch.Indices[i+1], batch.Indices[i+2]
			if int(i0) >= len(batch.Vertices) || int(i1) >= len(batch.Vertices) || int(i2) >= len(batch.Vertices) {
				continue
			}
			fillTriangle(img,
				batch.Vertices[i0], batch.Vertices[i1], batch.Vertices[i2],
				offset, viewport, run.Clip, clipBounds, clipRadii)
		}
	}
	return nil
}

func fillTriangle(img *image.RGBA, v0, v1, v2 compositor.PathVertex, offset compositor.Point, viewport compositor.Rect, clip compositor.ClipKind, clipBounds compositor.Rect, clipRadii compositor.CornerRadii) {
	a := v0.Pos.Add(offset)
	bp := v1.Pos.Add(offset)
	c := v2.Pos.Add(offset)

	area := compositor.Rect{
		MinX: math32.Min(a.X, math32.Min(bp.X, c.X)),
		MinY: math32.Min(a.Y, math32.Min(bp.Y, c.Y)),
		MaxX: math32.Max(a.X, math32.Max(bp.X, c.X)),
		MaxY: math32.Max(a.Y, math32.Max(bp.Y, c.Y)),
	}
	x0, y0, x1, y1, ok := pixelSpan(img, area, viewport)
	if !ok {
		return
	}

	d := (bp.Y-c.Y)*(a.X-c.X) + (c.X-bp.X)*(a.Y-c.Y)
	if d == 0 {
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := compositor.Pt(float32(x)+0.5, float32(y)+0.5)
			w0 := ((bp.Y-c.Y)*(p.X-c.X) + (c.X-bp.X)*(p.Y-c.Y)) / d
			w1 := ((c.Y-a.Y)*(p.X-c.X) + (a.X-c.X)*(p.Y-c.Y)) / d
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			cov := clipCoverage(p, clip, clipBounds, clipRadii)
			if cov <= 0 {
				continue
			}
			col := compositor.Color{
				R: v0.Color.R*w0 + v1.Color.R*w1 + v2.Color.R*w2,
				G: v0.Color.G*w0 + v1.Color.G*w1 + v2.Color.G*w2,
				B: v0.Color.B*w0 + v1.Color.B*w1 + v2.Color.B*w2,
				A: v0.Color.A*w0 + v1.Color.A*w1 + v2.Color.A*w2,
			}
			blendOver(img, x, y, premult(col).scale(cov))
		}
	}
}

// DrawGlass blurs the content already behind each panel and draws it
// back tinted inside the panel's rounded rectangle.
func (b *Backend) DrawGlass(dst render.Surface, panels []compositor.GlassPanel, viewport compositor.Rect) error {
	img, err := surfaceImage(dst)
	if err != nil {
		return err
	}
	for i := range panels {
		drawGlassPanel(img, &panels[i], viewport)
	}
	return nil
}

func drawGlassPanel(img *image.RGBA, panel *compositor.GlassPanel, viewport compositor.Rect) {
	radius := int(math32.Ceil(panel.BlurRadius))
	grab := panel.Bounds.Outset(float32(radius), float32(radius), float32(radius), float32(radius))
	gx0, gy0, gx1, gy1, ok := pixelSpan(img, grab, viewport)
	if !ok {
		return
	}
	backdrop := image.NewRGBA(image.Rect(0, 0, gx1-gx0, gy1-gy0))
	for y := gy0; y < gy1; y++ {
		copy(backdrop.Pix[(y-gy0)*backdrop.Stride:(y-gy0)*backdrop.Stride+(gx1-gx0)*4],
			img.Pix[img.PixOffset(gx0, y):img.PixOffset(gx1, y)])
	}
	if radius > 0 {
		boxBlur(backdrop, radius)
	}

	x0, y0, x1, y1, ok := pixelSpan(img, panel.Bounds, viewport)
	if !ok {
		return
	}
	tint := panel.Tint
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := compositor.Pt(float32(x)+0.5, float32(y)+0.5)
			cov := coverage(roundedRectSDF(p, panel.Bounds, panel.Radii))
			if cov <= 0 {
				continue
			}
			cov *= clipCoverage(p, panel.Clip, panel.ClipBounds, panel.ClipRadii)
			if cov <= 0 {
				continue
			}
			c := loadPixel(backdrop, x-gx0, y-gy0)
			if tint.A > 0 {
				t := premult(tint)
				inv := 1 - t.a
				c = rgba{t.r + c.r*inv, t.g + c.g*inv, t.b + c.b*inv, t.a + c.a*inv}
			}
			if panel.NoiseAmount > 0 {
				n := (hash2(x, y) - 0.5) * panel.NoiseAmount
				c.r = clamp01(c.r + n*c.a)
				c.g = clamp01(c.g + n*c.a)
				c.b = clamp01(c.b + n*c.a)
			}
			d := loadPixel(img, x, y)
			inv := 1 - cov
			storePixel(img, x, y, rgba{
				c.r*cov + d.r*inv,
				c.g*cov + d.g*inv,
				c.b*cov + d.b*inv,
				c.a*cov + d.a*inv,
			})
		}
	}
}

// boxBlur runs a separable box blur over the whole image in place.
func boxBlur(img *image.RGBA, radius int) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	tmp := image.NewRGBA(img.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc rgba
			n := float32(0)
			for dx := -radius; dx <= radius; dx++ {
				sx := clampInt(x+dx, 0, w-1)
				c := loadPixel(img, sx, y)
				acc.r += c.r
				acc.g += c.g
				acc.b += c.b
				acc.a += c.a
				n++
			}
			storePixel(tmp, x, y, acc.scale(1/n))
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc rgba
			n := float32(0)
			for dy := -radius; dy <= radius; dy++ {
				sy := clampInt(y+dy, 0, h-1)
				c := loadPixel(tmp, x, sy)
				acc.r += c.r
				acc.g += c.g
				acc.b += c.b
				acc.a += c.a
				n++
			}
			storePixel(img, x, y, acc.scale(1/n))
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hash2 is a cheap deterministic per-pixel noise source.
func hash2(x, y int) float32 {
	h := uint32(x)*374761393 + uint32(y)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	return float32(h^(h>>16)) / float32(^uint32(0))
}
