// Command compositor-demo renders a sample frame with the software
// backend and writes it to a PNG.
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend/software"
	"github.com/gogpu/compositor/render"
)

func main() {
	var (
		width  = flag.Int("width", 800, "image width")
		height = flag.Int("height", 600, "image height")
		output = flag.String("output", "demo.png", "output file")
	)
	flag.Parse()

	renderer, err := render.NewFrameRenderer(software.New(), render.NewRendererConfig())
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer func() { _ = renderer.Close(context.Background()) }()

	batch := compositor.NewBatch()
	buildBackground(batch, float32(*width), float32(*height))
	buildCards(batch)
	buildGlowLayer(batch)
	buildGlassPanel(batch)

	target := render.NewPixmapTarget(*width, *height)
	if err := renderer.Render(target, batch); err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer f.Close()
	if err := png.Encode(f, target.Image()); err != nil {
		log.Fatalf("Failed to encode PNG: %v", err)
	}

	log.Printf("Demo saved to %s (%dx%d)\n", *output, *width, *height)
}

func buildBackground(batch *compositor.Batch, w, h float32) {
	batch.PushPrimitive(compositor.Primitive{
		Bounds:        compositor.NewRect(0, 0, w, h),
		Color:         compositor.RGBA(0.10, 0.12, 0.22, 1),
		Color2:        compositor.RGBA(0.30, 0.18, 0.38, 1),
		GradientAngle: 1.2,
		Fill:          compositor.FillLinearGradient,
	}.WithIdentityFilter())
}

func buildCards(batch *compositor.Batch) {
	// A drop-shadowed card with a border.
	batch.PushPrimitive(compositor.Primitive{
		Bounds:       compositor.NewRect(80, 80, 240, 160),
		Radii:        compositor.CornerRadii{16, 16, 16, 16},
		Color:        compositor.RGBA(0.95, 0.95, 0.98, 1),
		BorderWidth:  2,
		BorderColor:  compositor.RGBA(0.4, 0.5, 0.9, 1),
		ShadowOffset: compositor.Pt(0, 6),
		ShadowBlur:   18,
		ShadowColor:  compositor.RGBA(0, 0, 0, 0.45),
		Shape:        compositor.ShapeRoundedRect,
	}.WithIdentityFilter())

	// A radial-gradient disc.
	batch.PushPrimitive(compositor.Primitive{
		Bounds:         compositor.NewRect(400, 80, 160, 160),
		Color:          compositor.RGBA(1, 0.8, 0.2, 1),
		Color2:         compositor.RGBA(0.9, 0.2, 0.1, 1),
		GradientCenter: compositor.Pt(480, 160),
		GradientRadius: 80,
		Shape:          compositor.ShapeCircle,
		Fill:           compositor.FillRadialGradient,
	}.WithIdentityFilter())

	// A polyline across the middle.
	for i := 0; i < 8; i++ {
		x0 := 80 + float32(i)*80
		y0 := float32(320)
		y1 := float32(360)
		if i%2 == 1 {
			y0, y1 = y1, y0
		}
		batch.PushLine(compositor.LineSegment{
			P0:    compositor.Pt(x0, y0),
			P1:    compositor.Pt(x0+80, y1),
			Width: 3,
			Color: compositor.RGBA(0.5, 0.9, 1, 1),
		})
	}
}

func buildGlowLayer(batch *compositor.Batch) {
	glow := compositor.GlowEffect{
		Color:   compositor.RGBA(0.2, 1, 0.6, 1),
		Blur:    12,
		Range:   10,
		Opacity: 0.8,
	}
	batch.PushLayer(compositor.NewLayerConfig().WithEffect(glow))
	batch.PushPrimitive(compositor.Primitive{
		Bounds: compositor.NewRect(620, 100, 110, 110),
		Radii:  compositor.CornerRadii{24, 24, 24, 24},
		Color:  compositor.RGBA(0.1, 0.7, 0.4, 1),
		Shape:  compositor.ShapeRoundedRect,
	}.WithIdentityFilter())
	batch.PopLayer()
}

func buildGlassPanel(batch *compositor.Batch) {
	batch.PushGlass(compositor.GlassPanel{
		Bounds:      compositor.NewRect(200, 400, 400, 140),
		Radii:       compositor.CornerRadii{20, 20, 20, 20},
		BlurRadius:  16,
		Tint:        compositor.RGBA(1, 1, 1, 0.12),
		NoiseAmount: 0.02,
	})
}
