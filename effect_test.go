package compositor

import "testing"

func TestEffectExpansion(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		want   Expansion
	}{
		{
			name:   "blur expands twice radius on all sides",
			effect: BlurEffect{Radius: 10},
			want:   Expansion{Left: 20, Top: 20, Right: 20, Bottom: 20},
		},
		{
			name:   "shadow biased toward positive offset",
			effect: DropShadowEffect{OffsetX: 5, OffsetY: 3, Blur: 4, Spread: 2},
			want:   Expansion{Left: 10, Top: 10, Right: 15, Bottom: 13},
		},
		{
			name:   "shadow biased toward negative offset",
			effect: DropShadowEffect{OffsetX: -6, OffsetY: -1, Blur: 2, Spread: 0},
			want:   Expansion{Left: 10, Top: 5, Right: 4, Bottom: 4},
		},
		{
			name:   "glow expands blur plus range",
			effect: GlowEffect{Blur: 3, Range: 4},
			want:   Expansion{Left: 14, Top: 14, Right: 14, Bottom: 14},
		},
		{
			name:   "color matrix needs no margin",
			effect: ColorMatrixEffect{},
			want:   Expansion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectExpansion(tt.effect); got != tt.want {
				t.Errorf("EffectExpansion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChainExpansion_PerEdgeMax(t *testing.T) {
	chain := []Effect{
		BlurEffect{Radius: 5},                         // 10 all sides
		DropShadowEffect{OffsetX: 20, Blur: 1},        // left/top/bottom 2, right 22
		ColorMatrixEffect{},                           // nothing
	}
	got := ChainExpansion(chain)
	want := Expansion{Left: 10, Top: 10, Right: 22, Bottom: 10}
	if got != want {
		t.Errorf("ChainExpansion() = %+v, want %+v", got, want)
	}
}

func TestChainExpansion_Empty(t *testing.T) {
	if got := ChainExpansion(nil); !got.IsZero() {
		t.Errorf("ChainExpansion(nil) = %+v, want zero", got)
	}
}

func TestLayerConfig_BuilderCopies(t *testing.T) {
	base := NewLayerConfig()
	blurred := base.WithEffect(BlurEffect{Radius: 8})
	faded := blurred.WithOpacity(0.25)

	if base.HasEffects() {
		t.Error("base.HasEffects() = true, want false (WithEffect must copy)")
	}
	if got := blurred.Opacity(); got != 1 {
		t.Errorf("blurred.Opacity() = %v, want 1 (WithOpacity must copy)", got)
	}
	if got := faded.Opacity(); got != 0.25 {
		t.Errorf("faded.Opacity() = %v, want 0.25", got)
	}
	if len(faded.Effects()) != 1 {
		t.Errorf("len(faded.Effects()) = %d, want 1", len(faded.Effects()))
	}
}

func TestLayerConfig_OpacityClamped(t *testing.T) {
	if got := NewLayerConfig().WithOpacity(1.5).Opacity(); got != 1 {
		t.Errorf("Opacity() = %v, want 1", got)
	}
	if got := NewLayerConfig().WithOpacity(-0.5).Opacity(); got != 0 {
		t.Errorf("Opacity() = %v, want 0", got)
	}
}

func TestLayerConfig_EffectOrderPreserved(t *testing.T) {
	cfg := NewLayerConfig().
		WithEffect(ColorMatrixEffect{}).
		WithEffect(BlurEffect{Radius: 2}).
		WithEffect(GlowEffect{Range: 1})

	effects := cfg.Effects()
	if len(effects) != 3 {
		t.Fatalf("len(Effects()) = %d, want 3", len(effects))
	}
	if _, ok := effects[0].(ColorMatrixEffect); !ok {
		t.Errorf("effects[0] = %T, want ColorMatrixEffect", effects[0])
	}
	if _, ok := effects[1].(BlurEffect); !ok {
		t.Errorf("effects[1] = %T, want BlurEffect", effects[1])
	}
	if _, ok := effects[2].(GlowEffect); !ok {
		t.Errorf("effects[2] = %T, want GlowEffect", effects[2])
	}
}
