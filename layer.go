package compositor

// LayerConfig describes how a pushed layer composites back into its
// parent. It is an immutable value: construct with NewLayerConfig and
// derive variants through the With* methods, which return copies.
type LayerConfig struct {
	opacity  float32
	blend    BlendMode
	hasFrame bool
	frame    Rect
	effects  []Effect
}

// NewLayerConfig returns a fully opaque, normally blended layer
// configuration with no effects.
func NewLayerConfig() LayerConfig {
	return LayerConfig{opacity: 1}
}

// WithOpacity returns a copy with the composite opacity set, clamped
// to [0, 1].
func (c LayerConfig) WithOpacity(opacity float32) LayerConfig {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	c.opacity = opacity
	return c
}

// WithBlendMode returns a copy with the composite blend mode set.
func (c LayerConfig) WithBlendMode(mode BlendMode) LayerConfig {
	c.blend = mode
	return c
}

// WithFrame returns a copy with an explicit position and size. Without
// a frame, the layer's region is derived from the primitives it
// contains.
func (c LayerConfig) WithFrame(frame Rect) LayerConfig {
	c.hasFrame = true
	c.frame = frame
	return c
}

// WithEffect returns a copy with e appended to the effect chain.
// Effects execute in the order added.
func (c LayerConfig) WithEffect(e Effect) LayerConfig {
	effects := make([]Effect, 0, len(c.effects)+1)
	effects = append(effects, c.effects...)
	effects = append(effects, e)
	c.effects = effects
	return c
}

// Opacity returns the composite opacity in [0, 1].
func (c LayerConfig) Opacity() float32 { return c.opacity }

// BlendMode returns the composite blend mode.
func (c LayerConfig) BlendMode() BlendMode { return c.blend }

// Frame returns the explicit frame and whether one was set.
func (c LayerConfig) Frame() (Rect, bool) { return c.frame, c.hasFrame }

// Effects returns the ordered effect chain. The returned slice must
// not be mutated.
func (c LayerConfig) Effects() []Effect { return c.effects }

// HasEffects reports whether the chain is non-empty.
func (c LayerConfig) HasEffects() bool { return len(c.effects) > 0 }

// LayerCommandKind identifies a layer command.
type LayerCommandKind uint8

const (
	// PushLayer opens a nested layer region.
	PushLayer LayerCommandKind = iota
	// PopLayer closes the innermost open layer region.
	PopLayer
	// SampleLayer draws a previously stored named texture into the
	// current coordinate space. Sample commands are independent of
	// push/pop nesting.
	SampleLayer
)

// LayerCommand is one entry in a batch's layer-command log, anchored
// to the primitive index at which it was recorded. Push and Pop are
// always balanced and nest; a layer's primitive range is
// [push.PrimitiveIndex, matching pop.PrimitiveIndex).
type LayerCommand struct {
	Kind           LayerCommandKind
	PrimitiveIndex int

	// PushLayer only.
	Config LayerConfig

	// SampleLayer only.
	SampleID uint64
	SrcRect  Rect
	DstRect  Rect
}
