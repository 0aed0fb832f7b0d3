package compositor

// Batch aggregates everything the renderer consumes for one frame:
// screen-space primitives, compact line segments, tessellated path
// geometry, glass panels, the layer-command log, and image operations.
// A batch is populated by the drawing layer, consumed exactly once,
// then cleared for reuse.
//
// Batches are not safe for concurrent use; batching and rendering are
// single-threaded per frame.
type Batch struct {
	Primitives []Primitive
	Lines      []LineSegment
	Paths      PathBatch
	Glass      []GlassPanel

	// AuxData holds variable-length per-primitive data referenced by
	// offset, such as polygon clip vertices.
	AuxData []float32

	LayerCommands []LayerCommand
	ImageOps      []ImageOp

	imageOrder      uint64
	lastImageOrder  uint64
	haveImageOrder  bool
	firstForeground uint64
	haveForeground  bool
	openLayers      int
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// PushPrimitive records a drawable instance and returns its index.
func (b *Batch) PushPrimitive(p Primitive) int {
	b.Primitives = append(b.Primitives, p)
	return len(b.Primitives) - 1
}

// PushLine records a polyline segment.
func (b *Batch) PushLine(l LineSegment) {
	b.Lines = append(b.Lines, l)
}

// PushGlass records a background-blur panel.
func (b *Batch) PushGlass(g GlassPanel) {
	b.Glass = append(b.Glass, g)
}

// PushAux appends auxiliary float data and returns its offset.
func (b *Batch) PushAux(data []float32) uint32 {
	off := uint32(len(b.AuxData))
	b.AuxData = append(b.AuxData, data...)
	return off
}

// PushLayer opens a layer region at the current primitive index.
func (b *Batch) PushLayer(cfg LayerConfig) {
	b.LayerCommands = append(b.LayerCommands, LayerCommand{
		Kind:           PushLayer,
		PrimitiveIndex: len(b.Primitives),
		Config:         cfg,
	})
	b.openLayers++
}

// PopLayer closes the innermost open layer region. An unmatched pop
// is ignored.
func (b *Batch) PopLayer() {
	if b.openLayers == 0 {
		return
	}
	b.LayerCommands = append(b.LayerCommands, LayerCommand{
		Kind:           PopLayer,
		PrimitiveIndex: len(b.Primitives),
	})
	b.openLayers--
}

// SampleLayer records a draw of the named texture id, mapping src in
// the stored texture to dst in the current coordinate space. Sampling
// is independent of push/pop nesting.
func (b *Batch) SampleLayer(id uint64, src, dst Rect) {
	b.LayerCommands = append(b.LayerCommands, LayerCommand{
		Kind:           SampleLayer,
		PrimitiveIndex: len(b.Primitives),
		SampleID:       id,
		SrcRect:        src,
		DstRect:        dst,
	})
}

// NextImageOrder returns the next monotonic image sequence number.
func (b *Batch) NextImageOrder() uint64 {
	order := b.imageOrder
	b.imageOrder++
	return order
}

// PushImageOp records an image operation after validating its sequence
// number. Orders must be strictly increasing across all image
// operations, and a background draw may not be sequenced after a
// foreground draw. Violations return ErrOrderViolation; the operation
// is not recorded.
func (b *Batch) PushImageOp(op ImageOp) error {
	if err := checkImageOrder(op, b.lastImageOrder, b.haveImageOrder, b.firstForeground, b.haveForeground); err != nil {
		return err
	}
	b.ImageOps = append(b.ImageOps, op)
	b.lastImageOrder = op.Order
	b.haveImageOrder = true
	if op.Kind == ImageOpDraw && op.Foreground && !b.haveForeground {
		b.firstForeground = op.Order
		b.haveForeground = true
	}
	if op.Order >= b.imageOrder {
		b.imageOrder = op.Order + 1
	}
	return nil
}

// HasEffects reports whether any layer command in the log pushes a
// configuration with a non-empty effect chain.
func (b *Batch) HasEffects() bool {
	for i := range b.LayerCommands {
		cmd := &b.LayerCommands[i]
		if cmd.Kind == PushLayer && cmd.Config.HasEffects() {
			return true
		}
	}
	return false
}

// Empty reports whether the batch contains nothing drawable.
func (b *Batch) Empty() bool {
	return len(b.Primitives) == 0 && len(b.Lines) == 0 && b.Paths.Empty() &&
		len(b.Glass) == 0 && len(b.LayerCommands) == 0 && len(b.ImageOps) == 0
}

// Clear empties the batch for the next frame, keeping allocated
// capacity. The image order counter restarts.
func (b *Batch) Clear() {
	b.Primitives = b.Primitives[:0]
	b.Lines = b.Lines[:0]
	b.Paths.Clear()
	b.Glass = b.Glass[:0]
	b.AuxData = b.AuxData[:0]
	b.LayerCommands = b.LayerCommands[:0]
	b.ImageOps = b.ImageOps[:0]
	b.imageOrder = 0
	b.lastImageOrder = 0
	b.haveImageOrder = false
	b.firstForeground = 0
	b.haveForeground = false
	b.openLayers = 0
}
