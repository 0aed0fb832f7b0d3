package compositor

// PathVertex is one tessellated path vertex: a screen-space position
// with a per-vertex color.
type PathVertex struct {
	Pos   Point
	Color Color
}

// PathRun is a contiguous range of path indices drawn under a single
// effective clip. Clipping is stateful in the producer, so one batch of
// path geometry may span several clip regions; each run carries its
// own resolved clip.
type PathRun struct {
	IndexOffset uint32
	IndexCount  uint32

	ClipBounds Rect
	ClipRadii  CornerRadii
	Clip       ClipKind
}

// PathBatch holds tessellated path geometry as indexed triangles plus
// the per-clip draw runs over it.
type PathBatch struct {
	Vertices []PathVertex
	Indices  []uint32
	Runs     []PathRun
}

// Empty reports whether the batch contains no drawable runs.
func (pb *PathBatch) Empty() bool {
	return pb == nil || len(pb.Runs) == 0 || len(pb.Indices) == 0
}

// Bounds returns the union of all vertex positions referenced by the
// batch's runs, or an empty rect when there is nothing to draw.
func (pb *PathBatch) Bounds() Rect {
	if pb.Empty() {
		return Rect{}
	}
	var out Rect
	first := true
	for _, run := range pb.Runs {
		end := run.IndexOffset + run.IndexCount
		for i := run.IndexOffset; i < end && int(i) < len(pb.Indices); i++ {
			idx := pb.Indices[i]
			if int(idx) >= len(pb.Vertices) {
				continue
			}
			p := pb.Vertices[idx].Pos
			if first {
				out = Rect{p.X, p.Y, p.X, p.Y}
				first = false
				continue
			}
			if p.X < out.MinX {
				out.MinX = p.X
			}
			if p.Y < out.MinY {
				out.MinY = p.Y
			}
			if p.X > out.MaxX {
				out.MaxX = p.X
			}
			if p.Y > out.MaxY {
				out.MaxY = p.Y
			}
		}
	}
	return out
}

// Clear empties the batch while keeping allocated capacity.
func (pb *PathBatch) Clear() {
	pb.Vertices = pb.Vertices[:0]
	pb.Indices = pb.Indices[:0]
	pb.Runs = pb.Runs[:0]
}
