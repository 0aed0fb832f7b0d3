package compositor

import (
	"errors"
	"fmt"
)

// ErrOrderViolation is returned when an image operation is recorded
// with a sequence number that breaks the batch's monotonic ordering
// contract. This is a producer bug; operations are never silently
// reordered.
var ErrOrderViolation = errors.New("compositor: image operation order violation")

// ImageOpKind identifies an image operation.
type ImageOpKind uint8

const (
	// ImageOpCreate allocates a named image slot.
	ImageOpCreate ImageOpKind = iota
	// ImageOpWrite uploads pixel data into a named image.
	ImageOpWrite
	// ImageOpDraw draws a named image into the target.
	ImageOpDraw
)

// String returns the name of the operation kind.
func (k ImageOpKind) String() string {
	switch k {
	case ImageOpCreate:
		return "create"
	case ImageOpWrite:
		return "write"
	case ImageOpDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// ImageOp is one image lifecycle operation. Order is a monotonic
// sequence number handed out by Batch.NextImageOrder; it defines
// execution order across creates, writes, and draws within a frame.
type ImageOp struct {
	Kind  ImageOpKind
	ID    uint64
	Order uint64

	// Draw placement. Foreground draws execute after all background
	// content.
	SrcRect    Rect
	DstRect    Rect
	Foreground bool

	// Write payload: tightly packed RGBA8 rows covering SrcRect.
	Pixels []byte
	Width  int
	Height int
}

// checkImageOrder validates op against the orders already recorded.
// lastOrder is the highest order accepted so far; firstForeground is
// the order of the earliest foreground draw, or zero when none exists.
func checkImageOrder(op ImageOp, lastOrder uint64, haveLast bool, firstForeground uint64, haveForeground bool) error {
	if haveLast && op.Order <= lastOrder {
		return fmt.Errorf("%w: order %d not after %d", ErrOrderViolation, op.Order, lastOrder)
	}
	// A background draw sequenced after a foreground draw would paint
	// over content that must stay on top.
	if op.Kind == ImageOpDraw && !op.Foreground && haveForeground && op.Order > firstForeground {
		return fmt.Errorf("%w: background draw %d after foreground draw %d", ErrOrderViolation, op.Order, firstForeground)
	}
	return nil
}
