package gesture

import "github.com/ayusman/mudra/internal/detector"

// DefaultHistorySize is the number of palm positions kept per hand.
const DefaultHistorySize = 5

// History keeps the most recent palm positions for each hand side.
type History struct {
	size  int
	left  []detector.Point3D
	right []detector.Point3D
}

// NewHistory creates a History holding up to size positions per side.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Push appends a position for the given side, evicting the oldest on overflow.
// Unknown sides are ignored.
func (h *History) Push(side Handedness, pos detector.Point3D) {
	buf := h.side(side)
	if buf == nil {
		return
	}
	*buf = append(*buf, pos)
	if over := len(*buf) - h.size; over > 0 {
		*buf = append((*buf)[:0], (*buf)[over:]...)
	}
}

// Positions returns a copy of the side's buffer, oldest first.
func (h *History) Positions(side Handedness) []detector.Point3D {
	buf := h.side(side)
	if buf == nil {
		return nil
	}
	return append([]detector.Point3D(nil), (*buf)...)
}

// Len returns the number of positions held for a side.
func (h *History) Len(side Handedness) int {
	if buf := h.side(side); buf != nil {
		return len(*buf)
	}
	return 0
}

// Reset empties both sides.
func (h *History) Reset() {
	h.left = h.left[:0]
	h.right = h.right[:0]
}

func (h *History) side(side Handedness) *[]detector.Point3D {
	switch side {
	case Left:
		return &h.left
	case Right:
		return &h.right
	}
	return nil
}
