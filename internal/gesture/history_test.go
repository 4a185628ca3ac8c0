package gesture

import (
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func TestHistory(t *testing.T) {
	t.Run("bounded and ordered", func(t *testing.T) {
		h := NewHistory(5)
		for i := range 12 {
			h.Push(Right, detector.Point3D{X: float64(i)})
		}

		got := h.Positions(Right)
		if len(got) != 5 {
			t.Fatalf("expected 5 positions, got %d", len(got))
		}
		for i, p := range got {
			if want := float64(7 + i); p.X != want {
				t.Errorf("position %d: expected X %v, got %v", i, want, p.X)
			}
		}
	})

	t.Run("sides are independent", func(t *testing.T) {
		h := NewHistory(5)
		h.Push(Left, detector.Point3D{X: 1})
		h.Push(Left, detector.Point3D{X: 2})
		h.Push(Right, detector.Point3D{X: 3})

		if h.Len(Left) != 2 || h.Len(Right) != 1 {
			t.Errorf("expected 2 left and 1 right, got %d and %d", h.Len(Left), h.Len(Right))
		}
	})

	t.Run("unknown side is ignored", func(t *testing.T) {
		h := NewHistory(5)
		h.Push(Handedness("Both"), detector.Point3D{X: 1})

		if h.Len(Left)+h.Len(Right) != 0 {
			t.Error("expected nothing recorded")
		}
		if h.Positions(Handedness("Both")) != nil {
			t.Error("expected nil positions for unknown side")
		}
	})

	t.Run("positions are a copy", func(t *testing.T) {
		h := NewHistory(5)
		h.Push(Right, detector.Point3D{X: 1})

		h.Positions(Right)[0].X = 99
		if h.Positions(Right)[0].X != 1 {
			t.Error("expected history to be unaffected by caller mutation")
		}
	})

	t.Run("reset and default size", func(t *testing.T) {
		h := NewHistory(0)
		for range 10 {
			h.Push(Left, detector.Point3D{})
		}
		if h.Len(Left) != DefaultHistorySize {
			t.Errorf("expected default size %d, got %d", DefaultHistorySize, h.Len(Left))
		}

		h.Reset()
		if h.Len(Left) != 0 {
			t.Error("expected empty history after reset")
		}
	})
}
