package gesture

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/mudra/internal/detector"
)

const tolerance = 1e-9

func sequenceAt(start, stepMS int, palms ...detector.Point3D) Sequence {
	seq := Sequence{}
	for i, p := range palms {
		f := openHand(p, Right, detector.Index)
		f.Time = at(start + i*stepMS)
		seq.Frames = append(seq.Frames, f)
	}
	return seq
}

func palmX(seq Sequence) []float64 {
	xs := make([]float64, len(seq.Frames))
	for i, f := range seq.Frames {
		xs[i] = f.Palm.X
	}
	return xs
}

func TestCleaner_StationaryCollapses(t *testing.T) {
	palms := make([]detector.Point3D, 10)
	cleaned := NewCleaner(DefaultCleanerConfig()).Clean(sequenceAt(0, 50, palms...))

	if cleaned.Len() != 1 {
		t.Fatalf("expected 1 frame, got %d", cleaned.Len())
	}
	if cleaned.Frames[0].Palm != (detector.Point3D{}) {
		t.Errorf("expected origin palm, got %v", cleaned.Frames[0].Palm)
	}
	if !cleaned.Cleaned {
		t.Error("expected sequence to be marked cleaned")
	}
}

func TestCleaner_ReferenceAndScale(t *testing.T) {
	seq := sequenceAt(0, 10_000,
		detector.Point3D{X: 0.5, Y: 0.5, Z: 0.5},
		detector.Point3D{X: 0.55, Y: 0.5, Z: 0.7},
	)

	cleaned := NewCleaner(DefaultCleanerConfig()).Clean(seq)

	want := []detector.Point3D{{}, {X: 0.06, Y: 0, Z: 0.12}}
	got := []detector.Point3D{cleaned.Frames[0].Palm, cleaned.Frames[1].Palm}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("palm mismatch (-want +got):\n%s", diff)
	}
}

func TestCleaner_VelocityClamp(t *testing.T) {
	t.Run("fast move is clamped", func(t *testing.T) {
		seq := sequenceAt(0, 1000, detector.Point3D{}, detector.Point3D{X: 1})

		cleaned := NewCleaner(DefaultCleanerConfig()).Clean(seq)

		if cleaned.Len() != 2 {
			t.Fatalf("expected 2 frames, got %d", cleaned.Len())
		}
		if got := cleaned.Frames[1].Palm.X; math.Abs(got-0.12) > tolerance {
			t.Errorf("expected clamped X 0.12, got %v", got)
		}
	})

	t.Run("no elapsed time skips the clamp", func(t *testing.T) {
		seq := sequenceAt(0, 0, detector.Point3D{}, detector.Point3D{X: 1})

		cleaned := NewCleaner(DefaultCleanerConfig()).Clean(seq)

		if got := cleaned.Frames[1].Palm.X; math.Abs(got-1.2) > tolerance {
			t.Errorf("expected unclamped X 1.2, got %v", got)
		}
	})
}

func TestCleaner_NoiseGateUsesLastRetainedFrame(t *testing.T) {
	// Each step moves 0.012 after scaling, below the gate on its own, but the
	// distance to the last retained frame grows until it passes.
	palms := make([]detector.Point3D, 6)
	for i := range palms {
		palms[i].X = 0.01 * float64(i)
	}
	seq := sequenceAt(0, 0, palms...)
	cfg := DefaultCleanerConfig()
	cfg.SmoothingWindow = 0

	cleaned := NewCleaner(cfg).Clean(seq)

	want := []float64{0, 0.024, 0.048}
	if diff := cmp.Diff(want, palmX(cleaned), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("retained X mismatch (-want +got):\n%s", diff)
	}
}

func TestCleaner_Smoothing(t *testing.T) {
	seq := sequenceAt(0, 1000, detector.Point3D{}, detector.Point3D{X: 1}, detector.Point3D{X: 2})

	cleaned := NewCleaner(DefaultCleanerConfig()).Clean(seq)

	w := math.Exp(-2) // sigma 0.5, offset 1
	want := []float64{
		(w * 0.12) / (1 + w),
		0.12,
		(w*0.12 + 0.24) / (1 + w),
	}
	if diff := cmp.Diff(want, palmX(cleaned), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("smoothed X mismatch (-want +got):\n%s", diff)
	}
}

func TestCleaner_ShortSequenceUnsmoothed(t *testing.T) {
	seq := sequenceAt(0, 1000, detector.Point3D{}, detector.Point3D{X: 1})

	cleaned := NewCleaner(DefaultCleanerConfig()).Clean(seq)

	if diff := cmp.Diff([]float64{0, 0.12}, palmX(cleaned), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("expected unsmoothed output (-want +got):\n%s", diff)
	}
}

func TestCleaner_Idempotent(t *testing.T) {
	seq := sequenceAt(0, 400,
		detector.Point3D{X: 0.2, Y: 0.3},
		detector.Point3D{X: 0.3, Y: 0.35},
		detector.Point3D{X: 0.45, Y: 0.3, Z: 0.1},
		detector.Point3D{X: 0.5, Y: 0.2},
		detector.Point3D{X: 0.4, Y: 0.1},
	)
	c := NewCleaner(DefaultCleanerConfig())

	once := c.Clean(seq)
	twice := c.Clean(once)

	if diff := cmp.Diff(once, twice, cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("cleaning twice changed the sequence (-once +twice):\n%s", diff)
	}
}

func TestCleaner_Deterministic(t *testing.T) {
	seq := sequenceAt(0, 300,
		detector.Point3D{X: 0.1},
		detector.Point3D{X: 0.2, Y: 0.1},
		detector.Point3D{X: 0.4, Y: 0.1},
		detector.Point3D{X: 0.5, Y: 0.3},
	)
	before := seq.Clone()
	c := NewCleaner(DefaultCleanerConfig())

	first := c.Clean(seq)
	second := c.Clean(seq)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("expected identical output (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, seq); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestCleaner_Empty(t *testing.T) {
	cleaned := NewCleaner(DefaultCleanerConfig()).Clean(Sequence{})

	if cleaned.Len() != 0 || !cleaned.Cleaned {
		t.Errorf("expected empty cleaned sequence, got %+v", cleaned)
	}
}
