package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestDB opens a migrated SQLite backend in a temporary directory.
func newTestDB(t *testing.T) *SQLite {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mudra-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := OpenSQLite(filepath.Join(tmpDir, "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// testFrame builds a frame from the open palm fixture.
func testFrame(palmX float64, hand gesture.Handedness, ms int, up ...detector.Finger) gesture.Frame {
	fixture := detector.OpenPalmLandmarks()
	f := gesture.Frame{
		Landmarks: append([]detector.Point3D(nil), fixture.Points[:]...),
		Palm:      detector.Point3D{X: palmX, Y: 0.1, Z: -0.02},
		Hand:      hand,
		Time:      epoch.Add(time.Duration(ms) * time.Millisecond),
	}
	for _, finger := range up {
		f.Fingers[finger] = gesture.FingerState{Up: true, Angle: 87.5}
	}
	return f
}

func testSequence(n int, hand gesture.Handedness, up ...detector.Finger) gesture.Sequence {
	seq := gesture.Sequence{Cleaned: true}
	for i := range n {
		seq.Frames = append(seq.Frames, testFrame(0.01*float64(i), hand, 100*i, up...))
	}
	return seq
}

// failingBackend fails every save and optionally every load.
type failingBackend struct {
	loadErr error
	saveErr error
	saves   int
}

func (b *failingBackend) Load() ([]Gesture, error) {
	return nil, b.loadErr
}

func (b *failingBackend) Save([]Gesture) error {
	b.saves++
	return b.saveErr
}
