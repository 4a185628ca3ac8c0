// Package gesture turns per-tick hand observations into confirmed gesture
// events and records new reference gestures.
package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Handedness identifies which hand a frame was taken from.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// ParseHandedness accepts only the two known labels.
func ParseHandedness(s string) (Handedness, bool) {
	switch Handedness(s) {
	case Left, Right:
		return Handedness(s), true
	}
	return "", false
}

// FingerState is the up/down state and direction of one finger.
type FingerState struct {
	Up    bool
	Angle float64
}

// FingerSet holds one state per finger, indexed by detector.Finger.
// A finger missing from the input is down with a zero angle.
type FingerSet [detector.NumFingers]FingerState

// Up reports whether finger f is raised.
func (s FingerSet) Up(f detector.Finger) bool {
	return s[f].Up
}

// CountUp returns how many fingers are raised.
func (s FingerSet) CountUp() int {
	n := 0
	for _, st := range s {
		if st.Up {
			n++
		}
	}
	return n
}

// Matches counts fingers whose up/down state is the same in both sets.
func (s FingerSet) Matches(o FingerSet) int {
	n := 0
	for i := range s {
		if s[i].Up == o[i].Up {
			n++
		}
	}
	return n
}

// Frame is a normalized snapshot of one hand at one instant.
type Frame struct {
	Landmarks []detector.Point3D
	Fingers   FingerSet
	Palm      detector.Point3D
	Hand      Handedness
	Time      time.Time
}

// Sequence is an ordered list of frames. Cleaned is set once the sequence
// has been through a Cleaner so it is never transformed twice.
type Sequence struct {
	Frames  []Frame
	Cleaned bool
}

// Len returns the number of frames.
func (s Sequence) Len() int {
	return len(s.Frames)
}

// Clone returns a deep copy.
func (s Sequence) Clone() Sequence {
	out := Sequence{Frames: make([]Frame, len(s.Frames)), Cleaned: s.Cleaned}
	for i, f := range s.Frames {
		out.Frames[i] = f.clone()
	}
	return out
}

func (f Frame) clone() Frame {
	f.Landmarks = append([]detector.Point3D(nil), f.Landmarks...)
	return f
}

// Extract builds a Frame from the first observed hand. It reports false when
// there is no hand or a required field is missing.
func Extract(hands []detector.Observation, at time.Time) (Frame, bool) {
	if len(hands) == 0 {
		return Frame{}, false
	}
	return ExtractOne(hands[0], at)
}

// ExtractOne builds a Frame from a single observation.
func ExtractOne(obs detector.Observation, at time.Time) (Frame, bool) {
	if obs.Landmarks == nil || obs.FingersUp == nil || obs.PalmPos == nil || obs.Handedness == nil {
		return Frame{}, false
	}
	hand, ok := ParseHandedness(obs.Handedness.Label)
	if !ok {
		return Frame{}, false
	}

	frame := Frame{
		Landmarks: make([]detector.Point3D, len(obs.Landmarks)),
		Palm:      *obs.PalmPos,
		Hand:      hand,
		Time:      at,
	}
	for i, p := range obs.Landmarks {
		frame.Landmarks[i] = pointFromSlice(p)
	}
	for name, reading := range obs.FingersUp.Readings {
		if f, ok := detector.ParseFinger(name); ok {
			frame.Fingers[f] = FingerState{Up: reading.Up, Angle: reading.Angle}
		}
	}
	return frame, true
}

// pointFromSlice reads up to three coordinates, zero-filling the rest.
func pointFromSlice(p []float64) detector.Point3D {
	var v [3]float64
	copy(v[:], p)
	return detector.Point3D{X: v[0], Y: v[1], Z: v[2]}
}
