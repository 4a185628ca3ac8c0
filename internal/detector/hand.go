package detector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Finger identifies one of the five fingers of a hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers = 5
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// Fingers lists every finger in fixed order.
var Fingers = [NumFingers]Finger{Thumb, Index, Middle, Ring, Pinky}

// String returns the lower-case record key for the finger.
func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// ParseFinger maps a record key such as "index" back to its Finger.
func ParseFinger(name string) (Finger, bool) {
	for i, n := range fingerNames {
		if n == name {
			return Finger(i), true
		}
	}
	return 0, false
}

// fingerTips and fingerBases hold the landmark indices used to decide
// whether a finger is raised.
var (
	fingerTips  = [NumFingers]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}
	fingerBases = [NumFingers]int{ThumbMCP, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	palmPoints  = [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
)

// FingerReading is the up/down state and direction of one finger.
type FingerReading struct {
	Up    bool    `json:"up"`
	Angle float64 `json:"angle"`
}

// FingerReport is the per-finger section of an observation. It encodes as a
// flat JSON object keyed by finger name with an extra "total_up" count.
type FingerReport struct {
	Readings map[string]FingerReading
	TotalUp  int
}

// MarshalJSON implements json.Marshaler.
func (r FingerReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Readings)+1)
	for name, reading := range r.Readings {
		out[name] = reading
	}
	out["total_up"] = r.TotalUp
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Entries that do not decode as a
// finger reading are ignored.
func (r *FingerReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Readings = make(map[string]FingerReading, len(raw))
	r.TotalUp = 0
	for key, value := range raw {
		if key == "total_up" {
			var total float64
			if err := json.Unmarshal(value, &total); err == nil {
				r.TotalUp = int(total)
			}
			continue
		}
		var reading FingerReading
		if err := json.Unmarshal(value, &reading); err != nil {
			continue
		}
		r.Readings[key] = reading
	}
	return nil
}

// HandLabel is the handedness classification reported by the detector.
type HandLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Observation is a single hand as reported to the gesture engine. Any field
// may be missing when the record comes from an external source.
type Observation struct {
	Landmarks  [][]float64   `json:"landmarks,omitempty"`
	Handedness *HandLabel    `json:"handedness,omitempty"`
	FingersUp  *FingerReport `json:"fingers_up,omitempty"`
	PalmPos    *Point3D      `json:"palm_pos,omitempty"`
}

// Describe derives an Observation from raw landmarks.
//
// A finger is up when its tip lies above its base joint. The thumb is
// compared horizontally, with the direction depending on which way the hand
// faces. The angle is the absolute direction of the base-to-tip vector in
// degrees. The palm position is the mean of the wrist and the four finger
// knuckles.
func Describe(h HandLandmarks) Observation {
	obs := Observation{
		Landmarks:  make([][]float64, NumLandmarks),
		Handedness: &HandLabel{Label: h.Handedness, Confidence: h.Score},
	}
	for i, p := range h.Points {
		obs.Landmarks[i] = []float64{p.X, p.Y, p.Z}
	}

	report := FingerReport{Readings: make(map[string]FingerReading, NumFingers)}
	facingRight := h.Points[Wrist].X < h.Points[IndexMCP].X
	for _, f := range Fingers {
		tip := h.Points[fingerTips[f]]
		base := h.Points[fingerBases[f]]

		var up bool
		if f == Thumb {
			if facingRight {
				up = tip.X < base.X
			} else {
				up = tip.X > base.X
			}
		} else {
			up = tip.Y < base.Y
		}

		angle := math.Abs(math.Atan2(tip.Y-base.Y, tip.X-base.X) * 180 / math.Pi)
		report.Readings[f.String()] = FingerReading{Up: up, Angle: angle}
		if up {
			report.TotalUp++
		}
	}
	obs.FingersUp = &report

	var palm Point3D
	for _, idx := range palmPoints {
		palm.X += h.Points[idx].X
		palm.Y += h.Points[idx].Y
		palm.Z += h.Points[idx].Z
	}
	n := float64(len(palmPoints))
	obs.PalmPos = &Point3D{X: palm.X / n, Y: palm.Y / n, Z: palm.Z / n}

	return obs
}

// DescribeAll converts every detected hand, preserving order.
func DescribeAll(hands []HandLandmarks) []Observation {
	out := make([]Observation, len(hands))
	for i, h := range hands {
		out[i] = Describe(h)
	}
	return out
}
