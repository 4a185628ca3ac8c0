package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// The persisted document maps each gesture name to
//
//	{"sequence": [frame...], "timestamp": <epoch seconds>}
//
// and each frame is
//
//	{"fingers": {"thumb": {"up": true, "angle": 12.0}, ...},
//	 "palm_pos": {"x": 0, "y": 0, "z": 0},
//	 "landmarks": [[x, y, z], ...],
//	 "handedness": "Left" | "Right",
//	 "time": <epoch seconds>}
//
// Decoding is lenient: missing or non-numeric numbers read as 0, and frames
// or gestures that are not objects are skipped.

type fingerRecord struct {
	Up    bool    `json:"up"`
	Angle float64 `json:"angle"`
}

type frameRecord struct {
	Fingers    map[string]fingerRecord `json:"fingers"`
	PalmPos    detector.Point3D        `json:"palm_pos"`
	Landmarks  [][3]float64            `json:"landmarks"`
	Handedness string                  `json:"handedness"`
	Time       float64                 `json:"time"`
}

type entryRecord struct {
	Sequence  []frameRecord `json:"sequence"`
	Timestamp float64       `json:"timestamp"`
}

// EncodeGestures renders gestures in the persisted JSON document format.
func EncodeGestures(gestures []Gesture) ([]byte, error) {
	doc := make(map[string]entryRecord, len(gestures))
	for _, g := range gestures {
		entry := entryRecord{
			Sequence:  make([]frameRecord, len(g.Sequence.Frames)),
			Timestamp: toEpoch(g.Timestamp),
		}
		for i, f := range g.Sequence.Frames {
			entry.Sequence[i] = encodeFrame(f)
		}
		doc[g.Name] = entry
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeGestures parses a persisted document. Only a document that is not a
// JSON object is an error; malformed entries are skipped and logged.
func DecodeGestures(data []byte, log *zap.SugaredLogger) ([]Gesture, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode gestures: %w", err)
	}

	// Keys that canonicalise to the same name keep the newer entry; equal
	// timestamps keep the lexically smaller key.
	type candidate struct {
		key string
		g   Gesture
	}
	byName := make(map[string]candidate, len(doc))
	for rawName, raw := range doc {
		name, err := gesture.CanonicalName(rawName)
		if err != nil {
			log.Warnw("skipping gesture with blank name")
			continue
		}
		g, ok := decodeEntry(name, raw, log)
		if !ok {
			continue
		}
		if prev, dup := byName[name]; dup {
			newer := g.Timestamp.After(prev.g.Timestamp) ||
				(g.Timestamp.Equal(prev.g.Timestamp) && rawName < prev.key)
			log.Warnw("duplicate gesture name", "name", name, "keys", []string{prev.key, rawName})
			if !newer {
				continue
			}
		}
		byName[name] = candidate{key: rawName, g: g}
	}

	gestures := make([]Gesture, 0, len(byName))
	for _, c := range byName {
		gestures = append(gestures, c.g)
	}
	slices.SortFunc(gestures, func(a, b Gesture) int { return strings.Compare(a.Name, b.Name) })
	return gestures, nil
}

func decodeEntry(name string, raw json.RawMessage, log *zap.SugaredLogger) (Gesture, bool) {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Warnw("skipping malformed gesture", "name", name, "error", err)
		return Gesture{}, false
	}

	var frames []json.RawMessage
	if err := json.Unmarshal(entry["sequence"], &frames); err != nil {
		log.Warnw("skipping gesture without sequence", "name", name)
		return Gesture{}, false
	}

	seq := gesture.Sequence{Cleaned: true}
	for i, rawFrame := range frames {
		f, err := DecodeFrame(rawFrame)
		if err != nil {
			log.Warnw("skipping malformed frame", "name", name, "index", i, "error", err)
			continue
		}
		seq.Frames = append(seq.Frames, f)
	}
	if len(seq.Frames) == 0 {
		log.Warnw("skipping gesture with no usable frames", "name", name)
		return Gesture{}, false
	}

	return Gesture{Name: name, Sequence: seq, Timestamp: fromEpoch(number(entry["timestamp"]))}, true
}

// EncodeFrame renders one frame record.
func EncodeFrame(f gesture.Frame) ([]byte, error) {
	return json.Marshal(encodeFrame(f))
}

func encodeFrame(f gesture.Frame) frameRecord {
	rec := frameRecord{
		Fingers:    make(map[string]fingerRecord, detector.NumFingers),
		PalmPos:    f.Palm,
		Landmarks:  make([][3]float64, len(f.Landmarks)),
		Handedness: string(f.Hand),
		Time:       toEpoch(f.Time),
	}
	for _, finger := range detector.Fingers {
		st := f.Fingers[finger]
		rec.Fingers[finger.String()] = fingerRecord{Up: st.Up, Angle: st.Angle}
	}
	for i, p := range f.Landmarks {
		rec.Landmarks[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return rec
}

// DecodeFrame parses one frame record leniently. It fails only when the
// record is not a JSON object.
func DecodeFrame(raw json.RawMessage) (gesture.Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return gesture.Frame{}, fmt.Errorf("frame is not an object: %w", err)
	}
	if fields == nil {
		return gesture.Frame{}, fmt.Errorf("frame is null")
	}

	var f gesture.Frame
	f.Palm = decodePoint(fields["palm_pos"])
	f.Time = fromEpoch(number(fields["time"]))

	var hand string
	if json.Unmarshal(fields["handedness"], &hand) == nil {
		if side, ok := gesture.ParseHandedness(hand); ok {
			f.Hand = side
		}
	}

	var fingers map[string]json.RawMessage
	if json.Unmarshal(fields["fingers"], &fingers) == nil {
		for name, value := range fingers {
			finger, ok := detector.ParseFinger(name)
			if !ok {
				continue
			}
			var state map[string]json.RawMessage
			if json.Unmarshal(value, &state) != nil {
				continue
			}
			var up bool
			json.Unmarshal(state["up"], &up)
			f.Fingers[finger] = gesture.FingerState{Up: up, Angle: number(state["angle"])}
		}
	}

	var points []json.RawMessage
	if json.Unmarshal(fields["landmarks"], &points) == nil {
		for _, p := range points {
			if pt, ok := decodeLandmark(p); ok {
				f.Landmarks = append(f.Landmarks, pt)
			}
		}
	}

	return f, nil
}

// decodePoint accepts {"x","y","z"} or [x, y, z]; anything else is the origin.
func decodePoint(raw json.RawMessage) detector.Point3D {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil && obj != nil {
		return detector.Point3D{X: number(obj["x"]), Y: number(obj["y"]), Z: number(obj["z"])}
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil && len(list) >= 3 {
		return detector.Point3D{X: number(list[0]), Y: number(list[1]), Z: number(list[2])}
	}
	return detector.Point3D{}
}

// decodeLandmark accepts an object or a list of at least three numbers.
func decodeLandmark(raw json.RawMessage) (detector.Point3D, bool) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil && obj != nil {
		return detector.Point3D{X: number(obj["x"]), Y: number(obj["y"]), Z: number(obj["z"])}, true
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil && len(list) >= 3 {
		return detector.Point3D{X: number(list[0]), Y: number(list[1]), Z: number(list[2])}, true
	}
	return detector.Point3D{}, false
}

// number reads a JSON number or numeric string, returning 0 otherwise.
func number(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var v float64
	if json.Unmarshal(raw, &v) == nil {
		return v
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

func toEpoch(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1e6
}

func fromEpoch(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(math.Round(sec * 1e6)))
}
