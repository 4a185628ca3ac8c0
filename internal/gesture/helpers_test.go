package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// at returns epoch plus ms milliseconds.
func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

// openHand returns a frame taken from the open palm fixture with the given
// fingers raised.
func openHand(palm detector.Point3D, hand Handedness, up ...detector.Finger) Frame {
	fixture := detector.OpenPalmLandmarks()
	f := Frame{
		Landmarks: append([]detector.Point3D(nil), fixture.Points[:]...),
		Palm:      palm,
		Hand:      hand,
	}
	for _, finger := range up {
		f.Fingers[finger] = FingerState{Up: true, Angle: 90}
	}
	return f
}

func allFingers() []detector.Finger {
	return detector.Fingers[:]
}

// observe converts a frame back into the record the detector would send.
func observe(f Frame) detector.Observation {
	obs := detector.Observation{
		Landmarks:  make([][]float64, len(f.Landmarks)),
		Handedness: &detector.HandLabel{Label: string(f.Hand), Confidence: 0.9},
		FingersUp:  &detector.FingerReport{Readings: map[string]detector.FingerReading{}},
		PalmPos:    &detector.Point3D{X: f.Palm.X, Y: f.Palm.Y, Z: f.Palm.Z},
	}
	for i, p := range f.Landmarks {
		obs.Landmarks[i] = []float64{p.X, p.Y, p.Z}
	}
	for _, finger := range detector.Fingers {
		st := f.Fingers[finger]
		obs.FingersUp.Readings[finger.String()] = detector.FingerReading{Up: st.Up, Angle: st.Angle}
		if st.Up {
			obs.FingersUp.TotalUp++
		}
	}
	return obs
}

// memStore is an in-memory Store for engine and session tests.
type memStore struct {
	seqs  map[string]Sequence
	order []string
	err   error
	puts  int
	panic bool
}

func newMemStore() *memStore {
	return &memStore{seqs: make(map[string]Sequence)}
}

func (m *memStore) Put(name string, seq Sequence) error {
	m.puts++
	if _, ok := m.seqs[name]; !ok {
		m.order = append(m.order, name)
	}
	m.seqs[name] = seq
	return m.err
}

func (m *memStore) References() []Reference {
	if m.panic {
		panic("references unavailable")
	}
	refs := make([]Reference, 0, len(m.order))
	for _, name := range m.order {
		refs = append(refs, Reference{Name: name, Frames: m.seqs[name].Frames})
	}
	return refs
}

// recorder captures listener notifications.
type recorder struct {
	events   []Event
	progress []int
	finished []LearnResult
	errs     []error
}

func (r *recorder) GestureConfirmed(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) LearningProgress(_ string, frames int) {
	r.progress = append(r.progress, frames)
}

func (r *recorder) LearningFinished(res LearnResult, err error) {
	r.finished = append(r.finished, res)
	r.errs = append(r.errs, err)
}
