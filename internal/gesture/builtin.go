package gesture

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// Predicate decides whether a built-in gesture is present, given the live
// frame and the palm history of the same hand, oldest first.
type Predicate func(live Frame, history []detector.Point3D) bool

// Scorer assigns a score to a built-in gesture whose predicate passed.
type Scorer func(live Frame, history []detector.Point3D) float64

// Builtin is a heuristic gesture detector. A nil Score uses the matcher's
// default weighting.
type Builtin struct {
	Name   string
	Detect Predicate
	Score  Scorer
}

// Registry holds the built-in detectors consulted on every tick.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Builtin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Builtin)}
}

// Register adds or replaces a built-in under its canonical name.
func (r *Registry) Register(b Builtin) error {
	name, err := CanonicalName(b.Name)
	if err != nil {
		return err
	}
	if b.Detect == nil {
		return fmt.Errorf("builtin %s: nil predicate", name)
	}
	b.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = b
	return nil
}

// Unregister removes a built-in and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	name, err := CanonicalName(name)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	delete(r.entries, name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the registered built-ins sorted by name.
func (r *Registry) List() []Builtin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Builtin, 0, len(r.entries))
	for _, b := range r.entries {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Builtin) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of registered built-ins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Heuristics returns the bundled heuristic detectors keyed by name. None of
// them is registered unless enabled through configuration.
func Heuristics() map[string]Builtin {
	list := []Builtin{
		{Name: "HELLO", Detect: detectHello},
		{Name: "THANK_YOU", Detect: detectThankYou},
		{Name: "YES", Detect: detectYes},
		{Name: "NO", Detect: detectNo},
		{Name: "PLEASE", Detect: detectFlatHand},
		{Name: "HOUSE", Detect: detectFlatHand},
		{Name: "EAT", Detect: detectPinch},
		{Name: "DRINK", Detect: detectThumbOnly},
	}
	out := make(map[string]Builtin, len(list))
	for _, b := range list {
		out[b.Name] = b
	}
	return out
}

// RegisterHeuristics registers the named bundled detectors.
func (r *Registry) RegisterHeuristics(names ...string) error {
	available := Heuristics()
	for _, raw := range names {
		name, err := CanonicalName(raw)
		if err != nil {
			return err
		}
		b, ok := available[name]
		if !ok {
			return fmt.Errorf("unknown builtin gesture %q", raw)
		}
		if err := r.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// displacement returns the movement from the oldest to the newest position.
func displacement(history []detector.Point3D) (dx, dy float64, ok bool) {
	if len(history) < 2 {
		return 0, 0, false
	}
	first, last := history[0], history[len(history)-1]
	return last.X - first.X, last.Y - first.Y, true
}

func onlyUp(s FingerSet, fingers ...detector.Finger) bool {
	for _, f := range detector.Fingers {
		if s.Up(f) != slices.Contains(fingers, f) {
			return false
		}
	}
	return true
}

// detectHello: open right hand moving sideways.
func detectHello(live Frame, history []detector.Point3D) bool {
	if live.Hand != Right || live.Fingers.CountUp() != detector.NumFingers {
		return false
	}
	dx, dy, ok := displacement(history)
	return ok && math.Abs(dx) > math.Abs(dy)
}

// detectThankYou: flat right hand moving down.
func detectThankYou(live Frame, history []detector.Point3D) bool {
	if live.Hand != Right || live.Fingers.CountUp() < 3 {
		return false
	}
	dx, dy, ok := displacement(history)
	return ok && math.Abs(dy) > math.Abs(dx) && dy > 0
}

// detectYes: closed fist moving up and down.
func detectYes(live Frame, history []detector.Point3D) bool {
	if live.Fingers.CountUp() > 1 {
		return false
	}
	dx, dy, ok := displacement(history)
	return ok && math.Abs(dy) > math.Abs(dx)
}

// detectNo: index finger alone, moving sideways.
func detectNo(live Frame, history []detector.Point3D) bool {
	if !onlyUp(live.Fingers, detector.Index) {
		return false
	}
	dx, dy, ok := displacement(history)
	return ok && math.Abs(dx) > math.Abs(dy)
}

func detectFlatHand(live Frame, _ []detector.Point3D) bool {
	f := live.Fingers
	return f.Up(detector.Index) && f.Up(detector.Middle) && f.Up(detector.Ring) && f.Up(detector.Pinky)
}

func detectPinch(live Frame, _ []detector.Point3D) bool {
	return onlyUp(live.Fingers, detector.Thumb, detector.Index)
}

func detectThumbOnly(live Frame, _ []detector.Point3D) bool {
	return onlyUp(live.Fingers, detector.Thumb)
}
