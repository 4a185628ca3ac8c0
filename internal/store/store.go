// Package store keeps the named reference gestures and persists them
// through a pluggable backend.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

var (
	// ErrNotFound is returned when a requested gesture does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSave wraps persistence failures. The in-memory state is kept.
	ErrSave = errors.New("save gestures")
)

// Gesture is a named reference sequence.
type Gesture struct {
	Name      string
	Sequence  gesture.Sequence
	Timestamp time.Time
}

// Persister loads and saves the full gesture collection.
type Persister interface {
	Load() ([]Gesture, error)
	Save(gestures []Gesture) error
}

// Remover is implemented by persisters that can drop one gesture without
// rewriting the collection.
type Remover interface {
	Remove(name string) error
}

// Store is the in-memory gesture collection. All methods are safe for
// concurrent use; mutations and their saves are serialized.
type Store struct {
	mu       sync.RWMutex
	backend  Persister
	log      *zap.SugaredLogger
	gestures map[string]Gesture
	refs     []gesture.Reference
	now      func() time.Time
}

// Open creates a Store and loads it from backend. A load failure leaves the
// store empty and is logged. backend may be nil for a memory-only store.
func Open(backend Persister, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Store{
		backend:  backend,
		log:      log,
		gestures: make(map[string]Gesture),
		now:      time.Now,
	}

	if backend != nil {
		loaded, err := backend.Load()
		if err != nil {
			log.Warnw("could not load gestures, starting empty", "error", err)
		}
		for _, g := range loaded {
			g.Sequence.Cleaned = true
			s.gestures[g.Name] = g
		}
	}
	s.rebuild()
	log.Infow("gesture store opened", "gestures", len(s.gestures))
	return s
}

// Put adds or replaces a gesture under its canonical name.
func (s *Store) Put(name string, seq gesture.Sequence) error {
	canonical, err := gesture.CanonicalName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gestures[canonical] = Gesture{Name: canonical, Sequence: seq.Clone(), Timestamp: s.now()}
	s.rebuild()
	return s.save()
}

// Delete removes a gesture and reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	canonical, err := gesture.CanonicalName(name)
	if err != nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.gestures[canonical]; !ok {
		return false, nil
	}
	delete(s.gestures, canonical)
	s.rebuild()
	return true, s.remove(canonical)
}

// Clear removes every gesture.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gestures = make(map[string]Gesture)
	s.rebuild()
	return s.save()
}

// Get returns the gesture with the given name.
func (s *Store) Get(name string) (Gesture, bool) {
	canonical, err := gesture.CanonicalName(name)
	if err != nil {
		return Gesture{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.gestures[canonical]
	if !ok {
		return Gesture{}, false
	}
	g.Sequence = g.Sequence.Clone()
	return g, true
}

// Names returns the stored names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.gestures))
	for name := range s.gestures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every gesture sorted by name.
func (s *Store) List() []Gesture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Len returns the number of stored gestures.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gestures)
}

// References returns the read-only snapshot used for matching. The
// returned slice is replaced, never modified, on the next mutation.
func (s *Store) References() []gesture.Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refs
}

func (s *Store) sorted() []Gesture {
	out := make([]Gesture, 0, len(s.gestures))
	for _, g := range s.gestures {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) rebuild() {
	list := s.sorted()
	refs := make([]gesture.Reference, len(list))
	for i, g := range list {
		refs[i] = gesture.Reference{Name: g.Name, Frames: g.Sequence.Frames}
	}
	s.refs = refs
}

// remove persists the deletion of name; it must be called with the write
// lock held.
func (s *Store) remove(name string) error {
	r, ok := s.backend.(Remover)
	if !ok {
		return s.save()
	}
	if err := r.Remove(name); err != nil {
		s.log.Errorw("removing gesture failed", "name", name, "error", err)
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

// save must be called with the write lock held.
func (s *Store) save() error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(s.sorted()); err != nil {
		s.log.Errorw("saving gestures failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}
