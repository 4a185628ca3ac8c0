package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Opener builds a Camera for a source.
type Opener func(Source) Camera

// Switcher owns the active capture source. At most one handle is open at a
// time: switching closes the current source before the next is opened.
type Switcher struct {
	mu      sync.Mutex
	open    Opener
	current Camera
	source  Source
}

// NewSwitcher returns a Switcher with no open source. A nil opener uses New.
func NewSwitcher(open Opener) *Switcher {
	if open == nil {
		open = New
	}
	return &Switcher{open: open}
}

// Switch closes the current source and opens src. On failure no source is
// open.
func (s *Switcher) Switch(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if err := s.current.Close(); err != nil {
			return fmt.Errorf("close %s: %w", s.source, err)
		}
		s.current = nil
	}

	cam := s.open(src)
	if err := cam.Open(); err != nil {
		return err
	}
	s.current = cam
	s.source = src
	return nil
}

// Source returns the active source and whether one is open.
func (s *Switcher) Source() (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, s.current != nil
}

// ReadFrame reads from the active source.
func (s *Switcher) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	cam := s.current
	s.mu.Unlock()

	if cam == nil {
		return nil, ErrCameraNotOpen
	}
	return cam.ReadFrame()
}

// Close releases the active source.
func (s *Switcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}
