package gesture

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

var (
	// ErrNotLearning is returned when no learning session is active.
	ErrNotLearning = errors.New("no learning session in progress")

	// ErrTooFewFrames is returned when a session is finalized with fewer
	// frames than required. The captured frames are discarded.
	ErrTooFewFrames = errors.New("not enough frames captured")
)

// LearningConfig holds the capture limits of a learning session.
type LearningConfig struct {
	// FrameInterval is the minimum time between two captured frames.
	FrameInterval time.Duration

	// MaxFrames finalizes the session automatically when reached.
	MaxFrames int

	// MinFrames is the smallest buffer that can be saved.
	MinFrames int

	// MinDisplacement is the palm movement above which a frame counts as a
	// new position even when no finger changed.
	MinDisplacement float64
}

// DefaultLearningConfig returns the standard capture limits.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		FrameInterval:   50 * time.Millisecond,
		MaxFrames:       200,
		MinFrames:       5,
		MinDisplacement: 0.05,
	}
}

// Library receives finished gestures.
type Library interface {
	Put(name string, seq Sequence) error
}

// CaptureStatus describes what happened to a frame offered to a session.
type CaptureStatus int

const (
	// CaptureAccepted means the frame was appended to the buffer.
	CaptureAccepted CaptureStatus = iota
	// CaptureTooSoon means the frame arrived within FrameInterval of the last one.
	CaptureTooSoon
	// CaptureUnchanged means the hand did not move or change shape enough.
	CaptureUnchanged
)

func (s CaptureStatus) String() string {
	switch s {
	case CaptureAccepted:
		return "accepted"
	case CaptureTooSoon:
		return "too_soon"
	case CaptureUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("CaptureStatus(%d)", int(s))
}

// LearnResult describes a finalized session.
type LearnResult struct {
	Name     string
	Captured int
	Sequence Sequence
}

// CaptureResult is returned for every offered frame. Finished is set when
// the frame filled the buffer and the session finalized itself.
type CaptureResult struct {
	Status   CaptureStatus
	Frames   int
	Finished *LearnResult
}

// Session records frames for a new gesture and commits the cleaned result
// to a Library.
type Session struct {
	cfg     LearningConfig
	cleaner *Cleaner
	lib     Library

	active    bool
	name      string
	buffer    []Frame
	lastFrame time.Time
}

// NewSession creates an idle session.
func NewSession(cfg LearningConfig, cleaner *Cleaner, lib Library) *Session {
	return &Session{cfg: cfg, cleaner: cleaner, lib: lib}
}

// Start begins recording under the canonical form of name. A session that
// is already recording is restarted with an empty buffer.
func (s *Session) Start(name string) error {
	canonical, err := CanonicalName(name)
	if err != nil {
		return err
	}
	s.reset()
	s.active = true
	s.name = canonical
	return nil
}

// Active reports whether a session is recording.
func (s *Session) Active() bool {
	return s.active
}

// Name returns the gesture being recorded.
func (s *Session) Name() string {
	return s.name
}

// Frames returns the number of buffered frames.
func (s *Session) Frames() int {
	return len(s.buffer)
}

// Capture offers one frame to the session.
func (s *Session) Capture(frame Frame) (CaptureResult, error) {
	if !s.active {
		return CaptureResult{}, ErrNotLearning
	}

	if len(s.buffer) > 0 {
		if frame.Time.Sub(s.lastFrame) < s.cfg.FrameInterval {
			return CaptureResult{Status: CaptureTooSoon, Frames: len(s.buffer)}, nil
		}
		if !s.isNewPosition(frame) {
			return CaptureResult{Status: CaptureUnchanged, Frames: len(s.buffer)}, nil
		}
	}

	s.buffer = append(s.buffer, frame.clone())
	s.lastFrame = frame.Time
	result := CaptureResult{Status: CaptureAccepted, Frames: len(s.buffer)}

	if s.cfg.MaxFrames > 0 && len(s.buffer) >= s.cfg.MaxFrames {
		finished, err := s.Finalize()
		result.Finished = &finished
		return result, err
	}
	return result, nil
}

// Finalize ends the session. With too few frames the buffer is discarded
// and ErrTooFewFrames returned; otherwise the cleaned sequence is committed.
// The session is idle afterwards in every case.
func (s *Session) Finalize() (LearnResult, error) {
	if !s.active {
		return LearnResult{}, ErrNotLearning
	}
	defer s.reset()

	result := LearnResult{Name: s.name, Captured: len(s.buffer)}
	if len(s.buffer) < s.cfg.MinFrames {
		return result, fmt.Errorf("%w: %d of %d", ErrTooFewFrames, len(s.buffer), s.cfg.MinFrames)
	}

	result.Sequence = s.cleaner.Clean(Sequence{Frames: s.buffer})
	if err := s.lib.Put(s.name, result.Sequence); err != nil {
		return result, fmt.Errorf("save gesture %s: %w", s.name, err)
	}
	return result, nil
}

// Cancel discards the session without saving.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.active = false
	s.name = ""
	s.buffer = nil
	s.lastFrame = time.Time{}
}

// isNewPosition compares a frame with the last buffered one.
func (s *Session) isNewPosition(frame Frame) bool {
	last := s.buffer[len(s.buffer)-1]
	if detector.Distance(frame.Palm, last.Palm) > s.cfg.MinDisplacement {
		return true
	}
	return frame.Fingers.Matches(last.Fingers) < detector.NumFingers
}
