// Package speech speaks confirmed gestures aloud through a pluggable
// synthesizer.
package speech

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultTimeout bounds a single utterance.
const DefaultTimeout = 10 * time.Second

// Synthesizer speaks text and returns when playback has finished.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) error

func (f SynthesizerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Discard is a Synthesizer that says nothing.
var Discard Synthesizer = SynthesizerFunc(func(context.Context, string) error { return nil })

// Speaker runs a synthesizer on its own goroutine. Say never blocks: while
// an utterance is playing or one is already waiting, new text is dropped.
type Speaker struct {
	synth   Synthesizer
	log     *zap.SugaredLogger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan string
	busy    atomic.Bool
	done    chan struct{}
	spoken  atomic.Int64
	dropped atomic.Int64
}

// NewSpeaker starts a Speaker. A zero timeout uses DefaultTimeout.
func NewSpeaker(synth Synthesizer, timeout time.Duration, log *zap.SugaredLogger) *Speaker {
	if synth == nil {
		synth = Discard
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Speaker{
		synth:   synth,
		log:     log,
		timeout: timeout,
		queue:   make(chan string, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Say queues text for speaking and reports whether it was accepted.
func (s *Speaker) Say(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || s.busy.Load() {
		s.dropped.Add(1)
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- text:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Busy reports whether an utterance is playing.
func (s *Speaker) Busy() bool {
	return s.busy.Load()
}

// Stats returns how many utterances were spoken and dropped.
func (s *Speaker) Stats() (spoken, dropped int64) {
	return s.spoken.Load(), s.dropped.Load()
}

// Close stops the worker after the queued utterance, if any, has played.
func (s *Speaker) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Speaker) run() {
	defer close(s.done)
	for text := range s.queue {
		s.busy.Store(true)
		s.speak(text)
		s.busy.Store(false)
	}
}

func (s *Speaker) speak(text string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("speech synthesizer panicked", "text", text, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := s.synth.Speak(ctx, text); err != nil {
		s.log.Warnw("speech failed", "text", text, "error", err)
		return
	}
	s.spoken.Add(1)
	s.log.Debugw("spoke", "text", text, "took", time.Since(started).String())
}

// GestureConfirmed speaks the gesture name.
func (s *Speaker) GestureConfirmed(ev gesture.Event) {
	s.Say(Phrase(ev.Name))
}

func (s *Speaker) LearningProgress(string, int) {}

func (s *Speaker) LearningFinished(gesture.LearnResult, error) {}

// Phrase turns a canonical gesture name into speakable text.
func Phrase(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}
