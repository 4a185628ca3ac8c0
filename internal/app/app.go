// Package app runs the capture, detection and recognition loop and exposes
// the control surface used by the HTTP server, the tray and the CLI.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultTickInterval is the delay between processed frames.
const DefaultTickInterval = 10 * time.Millisecond

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	Registry     *gesture.Registry
	Engine       gesture.EngineConfig
	Source       capture.Source
	Opener       capture.Opener
	Detector     detector.Detector
	TickInterval time.Duration
	Mirror       bool
	Log          *zap.SugaredLogger
}

// Status is a snapshot of the running application.
type Status struct {
	Enabled        bool      `json:"enabled"`
	Running        bool      `json:"running"`
	Source         string    `json:"source"`
	SourceOpen     bool      `json:"source_open"`
	Gestures       int       `json:"gestures"`
	Builtins       []string  `json:"builtins"`
	Learning       bool      `json:"learning"`
	LearningName   string    `json:"learning_name,omitempty"`
	LearningFrames int       `json:"learning_frames"`
	LastGesture    string    `json:"last_gesture,omitempty"`
	LastScore      float64   `json:"last_score,omitempty"`
	LastAt         time.Time `json:"last_at,omitzero"`
	Ticks          uint64    `json:"ticks"`
	StartedAt      time.Time `json:"started_at,omitzero"`
}

// GestureInfo describes what the application knows about one name.
type GestureInfo struct {
	Name    string    `json:"name"`
	Builtin bool      `json:"builtin"`
	Stored  bool      `json:"stored"`
	Frames  int       `json:"frames"`
	Updated time.Time `json:"updated,omitzero"`
}

// App is the main application that orchestrates capture, detection and
// gesture recognition.
//
// Listeners run on the tick goroutine while the engine is locked; they must
// not call back into App.
type App struct {
	config   Config
	log      *zap.SugaredLogger
	store    *store.Store
	registry *gesture.Registry
	source   *capture.Switcher
	detector detector.Detector

	// mu serializes every engine access.
	mu     sync.Mutex
	engine *gesture.Engine

	subMu     sync.RWMutex
	listeners gesture.Listeners

	enabled atomic.Bool
	ticks   atomic.Uint64

	runMu     sync.Mutex
	stopCh    chan struct{}
	doneCh    chan struct{}
	startedAt time.Time

	frameMu sync.RWMutex
	latest  []byte

	lastMu sync.RWMutex
	last   gesture.Event
}

// New creates a new App. The store defaults to an in-memory one and the
// detector to an empty mock.
func New(config Config) *App {
	if config.Log == nil {
		config.Log = zap.NewNop().Sugar()
	}
	if config.Store == nil {
		config.Store = store.Open(nil, config.Log)
	}
	if config.Registry == nil {
		config.Registry = gesture.NewRegistry()
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Engine == (gesture.EngineConfig{}) {
		config.Engine = gesture.DefaultEngineConfig()
	}
	if config.Detector == nil {
		config.Log.Warnw("no hand detector configured, using mock detector")
		config.Detector = detector.NewMockDetector()
	}

	a := &App{
		config:   config,
		log:      config.Log,
		store:    config.Store,
		registry: config.Registry,
		source:   capture.NewSwitcher(config.Opener),
		detector: config.Detector,
	}
	a.engine = gesture.NewEngine(config.Engine, config.Store, config.Registry, a, config.Log)
	a.enabled.Store(true)
	return a
}

// Subscribe adds a listener for gesture and learning events.
func (a *App) Subscribe(l gesture.Listener) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.listeners = append(a.listeners, l)
}

// SetEnabled enables or disables gesture processing.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.log.Infow("detection toggled", "enabled", enabled)
}

// IsEnabled returns whether gesture processing is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Store returns the gesture store.
func (a *App) Store() *store.Store {
	return a.store
}

// Registry returns the built-in gesture registry.
func (a *App) Registry() *gesture.Registry {
	return a.registry
}

// Start opens the configured source and begins the detection loop.
func (a *App) Start() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.source.Switch(a.config.Source); err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.startedAt = time.Now()
	go a.runPipeline(a.stopCh, a.doneCh)

	a.log.Infow("detection pipeline started", "source", a.config.Source.String(), "tick", a.config.TickInterval.String())
	return nil
}

// Stop halts the detection loop and releases the source and detector.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		<-a.doneCh
		a.stopCh = nil
		a.doneCh = nil
	}

	if err := a.source.Close(); err != nil {
		a.log.Warnw("error closing source", "error", err)
	}

	if err := a.detector.Close(); err != nil {
		a.log.Warnw("error closing detector", "error", err)
	}

	a.log.Infow("detection pipeline stopped", "ticks", a.ticks.Load())
}

// Running reports whether the loop is active.
func (a *App) Running() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.stopCh != nil
}

// SetSource switches the video source. The previous source is closed first.
func (a *App) SetSource(src capture.Source) error {
	if err := a.source.Switch(src); err != nil {
		a.log.Warnw("could not switch source", "source", src.String(), "error", err)
		return err
	}
	a.mu.Lock()
	a.engine.History().Reset()
	a.mu.Unlock()
	a.log.Infow("video source switched", "source", src.String())
	return nil
}

// Source returns the selected video source and whether it is open.
func (a *App) Source() (capture.Source, bool) {
	return a.source.Source()
}

// StartLearning begins recording a new gesture.
func (a *App) StartLearning(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.StartLearning(name)
}

// StopLearning finalizes the recording and saves the gesture.
func (a *App) StopLearning() (gesture.LearnResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.StopLearning()
}

// CancelLearning discards the recording.
func (a *App) CancelLearning() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.CancelLearning()
}

// Learning reports the active learning session.
func (a *App) Learning() (name string, frames int, active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Learning()
}

// Info describes a gesture name: whether it is built in, stored or both.
func (a *App) Info(name string) (GestureInfo, error) {
	canonical, err := gesture.CanonicalName(name)
	if err != nil {
		return GestureInfo{}, err
	}

	info := GestureInfo{Name: canonical}
	for _, b := range a.registry.Names() {
		if b == canonical {
			info.Builtin = true
		}
	}
	if g, ok := a.store.Get(canonical); ok {
		info.Stored = true
		info.Frames = g.Sequence.Len()
		info.Updated = g.Timestamp
	}
	if !info.Builtin && !info.Stored {
		return info, store.ErrNotFound
	}
	return info, nil
}

// LastGesture returns the most recent confirmed gesture.
func (a *App) LastGesture() (gesture.Event, bool) {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	return a.last, a.last.Name != ""
}

// LatestFrame returns the last processed frame as JPEG.
func (a *App) LatestFrame() ([]byte, bool) {
	a.frameMu.RLock()
	defer a.frameMu.RUnlock()
	return a.latest, a.latest != nil
}

// Status returns a snapshot of the application state.
func (a *App) Status() Status {
	src, open := a.source.Source()
	name, frames, learning := a.Learning()

	a.runMu.Lock()
	running := a.stopCh != nil
	started := a.startedAt
	a.runMu.Unlock()

	st := Status{
		Enabled:        a.IsEnabled(),
		Running:        running,
		Source:         src.String(),
		SourceOpen:     open,
		Gestures:       a.store.Len(),
		Builtins:       a.registry.Names(),
		Learning:       learning,
		LearningName:   name,
		LearningFrames: frames,
		Ticks:          a.ticks.Load(),
		StartedAt:      started,
	}
	if ev, ok := a.LastGesture(); ok {
		st.LastGesture = ev.Name
		st.LastScore = ev.Score
		st.LastAt = ev.Time
	}
	return st
}

// GestureConfirmed records the event and forwards it to subscribers.
func (a *App) GestureConfirmed(ev gesture.Event) {
	a.lastMu.Lock()
	a.last = ev
	a.lastMu.Unlock()

	a.subscribers().GestureConfirmed(ev)
}

// LearningProgress forwards progress to subscribers.
func (a *App) LearningProgress(name string, frames int) {
	a.subscribers().LearningProgress(name, frames)
}

// LearningFinished forwards the result to subscribers.
func (a *App) LearningFinished(res gesture.LearnResult, err error) {
	a.subscribers().LearningFinished(res, err)
}

func (a *App) subscribers() gesture.Listeners {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	return a.listeners
}

// IsUserError reports whether err was caused by the request rather than
// the application.
func IsUserError(err error) bool {
	return errors.Is(err, gesture.ErrEmptyName) ||
		errors.Is(err, gesture.ErrNotLearning) ||
		errors.Is(err, gesture.ErrTooFewFrames)
}
