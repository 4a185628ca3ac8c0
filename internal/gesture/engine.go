package gesture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
)

// OutcomeKind classifies the result of one Translate call.
type OutcomeKind int

const (
	// OutcomeNone means no gesture was emitted this tick.
	OutcomeNone OutcomeKind = iota
	// OutcomeNoHand means the tick carried no hand at all.
	OutcomeNoHand
	// OutcomeLearning means the tick was consumed by a learning session.
	OutcomeLearning
	// OutcomeGesture means a gesture was confirmed this tick.
	OutcomeGesture
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomeNoHand:
		return "no_hand"
	case OutcomeLearning:
		return "learning"
	case OutcomeGesture:
		return "gesture"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of one Translate call. Name and Score are set for
// OutcomeGesture; Name holds the recorded gesture for OutcomeLearning.
type Outcome struct {
	Kind  OutcomeKind
	Name  string
	Score float64
}

// Event describes one confirmed gesture.
type Event struct {
	ID      uuid.UUID
	Name    string
	Score   float64
	Builtin bool
	Hand    Handedness
	Time    time.Time
}

// Listener receives engine notifications. Calls are made synchronously from
// the goroutine driving the engine and must not block.
type Listener interface {
	// GestureConfirmed is called exactly once per emitted gesture.
	GestureConfirmed(Event)

	// LearningProgress is called on every tick while a session records.
	LearningProgress(name string, frames int)

	// LearningFinished is called whenever a session ends by finalizing.
	LearningFinished(result LearnResult, err error)
}

// Listeners fans notifications out to several listeners in order.
type Listeners []Listener

func (ls Listeners) GestureConfirmed(ev Event) {
	for _, l := range ls {
		l.GestureConfirmed(ev)
	}
}

func (ls Listeners) LearningProgress(name string, frames int) {
	for _, l := range ls {
		l.LearningProgress(name, frames)
	}
}

func (ls Listeners) LearningFinished(result LearnResult, err error) {
	for _, l := range ls {
		l.LearningFinished(result, err)
	}
}

// Store is the reference library the engine matches against and saves to.
type Store interface {
	Library
	References() []Reference
}

// EngineConfig bundles the configuration of every engine component.
type EngineConfig struct {
	HistorySize int
	Cleaner     CleanerConfig
	Matcher     MatcherConfig
	Confirm     ConfirmConfig
	Learning    LearningConfig
}

// DefaultEngineConfig returns the standard configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistorySize: DefaultHistorySize,
		Cleaner:     DefaultCleanerConfig(),
		Matcher:     DefaultMatcherConfig(),
		Confirm:     DefaultConfirmConfig(),
		Learning:    DefaultLearningConfig(),
	}
}

// Engine owns the per-application recognition state. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	store     Store
	listener  Listener
	log       *zap.SugaredLogger
	history   *History
	matcher   *Matcher
	confirmer *Confirmer
	session   *Session
}

// NewEngine wires an engine around a store. registry and listener may be nil.
func NewEngine(cfg EngineConfig, store Store, registry *Registry, listener Listener, log *zap.SugaredLogger) *Engine {
	if listener == nil {
		listener = Listeners(nil)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		store:     store,
		listener:  listener,
		log:       log,
		history:   NewHistory(cfg.HistorySize),
		matcher:   NewMatcher(cfg.Matcher, registry),
		confirmer: NewConfirmer(cfg.Confirm),
		session:   NewSession(cfg.Learning, NewCleaner(cfg.Cleaner), store),
	}
}

// History returns the movement history.
func (e *Engine) History() *History {
	return e.history
}

// Matcher returns the matcher.
func (e *Engine) Matcher() *Matcher {
	return e.matcher
}

// Translate processes the hands observed at now. A failure inside the tick
// is logged and reported as OutcomeNone.
func (e *Engine) Translate(hands []detector.Observation, now time.Time) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("translate panicked", "panic", r)
			out = Outcome{Kind: OutcomeNone}
		}
	}()

	if len(hands) == 0 {
		e.confirmer.Clear()
		return Outcome{Kind: OutcomeNoHand}
	}

	for _, obs := range hands {
		if obs.PalmPos == nil || obs.Handedness == nil {
			continue
		}
		if side, ok := ParseHandedness(obs.Handedness.Label); ok {
			e.history.Push(side, *obs.PalmPos)
		}
	}

	if e.session.Active() {
		return e.capture(hands, now)
	}

	if !e.confirmer.Ready(now) {
		return Outcome{Kind: OutcomeNone}
	}

	frame, ok := Extract(hands, now)
	if !ok {
		e.confirmer.Observe(now, "", false)
		return Outcome{Kind: OutcomeNone}
	}

	cand, ok := e.matcher.Best(frame, e.store.References(), e.history.Positions(frame.Hand))
	name, emitted := e.confirmer.Observe(now, cand.Name, ok)
	if !emitted {
		return Outcome{Kind: OutcomeNone}
	}

	ev := Event{
		ID:      uuid.New(),
		Name:    name,
		Score:   cand.Score,
		Builtin: cand.Builtin,
		Hand:    frame.Hand,
		Time:    now,
	}
	e.log.Infow("gesture confirmed", "name", name, "score", cand.Score, "builtin", cand.Builtin)
	e.listener.GestureConfirmed(ev)
	return Outcome{Kind: OutcomeGesture, Name: name, Score: cand.Score}
}

func (e *Engine) capture(hands []detector.Observation, now time.Time) Outcome {
	name := e.session.Name()
	if frame, ok := Extract(hands, now); ok {
		res, err := e.session.Capture(frame)
		if res.Finished != nil {
			e.finished(*res.Finished, err)
			return Outcome{Kind: OutcomeLearning, Name: name}
		}
		if err != nil {
			e.log.Warnw("capture failed", "name", name, "error", err)
		}
	}
	e.listener.LearningProgress(name, e.session.Frames())
	return Outcome{Kind: OutcomeLearning, Name: name}
}

// StartLearning begins recording a gesture. Any pending candidate is dropped.
func (e *Engine) StartLearning(name string) error {
	if err := e.session.Start(name); err != nil {
		return err
	}
	e.confirmer.Clear()
	e.log.Infow("learning started", "name", e.session.Name())
	return nil
}

// StopLearning finalizes the active session.
func (e *Engine) StopLearning() (LearnResult, error) {
	if !e.session.Active() {
		return LearnResult{}, ErrNotLearning
	}
	res, err := e.session.Finalize()
	e.finished(res, err)
	return res, err
}

// CancelLearning discards the active session without saving.
func (e *Engine) CancelLearning() {
	if e.session.Active() {
		e.log.Infow("learning cancelled", "name", e.session.Name(), "frames", e.session.Frames())
	}
	e.session.Cancel()
}

// Learning reports the active session, if any.
func (e *Engine) Learning() (name string, frames int, active bool) {
	return e.session.Name(), e.session.Frames(), e.session.Active()
}

func (e *Engine) finished(res LearnResult, err error) {
	if err != nil {
		e.log.Warnw("learning failed", "name", res.Name, "captured", res.Captured, "error", err)
	} else {
		e.log.Infow("gesture learned", "name", res.Name, "captured", res.Captured, "frames", res.Sequence.Len())
	}
	e.listener.LearningFinished(res, err)
}
