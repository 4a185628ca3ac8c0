package gesture

import (
	"cmp"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
)

// Score weights for comparing a live frame with a reference frame.
const (
	fingerWeight   = 0.4
	palmWeight     = 0.3
	landmarkWeight = 0.3

	// palmRange is the palm distance at which palm proximity reaches zero.
	palmRange = 0.5

	// handMismatchFactor penalizes comparing a left hand with a right one.
	handMismatchFactor = 0.5
)

// Built-in score weights.
const (
	builtinFingerWeight    = 0.5
	builtinMovementWeight  = 0.3
	builtinStabilityWeight = 0.2

	// stabilityVariance is the mean positional variance at which the
	// stability score reaches zero.
	stabilityVariance = 0.1
)

// MatcherConfig holds admission thresholds for match candidates.
type MatcherConfig struct {
	// SimilarityThreshold is the minimum score for a stored gesture.
	SimilarityThreshold float64

	// PredefinedThreshold is the minimum score for a built-in gesture.
	PredefinedThreshold float64

	// MovementThreshold is the per-sample path length that counts as full
	// movement amplitude for built-in scoring.
	MovementThreshold float64
}

// DefaultMatcherConfig returns the standard thresholds.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		SimilarityThreshold: 0.45,
		PredefinedThreshold: 0.55,
		MovementThreshold:   0.15,
	}
}

// Reference is a stored gesture as seen by the matcher.
type Reference struct {
	Name   string
	Frames []Frame
}

// Candidate is a gesture that cleared its admission threshold for one tick.
type Candidate struct {
	Name    string
	Score   float64
	Builtin bool
}

// Matcher scores live frames against stored references and built-in detectors.
type Matcher struct {
	cfg      MatcherConfig
	registry *Registry
}

// NewMatcher creates a Matcher. A nil registry means no built-in gestures.
func NewMatcher(cfg MatcherConfig, registry *Registry) *Matcher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Matcher{cfg: cfg, registry: registry}
}

// Registry returns the built-in detector registry.
func (m *Matcher) Registry() *Registry {
	return m.registry
}

// ScoreFrame compares a live frame with one reference frame.
func (m *Matcher) ScoreFrame(live, ref Frame) float64 {
	fingers := float64(live.Fingers.Matches(ref.Fingers)) / detector.NumFingers
	palm := max(0, 1-detector.Distance(live.Palm, ref.Palm)/palmRange)
	landmarks := landmarkProximity(live.Landmarks, ref.Landmarks)

	score := fingerWeight*fingers + palmWeight*palm + landmarkWeight*landmarks
	if live.Hand != ref.Hand {
		score *= handMismatchFactor
	}
	return score
}

// ScoreSequence returns the best score of the live frame over all reference frames.
func (m *Matcher) ScoreSequence(live Frame, frames []Frame) float64 {
	var best float64
	for _, ref := range frames {
		best = max(best, m.ScoreFrame(live, ref))
	}
	return best
}

// ScoreBuiltin scores a built-in gesture against the live frame and the
// active hand's movement history. It returns zero when the predicate fails.
func (m *Matcher) ScoreBuiltin(b Builtin, live Frame, history []detector.Point3D) float64 {
	if b.Detect == nil || !b.Detect(live, history) {
		return 0
	}
	if b.Score != nil {
		return b.Score(live, history)
	}
	return m.DefaultBuiltinScore(live, history)
}

// DefaultBuiltinScore weighs raised fingers, movement amplitude and hand
// stability over the history.
func (m *Matcher) DefaultBuiltinScore(live Frame, history []detector.Point3D) float64 {
	score := builtinFingerWeight * float64(live.Fingers.CountUp()) / detector.NumFingers

	if len(history) >= 2 && m.cfg.MovementThreshold > 0 {
		var path float64
		for i := 1; i < len(history); i++ {
			path += detector.Distance(history[i-1], history[i])
		}
		score += builtinMovementWeight * min(1, path/(m.cfg.MovementThreshold*float64(len(history))))
	}

	if len(history) >= 3 {
		xs := make([]float64, len(history))
		ys := make([]float64, len(history))
		zs := make([]float64, len(history))
		for i, p := range history {
			xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		}
		variance := (stat.PopVariance(xs, nil) + stat.PopVariance(ys, nil) + stat.PopVariance(zs, nil)) / 3
		score += builtinStabilityWeight * (1 - min(1, variance/stabilityVariance))
	}

	return score
}

// Candidates returns every admissible candidate, best first. Equal scores
// put stored gestures before built-ins, then order by name.
func (m *Matcher) Candidates(live Frame, refs []Reference, history []detector.Point3D) []Candidate {
	var out []Candidate
	for _, ref := range refs {
		if score := m.ScoreSequence(live, ref.Frames); score >= m.cfg.SimilarityThreshold {
			out = append(out, Candidate{Name: ref.Name, Score: score})
		}
	}
	for _, b := range m.registry.List() {
		if score := m.ScoreBuiltin(b, live, history); score >= m.cfg.PredefinedThreshold {
			out = append(out, Candidate{Name: b.Name, Score: score, Builtin: true})
		}
	}

	slices.SortFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if a.Builtin != b.Builtin {
			if a.Builtin {
				return 1
			}
			return -1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Best returns the winning candidate for this tick, if any.
func (m *Matcher) Best(live Frame, refs []Reference, history []detector.Point3D) (Candidate, bool) {
	candidates := m.Candidates(live, refs, history)
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[0], true
}

// landmarkProximity is one minus the mean point distance over the common
// prefix of both landmark lists, floored at zero.
func landmarkProximity(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var total float64
	for i := range n {
		total += detector.Distance(a[i], b[i])
	}
	return max(0, 1-total/float64(n))
}
