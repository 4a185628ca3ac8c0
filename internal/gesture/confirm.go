package gesture

import "time"

// ConfirmConfig holds the debounce timings.
type ConfirmConfig struct {
	// Dwell is how long the same gesture must lead before it is emitted.
	Dwell time.Duration

	// Cooldown is the minimum time between two emissions.
	Cooldown time.Duration
}

// DefaultConfirmConfig returns the standard timings.
func DefaultConfirmConfig() ConfirmConfig {
	return ConfirmConfig{
		Dwell:    250 * time.Millisecond,
		Cooldown: 400 * time.Millisecond,
	}
}

// Confirmer turns a stream of per-tick winners into debounced emissions.
//
// It is Idle when no candidate is held and Holding(name, since) otherwise.
// A gesture is emitted once it has led for Dwell, after which the machine
// returns to Idle. While the cooldown after an emission is running, ticks
// are ignored entirely.
type Confirmer struct {
	cfg      ConfirmConfig
	held     string
	since    time.Time
	holding  bool
	lastEmit time.Time
	emitted  bool
}

// NewConfirmer creates a Confirmer in the Idle state.
func NewConfirmer(cfg ConfirmConfig) *Confirmer {
	return &Confirmer{cfg: cfg}
}

// Ready reports whether the cooldown has elapsed at now.
func (c *Confirmer) Ready(now time.Time) bool {
	return !c.emitted || now.Sub(c.lastEmit) >= c.cfg.Cooldown
}

// Observe feeds one tick. winner is the best admissible gesture and ok is
// false when no gesture was admissible. It returns the emitted name, if any.
func (c *Confirmer) Observe(now time.Time, winner string, ok bool) (string, bool) {
	if !c.Ready(now) {
		return "", false
	}
	if !ok {
		c.Clear()
		return "", false
	}
	if !c.holding || winner != c.held {
		c.held = winner
		c.since = now
		c.holding = true
		return "", false
	}
	if now.Sub(c.since) < c.cfg.Dwell {
		return "", false
	}

	c.lastEmit = now
	c.emitted = true
	c.Clear()
	return winner, true
}

// Clear drops the held candidate. The cooldown is unaffected.
func (c *Confirmer) Clear() {
	c.held = ""
	c.since = time.Time{}
	c.holding = false
}

// Holding returns the held candidate and when it started leading.
func (c *Confirmer) Holding() (name string, since time.Time, ok bool) {
	return c.held, c.since, c.holding
}

// LastEmission returns the time of the most recent emission.
func (c *Confirmer) LastEmission() (time.Time, bool) {
	return c.lastEmit, c.emitted
}
