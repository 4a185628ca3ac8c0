package gesture

import (
	"testing"
	"time"
)

func TestConfirmer_Debounce(t *testing.T) {
	t.Run("short dwell never emits", func(t *testing.T) {
		c := NewConfirmer(DefaultConfirmConfig())
		for ms := 0; ms < 250; ms += 10 {
			if _, ok := c.Observe(at(ms), "WAVE", true); ok {
				t.Fatalf("unexpected emission at %dms", ms)
			}
		}
	})

	t.Run("sustained dwell emits exactly once", func(t *testing.T) {
		c := NewConfirmer(DefaultConfirmConfig())
		var emissions []int
		for ms := 0; ms <= 600; ms += 10 {
			if name, ok := c.Observe(at(ms), "WAVE", true); ok {
				if name != "WAVE" {
					t.Errorf("expected WAVE, got %s", name)
				}
				emissions = append(emissions, ms)
			}
		}
		if len(emissions) != 1 || emissions[0] != 250 {
			t.Errorf("expected a single emission at 250ms, got %v", emissions)
		}
	})

	t.Run("changing winner restarts the dwell", func(t *testing.T) {
		c := NewConfirmer(DefaultConfirmConfig())
		c.Observe(at(0), "A", true)
		c.Observe(at(200), "B", true)

		if _, ok := c.Observe(at(300), "B", true); ok {
			t.Error("expected B to need its own dwell")
		}
		if name, ok := c.Observe(at(450), "B", true); !ok || name != "B" {
			t.Errorf("expected B at 450ms, got %q %v", name, ok)
		}
	})

	t.Run("no candidate resets to idle", func(t *testing.T) {
		c := NewConfirmer(DefaultConfirmConfig())
		c.Observe(at(0), "A", true)
		c.Observe(at(100), "", false)

		if _, _, holding := c.Holding(); holding {
			t.Error("expected idle after a tick without candidate")
		}
		if _, ok := c.Observe(at(260), "A", true); ok {
			t.Error("expected dwell to restart after idle")
		}
	})
}

func TestConfirmer_Cooldown(t *testing.T) {
	c := NewConfirmer(DefaultConfirmConfig())
	c.Observe(at(0), "A", true)
	if _, ok := c.Observe(at(250), "A", true); !ok {
		t.Fatal("expected first emission at 250ms")
	}

	// Inside the cooldown ticks are ignored, so B does not start dwelling.
	c.Observe(at(300), "B", true)
	if _, _, holding := c.Holding(); holding {
		t.Error("expected no state change during cooldown")
	}
	if c.Ready(at(649)) {
		t.Error("expected cooldown to still run at 649ms")
	}

	c.Observe(at(650), "B", true)
	_, since, holding := c.Holding()
	if !holding || !since.Equal(at(650)) {
		t.Errorf("expected B held since 650ms, got %v %v", since, holding)
	}
	if _, ok := c.Observe(at(800), "B", true); ok {
		t.Error("expected no emission before the dwell completes")
	}
	if name, ok := c.Observe(at(900), "B", true); !ok || name != "B" {
		t.Errorf("expected B at 900ms, got %q %v", name, ok)
	}

	last, ok := c.LastEmission()
	if !ok || !last.Equal(at(900)) {
		t.Errorf("expected last emission at 900ms, got %v", last)
	}
}

func TestConfirmer_EmissionsSpacedByCooldown(t *testing.T) {
	c := NewConfirmer(DefaultConfirmConfig())
	winners := []string{"A", "B", "C"}
	var last time.Time
	var count int

	for ms := 0; ms < 5000; ms += 10 {
		winner := winners[(ms/300)%len(winners)]
		if _, ok := c.Observe(at(ms), winner, true); ok {
			if count > 0 && at(ms).Sub(last) < DefaultConfirmConfig().Cooldown {
				t.Fatalf("emissions %v apart", at(ms).Sub(last))
			}
			last = at(ms)
			count++
		}
	}
	if count == 0 {
		t.Error("expected at least one emission")
	}
}
