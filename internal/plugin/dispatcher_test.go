package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

func TestDispatcher_RunsBoundPlugins(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "calls.log")

	writeManifest(t, root, "recorder", `{
		"name": "recorder",
		"executable": "run.sh",
		"bindings": {"wave": "greet"}
	}`)
	writeScript(t, filepath.Join(root, "recorder"), "run.sh",
		"cat >> '"+out+"'\necho >> '"+out+"'\necho '{\"success\":true}'\n")

	m := NewManager(root, nil)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	d := NewDispatcher(m, NewExecutor(5*time.Second), nil)
	var _ gesture.Listener = d

	d.GestureConfirmed(gesture.Event{Name: "PEACE"})
	d.GestureConfirmed(gesture.Event{Name: "WAVE", Score: 0.9})

	deadline := time.Now().Add(5 * time.Second)
	var data []byte
	for {
		data, _ = os.ReadFile(out)
		if strings.Contains(string(data), "\n") || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	d.Close()

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one run, got %q", data)
	}
	if !strings.Contains(lines[0], `"action":"greet"`) || !strings.Contains(lines[0], `"gesture":"WAVE"`) {
		t.Errorf("unexpected request %s", lines[0])
	}
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir(), nil), NewExecutor(time.Second), nil)
	d.Close()
	d.Close()

	// Events after Close are ignored.
	d.GestureConfirmed(gesture.Event{Name: "WAVE"})
}
