// Package plugin runs external executables in response to confirmed
// gestures.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// For every bound gesture the executable receives one JSON Request on stdin
// and answers with one JSON Response on stdout.
package plugin

import (
	"encoding/json"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// AnyGesture binds an action to every gesture.
const AnyGesture = "*"

// Manifest describes a plugin's metadata and gesture bindings.
type Manifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Executable  string            `json:"executable"`
	Bindings    map[string]string `json:"bindings"` // gesture name -> action
	Config      json.RawMessage   `json:"config,omitempty"`
}

// Action returns the action bound to a gesture. Names are compared in
// canonical form; an exact binding wins over AnyGesture.
func (m Manifest) Action(name string) (string, bool) {
	want, err := gesture.CanonicalName(name)
	if err != nil {
		return "", false
	}
	fallback, hasFallback := "", false
	for bound, action := range m.Bindings {
		if bound == AnyGesture {
			fallback, hasFallback = action, true
			continue
		}
		if canonical, err := gesture.CanonicalName(bound); err == nil && canonical == want {
			return action, true
		}
	}
	return fallback, hasFallback
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Score   float64         `json:"score"`
	Builtin bool            `json:"builtin"`
	Hand    string          `json:"hand,omitempty"`
	Time    time.Time       `json:"time"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
