package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// newTestApp creates an App with a memory store holding a "wave" gesture
// and a "hello" built-in.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	registry := gesture.NewRegistry()
	if err := registry.RegisterHeuristics("hello"); err != nil {
		t.Fatalf("failed to register builtin: %v", err)
	}

	a := app.New(app.Config{Registry: registry, Detector: detector.NewMockDetector()})

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seq := gesture.Sequence{Cleaned: true}
	for i := range 4 {
		seq.Frames = append(seq.Frames, gesture.Frame{
			Palm: detector.Point3D{X: 0.1 * float64(i), Y: 0.2},
			Hand: gesture.Right,
			Time: start.Add(time.Duration(i) * 100 * time.Millisecond),
		})
	}
	if err := a.Store().Put("wave", seq); err != nil {
		t.Fatalf("failed to store gesture: %v", err)
	}
	return a
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGestureHandler_List(t *testing.T) {
	handler := NewGestureHandler(newTestApp(t))

	rec := serve(handler, http.MethodGet, "/api/gestures", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listGesturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Gestures) != 2 {
		t.Fatalf("expected 2 gestures, got %d", len(response.Gestures))
	}
	wave, hello := response.Gestures[0], response.Gestures[1]
	if wave.Name != "WAVE" || !wave.Stored || wave.Builtin || wave.Frames != 4 {
		t.Errorf("unexpected stored entry %+v", wave)
	}
	if hello.Name != "HELLO" || hello.Stored || !hello.Builtin {
		t.Errorf("unexpected builtin entry %+v", hello)
	}
}

func TestGestureHandler_Get(t *testing.T) {
	handler := NewGestureHandler(newTestApp(t))

	t.Run("stored gesture by any spelling", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/gestures/Wave", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response gestureResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.Name != "WAVE" || response.Updated.IsZero() {
			t.Errorf("unexpected response %+v", response)
		}
	})

	t.Run("builtin gesture", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/gestures/hello", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("unknown gesture", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/gestures/nothing", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestGestureHandler_Delete(t *testing.T) {
	a := newTestApp(t)
	handler := NewGestureHandler(a)

	rec := serve(handler, http.MethodDelete, "/api/gestures/wave", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if a.Store().Len() != 0 {
		t.Error("gesture should be removed from the store")
	}

	rec = serve(handler, http.MethodDelete, "/api/gestures/wave", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	// Built-ins are not stored and cannot be deleted.
	rec = serve(handler, http.MethodDelete, "/api/gestures/hello", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("builtin delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_Clear(t *testing.T) {
	a := newTestApp(t)
	handler := NewGestureHandler(a)

	rec := serve(handler, http.MethodDelete, "/api/gestures", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if a.Store().Len() != 0 {
		t.Errorf("expected empty store, got %d gestures", a.Store().Len())
	}
}

func TestGestureHandler_Render(t *testing.T) {
	handler := NewGestureHandler(newTestApp(t))

	tests := []struct {
		path        string
		wantStatus  int
		contentType string
	}{
		{"/api/gestures/wave/chart", http.StatusOK, "text/html; charset=utf-8"},
		{"/api/gestures/wave/plot", http.StatusOK, "image/png"},
		{"/api/gestures/hello/chart", http.StatusNotFound, "application/json"},
		{"/api/gestures/wave/other", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.contentType != "" && rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("expected Content-Type %s, got %s", tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}

	rec := serve(handler, http.MethodGet, "/api/gestures/wave/plot", "")
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Error("plot body is not a PNG")
	}
}

func TestGestureHandler_MethodNotAllowed(t *testing.T) {
	handler := NewGestureHandler(newTestApp(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/gestures"},
		{http.MethodPut, "/api/gestures/wave"},
		{http.MethodDelete, "/api/gestures/wave/chart"},
	}

	for _, tt := range tests {
		rec := serve(handler, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestLearningHandler(t *testing.T) {
	a := newTestApp(t)
	handler := NewLearningHandler(a)

	rec := serve(handler, http.MethodPost, "/api/learning", `{"name": "circle"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var started learningResponse
	json.NewDecoder(rec.Body).Decode(&started)
	if !started.Active || started.Name != "CIRCLE" {
		t.Errorf("unexpected start response %+v", started)
	}

	rec = serve(handler, http.MethodGet, "/api/learning", "")
	var status learningResponse
	json.NewDecoder(rec.Body).Decode(&status)
	if !status.Active || status.Frames != 0 {
		t.Errorf("unexpected status %+v", status)
	}

	rec = serve(handler, http.MethodDelete, "/api/learning?discard=true", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, _, active := a.Learning(); active {
		t.Error("session should be discarded")
	}
}

func TestControlHandler_Status(t *testing.T) {
	handler := NewControlHandler(newTestApp(t))

	rec := serve(http.HandlerFunc(handler.Status), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var st app.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !st.Enabled || st.Gestures != 1 || len(st.Builtins) != 1 {
		t.Errorf("unexpected status %+v", st)
	}
}
