package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

func newTestServer(t *testing.T) (*app.App, *detector.MockDetector, *EventHub, *httptest.Server) {
	t.Helper()

	mock := detector.NewMockDetector()
	opener := func(src capture.Source) capture.Camera {
		cam := capture.NewMockCamera(nil, false)
		if src.File == "missing.mp4" {
			cam.SetOpenError(errors.New("no such file"))
		}
		return cam
	}
	a := app.New(app.Config{Detector: mock, Opener: opener})

	hub := NewEventHub(nil)
	a.Subscribe(hub)

	ts := httptest.NewServer(New(Config{App: a, Hub: hub}))
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return a, mock, hub, ts
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	return resp
}

func TestAPI_LearningWorkflow(t *testing.T) {
	a, mock, hub, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// 1. Start learning
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/learning", `{"name": "wave"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/learning status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// 2. Feed six distinct positions
	var moves [][]detector.HandLandmarks
	for i := range 6 {
		moves = append(moves, []detector.HandLandmarks{
			detector.Translated(detector.OpenPalmLandmarks(), 0.1*float64(i), 0, 0),
		})
	}
	mock.Enqueue(moves...)

	frame := gocv.NewMat()
	defer frame.Close()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 6 {
		a.Process(&frame, start.Add(time.Duration(i)*100*time.Millisecond))
	}

	// 3. Finish and save
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/learning", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE /api/learning status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var learned struct {
		Name     string `json:"name"`
		Captured int    `json:"captured"`
	}
	json.NewDecoder(resp.Body).Decode(&learned)
	resp.Body.Close()
	if learned.Name != "WAVE" || learned.Captured != 6 {
		t.Errorf("learned = %+v, want WAVE with 6 frames", learned)
	}

	// 4. The events socket saw the progress and the result
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var types []string
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v after %v", err, types)
		}
		types = append(types, msg.Type)
		if msg.Type == "learned" {
			if msg.Name != "WAVE" {
				t.Errorf("learned event name = %q", msg.Name)
			}
			break
		}
	}
	if types[0] != "learning" {
		t.Errorf("first event = %q, want learning", types[0])
	}

	// 5. The gesture is listed and can be charted
	resp, _ = http.Get(ts.URL + "/api/gestures")
	var listed struct {
		Gestures []struct {
			Name   string `json:"name"`
			Stored bool   `json:"stored"`
		} `json:"gestures"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Gestures) != 1 || listed.Gestures[0].Name != "WAVE" || !listed.Gestures[0].Stored {
		t.Fatalf("listed = %+v", listed.Gestures)
	}

	resp, _ = http.Get(ts.URL + "/api/gestures/wave/chart")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET chart status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("chart Content-Type = %q", ct)
	}
	resp.Body.Close()

	// 6. Delete and verify
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/gestures/wave", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/gestures/wave")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_LearningErrors(t *testing.T) {
	_, _, _, ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"blank name", http.MethodPost, "/api/learning", `{"name": "  "}`, http.StatusUnprocessableEntity},
		{"invalid json", http.MethodPost, "/api/learning", `{`, http.StatusBadRequest},
		{"stop while idle", http.MethodDelete, "/api/learning", "", http.StatusUnprocessableEntity},
		{"discard while idle", http.MethodDelete, "/api/learning?discard=true", "", http.StatusNoContent},
		{"wrong method", http.MethodPut, "/api/learning", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAPI_TooFewFrames(t *testing.T) {
	a, _, _, ts := newTestServer(t)

	if err := a.StartLearning("short"); err != nil {
		t.Fatalf("StartLearning() error = %v", err)
	}

	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/learning", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	if a.Store().Len() != 0 {
		t.Error("nothing should be saved")
	}
}

func TestAPI_Source(t *testing.T) {
	a, _, _, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/source", `{"file": "clip.mp4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /api/source status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	if src, open := a.Source(); !open || src.File != "clip.mp4" {
		t.Errorf("Source() = %v, %v", src, open)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/source", `{"file": "missing.mp4"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failed switch status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
	resp.Body.Close()

	if _, open := a.Source(); open {
		t.Error("no source should be open after a failed switch")
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/source", `{"camera": -1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative camera status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()
}

func TestAPI_EnabledAndStatus(t *testing.T) {
	a, _, _, ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/enabled", `{"enabled": false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /api/enabled status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()
	if a.IsEnabled() {
		t.Error("recognition should be disabled")
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/enabled", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing flag status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	defer resp.Body.Close()

	var st app.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Enabled || st.Running {
		t.Errorf("status = %+v, want disabled and stopped", st)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
