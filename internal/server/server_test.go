package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", got)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	return body
}

func TestServer_Health(t *testing.T) {
	t.Run("without app", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
		}
		body := decodeHealth(t, rec)
		if body["status"] != "ok" {
			t.Errorf("expected status ok, got %v", body["status"])
		}
		if _, ok := body["uptime"]; !ok {
			t.Error("expected uptime in health")
		}
		if _, ok := body["running"]; ok {
			t.Error("running reported without an app")
		}
	})

	t.Run("reports the engine loop", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(Config{App: app.New(app.Config{})}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if running, ok := decodeHealth(t, rec)["running"].(bool); !ok || running {
			t.Errorf("expected running=false, got %v", running)
		}
	})

	t.Run("rejects writes", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			New(Config{}).ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s: expected %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_RoutesNeedApp(t *testing.T) {
	paths := []string{"/api/gestures", "/api/learning", "/api/status", "/api/source", "/api/stream", "/api/events"}

	bare := New(Config{})
	for _, p := range paths {
		rec := httptest.NewRecorder()
		bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s without app: expected 404, got %d", p, rec.Code)
		}
	}

	wired := New(Config{App: app.New(app.Config{})})
	for _, p := range []string{"/api/gestures", "/api/learning", "/api/status", "/api/source"} {
		rec := httptest.NewRecorder()
		wired.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s with app: expected 200, got %d", p, rec.Code)
		}
	}
}

func TestServer_Dashboard(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}
	script := "console.log('events')"
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, index},
		{"/app.js", http.StatusOK, script},
		{"/missing.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("expected %q, got %q", tt.body, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	New(Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a dashboard, got %d", rec.Code)
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	hub := NewEventHub(nil)
	s := New(Config{Hub: hub})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
