// Package api provides HTTP API handlers for the gesture engine.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/viz"
)

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	app *app.App
}

// NewGestureHandler creates a new GestureHandler for a.
func NewGestureHandler(a *app.App) *GestureHandler {
	return &GestureHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/gestures, /api/gestures/{name} and
	// /api/gestures/{name}/{chart|plot}
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.clear(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	name, view, _ := strings.Cut(path, "/")
	switch view {
	case "":
	case "chart", "plot":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.render(w, r, name, view)
		return
	default:
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, name)
	case http.MethodDelete:
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type gestureResponse struct {
	Name    string    `json:"name"`
	Builtin bool      `json:"builtin"`
	Stored  bool      `json:"stored"`
	Frames  int       `json:"frames"`
	Updated time.Time `json:"updated,omitzero"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(info app.GestureInfo) gestureResponse {
	return gestureResponse{
		Name:    info.Name,
		Builtin: info.Builtin,
		Stored:  info.Stored,
		Frames:  info.Frames,
		Updated: info.Updated,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/gestures. Stored gestures come first, then the
// built-ins that have no stored counterpart.
func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	response := listGesturesResponse{Gestures: []gestureResponse{}}
	seen := make(map[string]bool)

	for _, name := range h.app.Store().Names() {
		info, err := h.app.Info(name)
		if err != nil {
			continue
		}
		seen[name] = true
		response.Gestures = append(response.Gestures, toResponse(info))
	}
	for _, name := range h.app.Registry().Names() {
		if seen[name] {
			continue
		}
		response.Gestures = append(response.Gestures, gestureResponse{Name: name, Builtin: true})
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/gestures/{name}.
func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, name string) {
	info, err := h.app.Info(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(info))
}

// delete handles DELETE /api/gestures/{name} and removes a stored gesture.
func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	existed, err := h.app.Store().Delete(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clear handles DELETE /api/gestures and removes every stored gesture.
func (h *GestureHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Store().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear gestures")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// render handles GET /api/gestures/{name}/chart and /plot.
func (h *GestureHandler) render(w http.ResponseWriter, r *http.Request, name, view string) {
	g, ok := h.app.Store().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}
	if g.Sequence.Len() == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Gesture has no frames")
		return
	}

	var err error
	switch view {
	case "chart":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = viz.RenderChart(w, g.Name, g.Sequence)
	default:
		w.Header().Set("Content-Type", "image/png")
		err = viz.RenderPNG(w, g.Name, g.Sequence)
	}
	if err != nil {
		http.Error(w, "Failed to render gesture", http.StatusInternalServerError)
	}
}

// userStatus maps recognition errors caused by the request to 422.
func userStatus(err error) int {
	if app.IsUserError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
