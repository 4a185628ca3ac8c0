package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
)

// ControlHandler exposes the application switches: status, the enabled
// flag and the video source.
type ControlHandler struct {
	app *app.App
}

// NewControlHandler creates a new ControlHandler for a.
func NewControlHandler(a *app.App) *ControlHandler {
	return &ControlHandler{app: a}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// Status handles GET /api/status.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Status())
}

// Enabled handles PUT /api/enabled.
func (h *ControlHandler) Enabled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Expected {\"enabled\": bool}")
		return
	}
	h.app.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, h.app.Status())
}

// Source handles GET and PUT /api/source.
func (h *ControlHandler) Source(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		src, open := h.app.Source()
		writeJSON(w, http.StatusOK, sourceResponse{Source: src, Open: open})
	case http.MethodPut:
		var src capture.Source
		if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if src.Camera < 0 {
			writeError(w, http.StatusBadRequest, "Camera index must not be negative")
			return
		}
		if err := h.app.SetSource(src); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sourceResponse{Source: src, Open: true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type sourceResponse struct {
	Source capture.Source `json:"source"`
	Open   bool           `json:"open"`
}
