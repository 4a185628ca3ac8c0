package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
)

// LearningHandler controls learning sessions via /api/learning.
type LearningHandler struct {
	app *app.App
}

// NewLearningHandler creates a new LearningHandler for a.
func NewLearningHandler(a *app.App) *LearningHandler {
	return &LearningHandler{app: a}
}

type startLearningRequest struct {
	Name string `json:"name"`
}

type learningResponse struct {
	Active bool   `json:"active"`
	Name   string `json:"name,omitempty"`
	Frames int    `json:"frames"`
}

type learnResultResponse struct {
	Name     string `json:"name"`
	Captured int    `json:"captured"`
	Frames   int    `json:"frames"`
}

// ServeHTTP implements the http.Handler interface.
//
//	GET    reports the active session
//	POST   starts recording {"name": "..."}
//	DELETE finalizes and saves, or discards with ?discard=true
func (h *LearningHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.status(w)
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		h.stop(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LearningHandler) status(w http.ResponseWriter) {
	name, frames, active := h.app.Learning()
	writeJSON(w, http.StatusOK, learningResponse{Active: active, Name: name, Frames: frames})
}

func (h *LearningHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startLearningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.StartLearning(req.Name); err != nil {
		writeError(w, userStatus(err), err.Error())
		return
	}

	name, frames, active := h.app.Learning()
	writeJSON(w, http.StatusCreated, learningResponse{Active: active, Name: name, Frames: frames})
}

func (h *LearningHandler) stop(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("discard") == "true" {
		h.app.CancelLearning()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, err := h.app.StopLearning()
	if err != nil {
		writeError(w, userStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, learnResultResponse{
		Name:     res.Name,
		Captured: res.Captured,
		Frames:   res.Sequence.Len(),
	})
}
