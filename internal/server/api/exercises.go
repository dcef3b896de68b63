// Package api provides HTTP API handlers for the Chikitsa rehabilitation coach.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/chikitsa/internal/app"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

// Coach is the subset of the application the session API needs. It is an
// interface so handlers can be tested without a camera pipeline.
type Coach interface {
	StartSession(exerciseID string) (*session.Session, error)
	FinishSession() (*session.Summary, error)
	Live() app.LiveStatus
}

// ExerciseHandler handles HTTP requests for the exercise catalog.
type ExerciseHandler struct {
	store *store.Store
}

// NewExerciseHandler creates a new ExerciseHandler with the given store.
func NewExerciseHandler(s *store.Store) *ExerciseHandler {
	return &ExerciseHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/exercises or /api/exercises/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/exercises")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type exerciseResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	HoldSeconds     float64 `json:"holdSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	Enabled         bool    `json:"enabled"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func exerciseToResponse(e *store.Exercise) exerciseResponse {
	return exerciseResponse{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		HoldSeconds:     e.HoldSeconds,
		DurationSeconds: e.DurationSeconds,
		Enabled:         e.Enabled,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
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

// list handles GET /api/exercises and returns the exercise catalog.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.store.Exercises().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exercises")
		return
	}

	response := listExercisesResponse{
		Exercises: make([]exerciseResponse, 0, len(exercises)),
	}
	for _, e := range exercises {
		response.Exercises = append(response.Exercises, exerciseToResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/exercises/{id} and returns a single exercise.
func (h *ExerciseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, err := h.store.Exercises().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return
	}

	writeJSON(w, http.StatusOK, exerciseToResponse(e))
}
