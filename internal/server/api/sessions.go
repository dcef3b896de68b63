package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/chikitsa/internal/app"
	"github.com/ayusman/chikitsa/internal/exercise"
	"github.com/ayusman/chikitsa/internal/report"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

// SessionHandler handles HTTP requests for session resources and the
// session lifecycle.
type SessionHandler struct {
	store *store.Store
	coach Coach
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s *store.Store, coach Coach) *SessionHandler {
	return &SessionHandler{store: s, coach: coach}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths:
	//   /api/sessions                start (POST) or list (GET)
	//   /api/sessions/active         live status (GET) or finish (DELETE)
	//   /api/sessions/{id}           summary (GET)
	//   /api/sessions/{id}/report    report (GET)
	//   /api/sessions/{id}/chart     angle chart HTML (GET)
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.start(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "active" {
		switch r.Method {
		case http.MethodGet:
			h.live(w, r)
		case http.MethodDelete:
			h.finish(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/report"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.report(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/chart"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.chart(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.get(w, r, path)
}

type startSessionRequest struct {
	ExerciseID string `json:"exerciseId"`
}

type startSessionResponse struct {
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	StartedAt  string `json:"startedAt"`
}

type sessionResponse struct {
	ID               string  `json:"id"`
	ExerciseID       string  `json:"exerciseId"`
	StartedAt        string  `json:"startedAt"`
	EndedAt          string  `json:"endedAt"`
	DurationMs       int64   `json:"durationMs"`
	Score            float64 `json:"score"`
	Corrections      int     `json:"corrections"`
	Reps             int     `json:"reps"`
	TotalFrames      int     `json:"totalFrames"`
	TorsoErrors      int     `json:"torsoErrors"`
	AngleErrors      int     `json:"angleErrors"`
	RangeErrors      int     `json:"rangeErrors"`
	TotalErrors      int     `json:"totalErrors"`
	AvgAngle         float64 `json:"avgAngle"`
	AngleVariance    float64 `json:"angleVariance"`
	StabilityScore   float64 `json:"stabilityScore"`
	ConsistencyScore float64 `json:"consistencyScore"`
	ErrorRate        float64 `json:"errorRate"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type reportResponse struct {
	SessionID string `json:"sessionId"`
	Summary   string `json:"summary"`
	Analysis  string `json:"analysis"`
	Tip       string `json:"tip"`
	Source    string `json:"source"`
}

func sessionToResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:               s.ID,
		ExerciseID:       s.ExerciseID,
		StartedAt:        s.StartedAt.Format(time.RFC3339),
		EndedAt:          s.EndedAt.Format(time.RFC3339),
		DurationMs:       s.DurationMs,
		Score:            s.Score,
		Corrections:      s.Corrections,
		Reps:             s.Reps,
		TotalFrames:      s.TotalFrames,
		TorsoErrors:      s.TorsoErrors,
		AngleErrors:      s.AngleErrors,
		RangeErrors:      s.RangeErrors,
		TotalErrors:      s.TotalErrors,
		AvgAngle:         s.AvgAngle,
		AngleVariance:    s.AngleVariance,
		StabilityScore:   s.StabilityScore,
		ConsistencyScore: s.ConsistencyScore,
		ErrorRate:        s.ErrorRate,
	}
}

// start handles POST /api/sessions and begins a coaching session.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ExerciseID == "" {
		writeError(w, http.StatusBadRequest, "exerciseId is required")
		return
	}

	sess, err := h.coach.StartSession(req.ExerciseID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSessionActive):
			writeError(w, http.StatusConflict, "A session is already active")
		case errors.Is(err, exercise.ErrRuleNotFound):
			writeError(w, http.StatusNotFound, "Exercise not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start session")
		}
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:  sess.ID(),
		ExerciseID: sess.Rule().ID,
		StartedAt:  sess.StartedAt().Format(time.RFC3339),
	})
}

// finish handles DELETE /api/sessions/active and completes the active session.
func (h *SessionHandler) finish(w http.ResponseWriter, r *http.Request) {
	summary, err := h.coach.FinishSession()
	if err != nil {
		if errors.Is(err, app.ErrNoSession) {
			writeError(w, http.StatusNotFound, "No active session")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to finish session")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// live handles GET /api/sessions/active and returns the live status.
func (h *SessionHandler) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coach.Live())
}

// list handles GET /api/sessions and returns stored session summaries.
// Supports ?exercise_id= and ?limit= query parameters.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := h.store.Sessions().List(r.URL.Query().Get("exercise_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, sessionToResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns a stored summary.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(s))
}

// report handles GET /api/sessions/{id}/report and returns the stored
// report, which may lag the session by a few seconds while it generates.
func (h *SessionHandler) report(w http.ResponseWriter, r *http.Request, id string) {
	rep, err := h.store.Reports().GetBySessionID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Report not available")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		SessionID: rep.SessionID,
		Summary:   rep.Summary,
		Analysis:  rep.Analysis,
		Tip:       rep.Tip,
		Source:    rep.Source,
	})
}

// chart handles GET /api/sessions/{id}/chart and renders the recorded
// angle series as a standalone HTML page.
func (h *SessionHandler) chart(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	var frames []session.FrameAnalysis
	if err := json.Unmarshal([]byte(s.Frames), &frames); err != nil || len(frames) == 0 {
		writeError(w, http.StatusNotFound, "No frame data recorded for this session")
		return
	}

	exerciseName := s.ExerciseID
	if e, err := h.store.Exercises().GetByID(s.ExerciseID); err == nil {
		exerciseName = e.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteAngleChart(w, exerciseName, frames); err != nil {
		log.Printf("api: render chart for session %s: %v", id, err)
	}
}
