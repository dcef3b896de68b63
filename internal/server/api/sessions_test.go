package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/chikitsa/internal/app"
	"github.com/ayusman/chikitsa/internal/exercise"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

// fakeCoach implements Coach without a camera pipeline.
type fakeCoach struct {
	active  *session.Session
	summary *session.Summary
	status  app.LiveStatus
}

func (f *fakeCoach) StartSession(exerciseID string) (*session.Session, error) {
	if f.active != nil {
		return nil, app.ErrSessionActive
	}
	rule, ok := exercise.Builtin().Get(exerciseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", exercise.ErrRuleNotFound, exerciseID)
	}
	f.active = session.New(rule, session.DefaultConfig(), nil, time.Now())
	return f.active, nil
}

func (f *fakeCoach) FinishSession() (*session.Summary, error) {
	if f.active == nil {
		return nil, app.ErrNoSession
	}
	summary := f.active.Finish(time.Now())
	f.active = nil
	f.summary = summary
	return summary, nil
}

func (f *fakeCoach) Live() app.LiveStatus {
	return f.status
}

func testStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *store.Store, id string) {
	t.Helper()

	if err := s.Exercises().Upsert(&store.Exercise{
		ID: "shoulder_abduction", Name: "Shoulder Abduction", Enabled: true,
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	started := time.Now().Add(-time.Minute)
	if err := s.Sessions().Create(&store.Session{
		ID:         id,
		ExerciseID: "shoulder_abduction",
		StartedAt:  started,
		EndedAt:    started.Add(time.Minute),
		DurationMs: 60000,
		Score:      88,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestSessionHandler_Start(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	body := strings.NewReader(`{"exerciseId": "shoulder_abduction"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp startSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ExerciseID != "shoulder_abduction" {
		t.Errorf("exerciseId = %q", resp.ExerciseID)
	}
	if resp.SessionID == "" {
		t.Error("sessionId should be set")
	}
}

func TestSessionHandler_StartConflict(t *testing.T) {
	coach := &fakeCoach{}
	h := NewSessionHandler(testStore(t), coach)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		body := strings.NewReader(`{"exerciseId": "shoulder_abduction"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestSessionHandler_StartUnknownExercise(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	body := strings.NewReader(`{"exerciseId": "nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_StartBadRequest(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	cases := []string{`not json`, `{}`}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestSessionHandler_Finish(t *testing.T) {
	coach := &fakeCoach{}
	h := NewSessionHandler(testStore(t), coach)

	start := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"exerciseId": "shoulder_abduction"}`))
	h.ServeHTTP(httptest.NewRecorder(), start)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/active", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var summary session.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ExerciseID != "shoulder_abduction" {
		t.Errorf("exerciseId = %q", summary.ExerciseID)
	}
}

func TestSessionHandler_FinishNoSession(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/active", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_Live(t *testing.T) {
	coach := &fakeCoach{status: app.LiveStatus{
		Active:       true,
		SessionID:    "sess-1",
		ExerciseID:   "shoulder_abduction",
		ExerciseName: "Shoulder Abduction",
		Score:        97.5,
	}}
	h := NewSessionHandler(testStore(t), coach)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/active", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status app.LiveStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Active || status.SessionID != "sess-1" {
		t.Errorf("status = %+v", status)
	}
}

func TestSessionHandler_GetStored(t *testing.T) {
	s := testStore(t)
	seedSession(t, s, "sess-1")
	h := NewSessionHandler(s, &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "sess-1" || resp.Score != 88 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSessionHandler_GetNotFound(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_List(t *testing.T) {
	s := testStore(t)
	seedSession(t, s, "sess-1")
	h := NewSessionHandler(s, &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?exercise_id=shoulder_abduction&limit=10", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp listSessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Errorf("got %d sessions, want 1", len(resp.Sessions))
	}
}

func TestSessionHandler_ListBadLimit(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSessionHandler_Report(t *testing.T) {
	s := testStore(t)
	seedSession(t, s, "sess-1")
	h := NewSessionHandler(s, &fakeCoach{})

	// Not generated yet.
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/report", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before generation", rec.Code)
	}

	if err := s.Reports().Save(&store.Report{
		SessionID: "sess-1",
		Summary:   "Good session.",
		Analysis:  "Stable form.",
		Tip:       "Keep it up.",
		Source:    "fallback",
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/report", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary != "Good session." || resp.Source != "fallback" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSessionHandler_Chart(t *testing.T) {
	s := testStore(t)
	seedSession(t, s, "sess-1")

	frames := []session.FrameAnalysis{
		{Angle: 90, TimestampMs: 0, Correct: true},
		{Angle: 92, TimestampMs: 400, Correct: true},
	}
	data, err := json.Marshal(frames)
	if err != nil {
		t.Fatalf("marshal frames: %v", err)
	}
	started := time.Now().Add(-time.Minute)
	if err := s.Sessions().Create(&store.Session{
		ID:         "sess-2",
		ExerciseID: "shoulder_abduction",
		StartedAt:  started,
		EndedAt:    started.Add(time.Minute),
		Frames:     string(data),
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	h := NewSessionHandler(s, &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-2/chart", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Shoulder Abduction") {
		t.Error("chart should carry the exercise name")
	}

	// A session stored without frames has nothing to chart.
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/chart", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without frame data", rec.Code)
	}
}

func TestSessionHandler_ChartNotFound(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing/chart", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	h := NewSessionHandler(testStore(t), &fakeCoach{})

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/active", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
