// Package app provides the main application logic for the Chikitsa
// rehabilitation coach: the camera pipeline, session lifecycle, and the
// glue between detection, coaching, storage, and reporting.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/chikitsa/internal/capture"
	"github.com/ayusman/chikitsa/internal/exercise"
	"github.com/ayusman/chikitsa/internal/feedback"
	"github.com/ayusman/chikitsa/internal/pose"
	"github.com/ayusman/chikitsa/internal/report"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

// Pipeline timing constants.
const (
	// IdleTimeoutMs is the time in milliseconds without activity before
	// the camera drops back to the idle frame rate.
	IdleTimeoutMs = 2000
	// PluginTimeout is the default per-announcement feedback plugin timeout.
	PluginTimeout = 5 * time.Second
	// announceQueueSize bounds pending plugin announcements.
	announceQueueSize = 16
)

// Session lifecycle errors.
var (
	ErrNoSession     = errors.New("no active session")
	ErrSessionActive = errors.New("a session is already active")
)

// Config holds configuration options for the application.
type Config struct {
	Store             *store.Store
	Registry          *exercise.Registry
	PluginDir         string
	CameraID          int
	PresenceThreshold float64
	IdleFPS           int
	ActiveFPS         int
	Detector          pose.Config
	Session           session.Config
	Reporter          *report.Generator
}

// LiveStatus is a point-in-time snapshot of the active session, broadcast
// to live feed subscribers.
type LiveStatus struct {
	Active       bool    `json:"active"`
	SessionID    string  `json:"sessionId,omitempty"`
	ExerciseID   string  `json:"exerciseId,omitempty"`
	ExerciseName string  `json:"exerciseName,omitempty"`
	Score        float64 `json:"score"`
	Corrections  int     `json:"corrections"`
	Reps         int     `json:"reps"`
	ElapsedMs    int64   `json:"elapsedMs"`
}

// App is the main application that orchestrates pose detection and
// session coaching.
type App struct {
	config   Config
	camera   capture.Camera
	presence *capture.PresenceDetector
	detector pose.Detector
	registry *exercise.Registry
	sink     feedback.Sink
	reporter *report.Generator

	async *feedback.AsyncSink

	mu      sync.Mutex
	active  *session.Session
	enabled bool
	stopCh  chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	presenceThreshold := config.PresenceThreshold
	if presenceThreshold <= 0 {
		presenceThreshold = 1.0 // Default threshold: 1% pixel change
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = capture.IdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = capture.ActiveFPS
	}
	if config.Detector == (pose.Config{}) {
		config.Detector = pose.DefaultConfig()
	}
	if config.Session == (session.Config{}) {
		config.Session = session.DefaultConfig()
	}
	if config.Registry == nil {
		config.Registry = exercise.Builtin()
	}

	a := &App{
		config:   config,
		camera:   capture.NewCamera(config.CameraID),
		presence: capture.NewPresenceDetector(presenceThreshold),
		registry: config.Registry,
		reporter: config.Reporter,
		enabled:  true,
	}

	sinks, err := feedback.SinksFromDir(config.PluginDir, PluginTimeout)
	if err != nil {
		log.Printf("Feedback plugin discovery failed: %v", err)
	}
	// Plugin delivery runs off the frame loop so a slow synthesizer can
	// never stall frame processing or live snapshots.
	a.async = feedback.NewAsyncSink(sinks, announceQueueSize)
	a.sink = a.async

	// Try MediaPipe first, fall back to mock detector
	if mp, err := pose.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = pose.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables coaching.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether coaching is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d pose.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera sets the camera implementation to use.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetSink sets the feedback sink to use.
func (a *App) SetSink(s feedback.Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = s
}

// Registry returns the exercise rule registry.
func (a *App) Registry() *exercise.Registry {
	return a.registry
}

// Store returns the backing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.camera
}

// SyncCatalog mirrors the rule registry into the exercise catalog table so
// sessions can reference exercises by foreign key.
func (a *App) SyncCatalog() error {
	if a.config.Store == nil {
		return nil
	}

	repo := a.config.Store.Exercises()
	for _, rule := range a.registry.List() {
		err := repo.Upsert(&store.Exercise{
			ID:              rule.ID,
			Name:            rule.Name,
			Description:     rule.Description,
			HoldSeconds:     rule.Hold.Seconds(),
			DurationSeconds: rule.Duration.Seconds(),
			CountsAdvisory:  rule.CountsAsError,
			Enabled:         true,
		})
		if err != nil {
			return fmt.Errorf("sync exercise %s: %w", rule.ID, err)
		}
	}

	log.Printf("Synced %d exercises to catalog", len(a.registry.List()))
	return nil
}

// StartSession begins a coaching session for the given exercise. Only one
// session may be active at a time.
func (a *App) StartSession(exerciseID string) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		return nil, ErrSessionActive
	}

	rule, ok := a.registry.Get(exerciseID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", exercise.ErrRuleNotFound, exerciseID)
	}

	sess := session.New(rule, a.config.Session, a.sink, time.Now())
	a.active = sess
	a.camera.SetFPS(a.config.ActiveFPS)
	// Plugin sinks label announcements with the exercise they belong to.
	feedback.TagExercise(a.sink, rule.ID)

	// The start announcement goes straight to the sink; session feedback
	// throttling begins with the first correction.
	a.announce(fmt.Sprintf("Starting %s. %s", rule.Name, rule.Description))
	log.Printf("Session %s started for exercise %s", sess.ID(), rule.ID)

	return sess, nil
}

// FinishSession completes the active session, persists its summary, and
// kicks off report generation.
func (a *App) FinishSession() (*session.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finishLocked(time.Now())
}

// finishLocked completes the active session. The caller must hold a.mu.
func (a *App) finishLocked(at time.Time) (*session.Summary, error) {
	if a.active == nil {
		return nil, ErrNoSession
	}

	sess := a.active
	rule := sess.Rule()
	summary := sess.Finish(at)
	a.active = nil
	a.camera.SetFPS(a.config.IdleFPS)
	a.presence.Reset()

	a.announce(fmt.Sprintf("Session complete. Your score is %.0f", summary.Score))
	log.Printf("Session %s finished: score=%.1f corrections=%d reps=%d frames=%d",
		summary.SessionID, summary.Score, summary.Corrections, summary.Reps, summary.TotalFrames)

	if a.config.Store != nil {
		if err := a.persistSummary(summary, sess.Frames()); err != nil {
			log.Printf("Failed to persist session %s: %v", summary.SessionID, err)
		} else if a.reporter != nil {
			go a.generateReport(rule.Name, summary)
		}
	}

	return summary, nil
}

// persistSummary writes a session summary and its frame series to the store.
func (a *App) persistSummary(sum *session.Summary, frames []session.FrameAnalysis) error {
	framesJSON, err := json.Marshal(frames)
	if err != nil {
		return fmt.Errorf("marshal frames: %w", err)
	}

	return a.config.Store.Sessions().Create(&store.Session{
		ID:               sum.SessionID,
		ExerciseID:       sum.ExerciseID,
		StartedAt:        sum.StartedAt,
		EndedAt:          sum.EndedAt,
		DurationMs:       sum.DurationMs,
		Score:            sum.Score,
		Corrections:      sum.Corrections,
		Reps:             sum.Reps,
		TotalFrames:      sum.TotalFrames,
		TorsoErrors:      sum.Patterns.Torso,
		AngleErrors:      sum.Patterns.Angle,
		RangeErrors:      sum.Patterns.Range,
		TotalErrors:      sum.Patterns.Total,
		AvgAngle:         sum.Metrics.AvgAngle,
		AngleVariance:    sum.Metrics.AngleVariance,
		StabilityScore:   sum.Metrics.StabilityScore,
		ConsistencyScore: sum.Metrics.ConsistencyScore,
		ErrorRate:        sum.Metrics.ErrorRate,
		Frames:           string(framesJSON),
	})
}

// generateReport produces and stores the session report in the background.
func (a *App) generateReport(exerciseName string, sum *session.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rep := a.reporter.Generate(ctx, exerciseName, sum)
	err := a.config.Store.Reports().Save(&store.Report{
		SessionID: sum.SessionID,
		Summary:   rep.Summary,
		Analysis:  rep.Analysis,
		Tip:       rep.Tip,
		Source:    rep.Source,
	})
	if err != nil {
		log.Printf("Failed to save report for session %s: %v", sum.SessionID, err)
	}
}

// announce delivers text to the sink, logging any delivery failure.
func (a *App) announce(text string) {
	if a.sink == nil {
		return
	}
	if err := a.sink.Announce(text); err != nil {
		log.Printf("feedback sink: %v", err)
	}
}

// Live returns a snapshot of the active session for live feed subscribers.
func (a *App) Live() LiveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active == nil {
		return LiveStatus{}
	}

	sess := a.active
	return LiveStatus{
		Active:       true,
		SessionID:    sess.ID(),
		ExerciseID:   sess.Rule().ID,
		ExerciseName: sess.Rule().Name,
		Score:        sess.Score(),
		Corrections:  sess.Corrections(),
		Reps:         sess.Reps(),
		ElapsedMs:    time.Since(sess.StartedAt()).Milliseconds(),
	}
}

// Start begins the coaching pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	// Open the camera
	if err := a.camera.Open(); err != nil {
		return err
	}

	// Start at the idle frame rate
	a.camera.SetFPS(a.config.IdleFPS)

	// Create stop channel and start the pipeline
	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Coaching pipeline started")
	return nil
}

// Stop halts the coaching pipeline and releases resources. Any active
// session is finished and persisted.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		if _, err := a.finishLocked(time.Now()); err != nil {
			log.Printf("Error finishing session on stop: %v", err)
		}
	}

	// Signal the pipeline to stop
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	// Close the camera
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	// Close presence detector
	a.presence.Close()

	// Drain pending announcements so the finish message is delivered
	if a.async != nil {
		a.async.Close()
		a.async = nil
	}

	// Close the pose detector if set
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Coaching pipeline stopped")
}
