package app

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/chikitsa/internal/capture"
	"github.com/ayusman/chikitsa/internal/exercise"
	"github.com/ayusman/chikitsa/internal/feedback"
	"github.com/ayusman/chikitsa/internal/pose"
	"github.com/ayusman/chikitsa/internal/session"
	"github.com/ayusman/chikitsa/internal/store"
)

// testApp builds an App backed by a temporary store, a mock camera, a mock
// detector, and a recording sink.
func testApp(t *testing.T) (*App, *store.Store, *[]string) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := New(Config{
		Store:     s,
		PluginDir: filepath.Join(t.TempDir(), "plugins"),
	})
	a.SetCamera(capture.NewMockCamera(nil, true))
	a.SetDetector(pose.NewMockDetector())

	var announced []string
	a.SetSink(feedback.FuncSink(func(text string) error {
		announced = append(announced, text)
		return nil
	}))

	if err := a.SyncCatalog(); err != nil {
		t.Fatalf("SyncCatalog() error = %v", err)
	}

	return a, s, &announced
}

func TestApp_SyncCatalog(t *testing.T) {
	_, s, _ := testApp(t)

	exercises, err := s.Exercises().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(exercises) != 6 {
		t.Fatalf("catalog has %d exercises, want 6", len(exercises))
	}

	e, err := s.Exercises().GetByID("scapular_w_hold")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if e.HoldSeconds != 5 || e.DurationSeconds != 90 {
		t.Errorf("timings = %v/%v, want 5/90", e.HoldSeconds, e.DurationSeconds)
	}
}

func TestApp_SessionLifecycle(t *testing.T) {
	a, s, announced := testApp(t)

	sess, err := a.StartSession("shoulder_abduction")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if sess == nil {
		t.Fatal("StartSession() returned a nil session")
	}

	if got := a.Camera().FPS(); got != capture.ActiveFPS {
		t.Errorf("camera FPS = %d, want active rate %d", got, capture.ActiveFPS)
	}

	if _, err := a.StartSession("ear_touch"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second StartSession() error = %v, want ErrSessionActive", err)
	}

	status := a.Live()
	if !status.Active || status.SessionID != sess.ID() {
		t.Errorf("Live() = %+v", status)
	}
	if status.ExerciseName != "Shoulder Abduction" {
		t.Errorf("ExerciseName = %q", status.ExerciseName)
	}

	summary, err := a.FinishSession()
	if err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}
	if summary.SessionID != sess.ID() {
		t.Errorf("summary session = %q, want %q", summary.SessionID, sess.ID())
	}

	if got := a.Camera().FPS(); got != capture.IdleFPS {
		t.Errorf("camera FPS after finish = %d, want idle rate %d", got, capture.IdleFPS)
	}
	if a.Live().Active {
		t.Error("Live() should report inactive after finish")
	}

	if _, err := a.FinishSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("FinishSession() twice error = %v, want ErrNoSession", err)
	}

	// Start and completion are both announced.
	if len(*announced) < 2 {
		t.Fatalf("announcements = %v, want start and finish", *announced)
	}
	if (*announced)[0] != "Starting Shoulder Abduction. Raise the arm sideways to shoulder height and hold it level." {
		t.Errorf("start announcement = %q", (*announced)[0])
	}

	// The summary was persisted.
	stored, err := s.Sessions().GetByID(sess.ID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.ExerciseID != "shoulder_abduction" {
		t.Errorf("stored exercise = %q", stored.ExerciseID)
	}
}

func TestApp_StartSessionUnknownExercise(t *testing.T) {
	a, _, _ := testApp(t)

	if _, err := a.StartSession("nope"); !errors.Is(err, exercise.ErrRuleNotFound) {
		t.Errorf("StartSession() error = %v, want ErrRuleNotFound", err)
	}
}

func TestApp_PersistsFrameSeries(t *testing.T) {
	a, s, _ := testApp(t)

	sess, err := a.StartSession("shoulder_abduction")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	// Feed frames directly; the pipeline is not running in this test.
	start := sess.StartedAt()
	for i := 0; i < 3; i++ {
		sess.Process(pose.RaisedArmLandmarks(), start.Add(time.Duration(i)*100*time.Millisecond))
	}

	if _, err := a.FinishSession(); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}

	stored, err := s.Sessions().GetByID(sess.ID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.TotalFrames != 3 {
		t.Errorf("TotalFrames = %d, want 3", stored.TotalFrames)
	}

	var frames []session.FrameAnalysis
	if err := json.Unmarshal([]byte(stored.Frames), &frames); err != nil {
		t.Fatalf("stored frames are not valid JSON: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("stored %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if !f.Correct {
			t.Errorf("frame %d should be correct", i)
		}
	}
}

func TestApp_EnabledToggle(t *testing.T) {
	a, _, _ := testApp(t)

	if !a.IsEnabled() {
		t.Error("coaching should be enabled by default")
	}
	a.SetEnabled(false)
	if a.IsEnabled() {
		t.Error("SetEnabled(false) should disable coaching")
	}
	a.SetEnabled(true)
	if !a.IsEnabled() {
		t.Error("SetEnabled(true) should re-enable coaching")
	}
}

func TestApp_LiveWithoutSession(t *testing.T) {
	a, _, _ := testApp(t)

	status := a.Live()
	if status.Active || status.SessionID != "" {
		t.Errorf("Live() without a session = %+v", status)
	}
}

func TestApp_DetectorConfig(t *testing.T) {
	a := New(Config{PluginDir: filepath.Join(t.TempDir(), "plugins")})
	defer a.async.Close()

	if a.config.Detector != pose.DefaultConfig() {
		t.Errorf("zero detector config = %+v, want defaults", a.config.Detector)
	}

	custom := pose.Config{MinConfidence: 0.7, MinTrackingConf: 0.6, ModelComplexity: 2}
	b := New(Config{PluginDir: filepath.Join(t.TempDir(), "plugins"), Detector: custom})
	defer b.async.Close()

	if b.config.Detector != custom {
		t.Errorf("detector config = %+v, want %+v", b.config.Detector, custom)
	}
}

func TestApp_SinkIsAsynchronous(t *testing.T) {
	a := New(Config{PluginDir: filepath.Join(t.TempDir(), "plugins")})
	defer a.async.Close()

	if _, ok := a.sink.(*feedback.AsyncSink); !ok {
		t.Errorf("sink is %T, want an asynchronous wrapper", a.sink)
	}
}

// exerciseRecordingSink remembers the exercise ids it is tagged with.
type exerciseRecordingSink struct {
	tags []string
}

func (s *exerciseRecordingSink) Announce(string) error { return nil }

func (s *exerciseRecordingSink) SetExercise(id string) {
	s.tags = append(s.tags, id)
}

func TestApp_StartSessionTagsSinks(t *testing.T) {
	a, _, _ := testApp(t)

	recorder := &exerciseRecordingSink{}
	a.SetSink(feedback.MultiSink{recorder})

	if _, err := a.StartSession("ear_touch"); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if len(recorder.tags) != 1 || recorder.tags[0] != "ear_touch" {
		t.Errorf("tags = %v, want [ear_touch]", recorder.tags)
	}

	if _, err := a.FinishSession(); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}
}
