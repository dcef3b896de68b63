// Package session provides the feedback controller and aggregator for one
// exercise bout: per-frame scoring, throttled feedback, hold timers, and
// the end-of-session summary statistics.
package session

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/chikitsa/internal/exercise"
	"github.com/ayusman/chikitsa/internal/feedback"
	"github.com/ayusman/chikitsa/internal/pose"
)

// FrameAnalysis is the recorded result of evaluating one frame. The field
// names form the wire contract consumed by reporting.
type FrameAnalysis struct {
	Angle       float64 `json:"angle"`
	TimestampMs int64   `json:"timestampMs"`
	Correct     bool    `json:"isCorrect"`
	Feedback    string  `json:"feedbackText"`
}

// ErrorPatterns counts why frames were judged incorrect. Counters only
// ever increase during a session.
type ErrorPatterns struct {
	Torso int `json:"torso"`
	Angle int `json:"angle"`
	Range int `json:"range"`
	Total int `json:"total"`
}

func (e *ErrorPatterns) bump(p exercise.Pattern) {
	switch p {
	case exercise.PatternTorso:
		e.Torso++
	case exercise.PatternAngle:
		e.Angle++
	case exercise.PatternRange:
		e.Range++
	}
	e.Total++
}

// Config holds the deployment-tunable coaching constants.
type Config struct {
	// Cooldown is the minimum gap between ordinary feedback emissions.
	Cooldown time.Duration
	// CountdownCooldown is the shorter gap used for time-sensitive hold
	// countdowns.
	CountdownCooldown time.Duration
	// ErrorPenalty is subtracted from the score for each emitted
	// correction.
	ErrorPenalty float64
	// RecoveryCredit is added back per sustained correct frame, up to 100.
	RecoveryCredit float64
	// NearZeroAngle is the floor below which a recorded angle is treated
	// as detection noise and excluded from angle statistics.
	NearZeroAngle float64
	// LowMotionShare is the fraction of near-zero frames above which the
	// subject is considered to have barely moved.
	LowMotionShare float64
	// LowMotionScoreCap caps the final score of a low-motion session so a
	// motionless bout cannot report a misleadingly high score.
	LowMotionScoreCap float64
}

// DefaultConfig returns the default coaching constants.
func DefaultConfig() Config {
	return Config{
		Cooldown:          2500 * time.Millisecond,
		CountdownCooldown: 900 * time.Millisecond,
		ErrorPenalty:      1.0,
		RecoveryCredit:    0.05,
		NearZeroAngle:     5.0,
		LowMotionShare:    0.6,
		LowMotionScoreCap: 30,
	}
}

// Emission priorities. Forced emissions bypass throttling entirely.
const (
	prioNormal = iota
	prioCountdown
	prioForced
)

// Session is the mutable running state of one exercise bout. It is owned
// and mutated by exactly one goroutine: the frame loop processes one frame
// fully before the next is admitted, so no locking is needed.
type Session struct {
	id        string
	rule      *exercise.Rule
	cfg       Config
	sink      feedback.Sink
	startedAt time.Time

	score       float64
	corrections int
	reps        int
	patterns    ErrorPatterns
	frames      []FrameAnalysis

	holdStart time.Time
	lastEmit  time.Time

	lastTracked pose.Landmark
	hasTracked  bool
	travel      float64
	windowStart time.Time

	finished bool
	summary  *Summary
}

// New creates a session for the given rule starting at the given instant.
// The sink may be nil, in which case feedback is decided but not delivered.
func New(rule *exercise.Rule, cfg Config, sink feedback.Sink, startedAt time.Time) *Session {
	return &Session{
		id:        uuid.New().String(),
		rule:      rule,
		cfg:       cfg,
		sink:      sink,
		startedAt: startedAt,
		score:     100,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Rule returns the exercise rule this session is coaching.
func (s *Session) Rule() *exercise.Rule { return s.rule }

// StartedAt returns the session start instant.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Score returns the current running score.
func (s *Session) Score() float64 { return s.score }

// Corrections returns the number of corrections emitted so far.
func (s *Session) Corrections() int { return s.corrections }

// Reps returns the number of completed hold repetitions.
func (s *Session) Reps() int { return s.reps }

// Patterns returns the current error-pattern counters.
func (s *Session) Patterns() ErrorPatterns { return s.patterns }

// Frames returns the recorded frame series. The slice is owned by the
// session and must be treated as read-only.
func (s *Session) Frames() []FrameAnalysis { return s.frames }

// Finished reports whether the session has been completed.
func (s *Session) Finished() bool { return s.finished }

// Process evaluates one frame captured at the given instant, updates the
// running state, and records the analysis. Frames arriving after Finish
// are ignored.
func (s *Session) Process(sk *pose.Skeleton, at time.Time) FrameAnalysis {
	if s.finished {
		return FrameAnalysis{}
	}

	elapsed := at.Sub(s.startedAt)
	verdict := exercise.Evaluate(s.rule, sk, elapsed)

	// An advisory only costs score when the rule opted in.
	isError := verdict.Error || (verdict.Advisory && s.rule.CountsAsError)

	analysis := FrameAnalysis{
		Angle:       verdict.Angle,
		TimestampMs: at.UnixMilli(),
		Correct:     !isError,
		Feedback:    verdict.Feedback,
	}
	s.frames = append(s.frames, analysis)

	// Absence of a person affects nothing: no score, no counters, no
	// hold timers.
	if !verdict.Detected {
		return analysis
	}

	if isError {
		// A single error frame clears a running hold; no grace frame.
		s.holdStart = time.Time{}
		if s.emit(verdict.Feedback, at, prioNormal) {
			s.score = clampScore(s.score - s.cfg.ErrorPenalty)
			s.corrections++
			s.patterns.bump(verdict.Pattern)
		}
		return analysis
	}

	s.score = clampScore(s.score + s.cfg.RecoveryCredit)

	switch {
	case verdict.Advisory:
		s.emit(verdict.Feedback, at, prioNormal)
	case s.rule.Hold > 0:
		s.advanceHold(at)
	case verdict.Feedback != "":
		s.emit(verdict.Feedback, at, prioNormal)
	}

	s.trackMotion(sk, at)
	return analysis
}

// Finish completes the session and computes its summary. Finish is
// idempotent: repeated calls return the same summary and mutate nothing.
func (s *Session) Finish(at time.Time) *Summary {
	if s.finished {
		return s.summary
	}
	s.finished = true
	s.summary = s.summarize(at)
	return s.summary
}

// advanceHold runs the hold state machine on a correct frame: enter
// holding on the first correct frame, announce countdowns, and on reaching
// the required duration count a repetition and restart the timer.
func (s *Session) advanceHold(at time.Time) {
	if s.holdStart.IsZero() {
		s.holdStart = at
		return
	}

	held := at.Sub(s.holdStart)
	if held >= s.rule.Hold {
		s.reps++
		s.emit("Well done, rest a moment", at, prioForced)
		s.holdStart = at
		return
	}

	remaining := s.rule.Hold - held
	s.emit(fmt.Sprintf("Hold... %d seconds left", int(remaining.Seconds())+1), at, prioCountdown)
}

// trackMotion accumulates frame-to-frame displacement of the rule's
// tracked joint and prompts the user when a window closes with too little
// travel. The prompt is advisory and never penalized here.
func (s *Session) trackMotion(sk *pose.Skeleton, at time.Time) {
	m := s.rule.Motion
	if m == nil {
		return
	}

	if p, ok := sk.Point(m.Joint); ok {
		if s.hasTracked {
			s.travel += pose.Distance(p, s.lastTracked)
		}
		s.lastTracked = p
		s.hasTracked = true
	}

	if s.windowStart.IsZero() {
		s.windowStart = at
		return
	}
	if at.Sub(s.windowStart) < m.Window {
		return
	}

	if s.travel < m.MinTravel {
		s.emit("Keep moving", at, prioNormal)
	}
	s.travel = 0
	s.windowStart = at
}

// emit delivers feedback through the sink subject to throttling. It
// reports whether the text was actually emitted.
func (s *Session) emit(text string, at time.Time, prio int) bool {
	if text == "" {
		return false
	}

	if prio != prioForced {
		cooldown := s.cfg.Cooldown
		if prio == prioCountdown {
			cooldown = s.cfg.CountdownCooldown
		}
		if !s.lastEmit.IsZero() && at.Sub(s.lastEmit) < cooldown {
			return false
		}
	}

	s.lastEmit = at
	if s.sink != nil {
		if err := s.sink.Announce(text); err != nil {
			log.Printf("feedback sink: %v", err)
		}
	}
	return true
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
