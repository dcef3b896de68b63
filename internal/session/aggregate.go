package session

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the aggregate performance statistics of one session.
type Metrics struct {
	AvgAngle         float64 `json:"avgAngle"`
	AngleVariance    float64 `json:"angleVariance"`
	StabilityScore   float64 `json:"stabilityScore"`
	ConsistencyScore float64 `json:"consistencyScore"`
	ErrorRate        float64 `json:"errorRate"`
}

// Summary is the immutable reduction of a completed session, handed to
// reporting. It is computed exactly once, at session end.
type Summary struct {
	SessionID   string        `json:"sessionId"`
	ExerciseID  string        `json:"exerciseId"`
	StartedAt   time.Time     `json:"startedAt"`
	EndedAt     time.Time     `json:"endedAt"`
	DurationMs  int64         `json:"durationMs"`
	Score       float64       `json:"score"`
	Corrections int           `json:"corrections"`
	Reps        int           `json:"reps"`
	TotalFrames int           `json:"totalFrames"`
	Patterns    ErrorPatterns `json:"errorPatterns"`
	Metrics     Metrics       `json:"metrics"`
}

// Aggregate reduces a recorded frame series into performance metrics.
// Angles at or below nearZeroAngle are treated as detection noise (periods
// with no real motion or no person) and excluded from the angle
// statistics so they cannot skew the average; they still count toward
// consistency and error rate.
func Aggregate(frames []FrameAnalysis, nearZeroAngle float64) Metrics {
	total := len(frames)
	if total == 0 {
		return Metrics{}
	}

	correct := 0
	angles := make([]float64, 0, total)
	for _, f := range frames {
		if f.Correct {
			correct++
		}
		if f.Angle > nearZeroAngle {
			angles = append(angles, f.Angle)
		}
	}

	m := Metrics{
		ConsistencyScore: 100 * float64(correct) / float64(total),
		ErrorRate:        100 * float64(total-correct) / float64(total),
	}

	if len(angles) > 0 {
		mean := stat.Mean(angles, nil)
		variance := stat.MomentAbout(2, angles, mean, nil)
		m.AvgAngle = mean
		m.AngleVariance = variance
		m.StabilityScore = math.Max(0, 100-variance/10)
	}

	return m
}

// lowMotion reports whether the subject barely moved: the share of
// near-zero angle frames exceeds the configured fraction.
func lowMotion(frames []FrameAnalysis, cfg Config) bool {
	if len(frames) == 0 {
		return false
	}
	nearZero := 0
	for _, f := range frames {
		if f.Angle <= cfg.NearZeroAngle {
			nearZero++
		}
	}
	return float64(nearZero)/float64(len(frames)) > cfg.LowMotionShare
}

// summarize computes the session summary at the finish instant.
func (s *Session) summarize(endedAt time.Time) *Summary {
	finalScore := s.score
	if lowMotion(s.frames, s.cfg) {
		// A motionless bout must not report a high score; the cap is a
		// tunable policy constant.
		finalScore = math.Min(finalScore, s.cfg.LowMotionScoreCap)
	}

	return &Summary{
		SessionID:   s.id,
		ExerciseID:  s.rule.ID,
		StartedAt:   s.startedAt,
		EndedAt:     endedAt,
		DurationMs:  endedAt.Sub(s.startedAt).Milliseconds(),
		Score:       finalScore,
		Corrections: s.corrections,
		Reps:        s.reps,
		TotalFrames: len(s.frames),
		Patterns:    s.patterns,
		Metrics:     Aggregate(s.frames, s.cfg.NearZeroAngle),
	}
}
