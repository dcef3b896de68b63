// Package exercise provides the per-exercise posture rules and the frame
// evaluator that classifies detected skeletons against them.
package exercise

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/chikitsa/internal/pose"
)

// ErrRuleNotFound is returned when a requested exercise is not registered.
var ErrRuleNotFound = errors.New("exercise not found")

// Pattern classifies why a frame was judged incorrect.
type Pattern string

const (
	// PatternNone means the frame carried no posture violation.
	PatternNone Pattern = ""
	// PatternTorso marks torso-alignment violations (leaning, shrugging).
	PatternTorso Pattern = "torso"
	// PatternAngle marks joint angles outside the acceptable window.
	PatternAngle Pattern = "angle"
	// PatternRange marks insufficient range of motion or amplitude.
	PatternRange Pattern = "range"
)

// Verdict is the result of evaluating one frame against a rule.
type Verdict struct {
	// Detected reports whether a person was present in the frame.
	// Undetected frames never affect score, counters, or hold timers.
	Detected bool
	// Error marks an explicit posture violation.
	Error bool
	// Advisory marks coaching feedback on an otherwise acceptable frame
	// (instructions, encouragement to move closer to a target).
	Advisory bool
	// Pattern attributes the violation to an error bucket.
	Pattern Pattern
	// Feedback is the human-readable correction or instruction text.
	Feedback string
	// Angle is the measured angle for this frame, in degrees.
	Angle float64
}

// CheckFunc evaluates one frame's skeleton for a specific exercise.
// Implementations are pure: all per-session state (hold timers, motion
// accumulation) lives in the session controller. Sequenced exercises
// receive the elapsed exercise time.
type CheckFunc func(sk *pose.Skeleton, elapsed time.Duration) Verdict

// MotionCheck asks the session controller to track the displacement of a
// joint and prompt the user when accumulated travel within a window falls
// below a minimum. The prompt is advisory and never penalized.
type MotionCheck struct {
	Joint     int
	MinTravel float64
	Window    time.Duration
}

// Rule is the static configuration for one exercise. Rules are loaded once
// at session start and never mutated afterwards.
type Rule struct {
	ID          string
	Name        string
	Description string

	// Hold is the duration a correct posture must be sustained for one
	// repetition to count. Zero means the exercise has no hold component.
	Hold time.Duration

	// Duration is the total length of one session bout; zero means the
	// session runs until explicitly finished.
	Duration time.Duration

	// TorsoCheck requires an upright trunk before the rule's own
	// conditions are evaluated. Forward-leaning exercises exempt it.
	TorsoCheck bool

	// CountsAsError controls whether advisory feedback increments the
	// error counters and costs score. Decided at rule-authoring time.
	CountsAsError bool

	// Motion, when set, enables displacement tracking for cyclic
	// exercises.
	Motion *MotionCheck

	Check CheckFunc
}

// Registry maps exercise identifiers to rules. Adding an exercise means
// registering a new rule; shared evaluator code never changes.
type Registry struct {
	rules map[string]*Rule
	order []string
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]*Rule),
	}
}

// Register adds a rule to the registry. Registering a nil rule is a no-op;
// duplicate identifiers are rejected.
func (r *Registry) Register(rule *Rule) error {
	if rule == nil {
		return nil
	}
	if rule.ID == "" {
		return fmt.Errorf("rule has no identifier")
	}
	if rule.Check == nil {
		return fmt.Errorf("rule %q has no check function", rule.ID)
	}
	if _, exists := r.rules[rule.ID]; exists {
		return fmt.Errorf("rule %q already registered", rule.ID)
	}
	r.rules[rule.ID] = rule
	r.order = append(r.order, rule.ID)
	return nil
}

// Get returns the rule for the given exercise identifier.
func (r *Registry) Get(id string) (*Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// List returns all registered rules in registration order.
func (r *Registry) List() []*Rule {
	rules := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		rules = append(rules, r.rules[id])
	}
	return rules
}
