package exercise

import (
	"time"

	"github.com/ayusman/chikitsa/internal/pose"
)

// Evaluate classifies one frame's skeleton against a rule.
//
// The classification order is fixed: no detection yields a neutral verdict
// that affects nothing; a misaligned torso (when the rule requires an
// upright trunk) is a torso error; otherwise the rule's own check decides.
// Evaluate never fails for data-quality reasons: partial or missing
// detections always degrade to well-formed neutral results.
func Evaluate(rule *Rule, sk *pose.Skeleton, elapsed time.Duration) Verdict {
	if sk == nil {
		return Verdict{Feedback: "No person detected"}
	}

	if rule.TorsoCheck {
		if alignment := sk.TorsoAlignment(); !alignment.Aligned {
			return Verdict{
				Detected: true,
				Error:    true,
				Pattern:  PatternTorso,
				Feedback: "Keep your torso upright",
			}
		}
	}

	verdict := rule.Check(sk, elapsed)
	verdict.Detected = true
	return verdict
}
