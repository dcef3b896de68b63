package exercise

import (
	"fmt"
	"math"
	"time"

	"github.com/ayusman/chikitsa/internal/pose"
)

// Threshold constants for the built-in rules, in degrees and normalized
// frame units.
const (
	abductionMin = 75.0
	abductionMax = 110.0

	wElbowMin    = 60.0
	wElbowMax    = 110.0
	wShoulderMin = 15.0
	wShoulderMax = 60.0

	shoulderLevelTolerance = 0.05
	earTouchDistance       = 0.15

	claspDistance    = 0.10
	straightElbowMin = 150.0

	rotationPeriod = 10 * time.Second

	flexionMin = 95.0
	flexionMax = 140.0
)

// Builtin returns a registry populated with the built-in exercise rules.
func Builtin() *Registry {
	r := NewRegistry()
	for _, rule := range []*Rule{
		shoulderAbduction(),
		scapularWHold(),
		earTouch(),
		overheadClasp(),
		wristRotation(),
		trunkFlexionHold(),
	} {
		// Built-in identifiers are unique by construction.
		_ = r.Register(rule)
	}
	return r
}

// neutral is returned when the landmarks a rule needs are not visible this
// frame. Flaky per-frame tracking is expected; missing joints are never a
// posture error.
func neutral() Verdict {
	return Verdict{}
}

// shoulderAbduction checks a single hip-shoulder-elbow angle against a
// target window, with distinct feedback below and above it.
func shoulderAbduction() *Rule {
	return &Rule{
		ID:          "shoulder_abduction",
		Name:        "Shoulder Abduction",
		Description: "Raise the arm sideways to shoulder height and hold it level.",
		Duration:    60 * time.Second,
		TorsoCheck:  true,
		Check: func(sk *pose.Skeleton, _ time.Duration) Verdict {
			if !visible(sk, pose.LeftHip, pose.LeftShoulder, pose.LeftElbow) {
				return neutral()
			}
			angle := sk.Angle(pose.LeftHip, pose.LeftShoulder, pose.LeftElbow)

			switch {
			case angle < abductionMin:
				return Verdict{
					Error:    true,
					Pattern:  PatternRange,
					Feedback: "Raise your arm higher, up to shoulder height",
					Angle:    angle,
				}
			case angle > abductionMax:
				return Verdict{
					Error:    true,
					Pattern:  PatternAngle,
					Feedback: "Lower your arm slightly, keep it level with the shoulder",
					Angle:    angle,
				}
			default:
				return Verdict{Feedback: "Good, keep the arm level", Angle: angle}
			}
		},
	}
}

// scapularWHold requires elbow flexion and shoulder-to-torso angle to both
// sit inside their windows on both arms at the same time before the W
// posture counts as correct.
func scapularWHold() *Rule {
	return &Rule{
		ID:          "scapular_w_hold",
		Name:        "Scapular W Hold",
		Description: "Bend the elbows and pull the shoulder blades together into a W shape.",
		Hold:        5 * time.Second,
		Duration:    90 * time.Second,
		TorsoCheck:  true,
		Check: func(sk *pose.Skeleton, _ time.Duration) Verdict {
			if !visible(sk,
				pose.LeftHip, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist,
				pose.RightHip, pose.RightShoulder, pose.RightElbow, pose.RightWrist) {
				return neutral()
			}

			leftElbow := sk.Angle(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
			rightElbow := sk.Angle(pose.RightShoulder, pose.RightElbow, pose.RightWrist)
			leftShoulder := sk.Angle(pose.LeftHip, pose.LeftShoulder, pose.LeftElbow)
			rightShoulder := sk.Angle(pose.RightHip, pose.RightShoulder, pose.RightElbow)

			measured := (leftElbow + rightElbow) / 2

			if leftElbow < wElbowMin || leftElbow > wElbowMax ||
				rightElbow < wElbowMin || rightElbow > wElbowMax {
				return Verdict{
					Error:    true,
					Pattern:  PatternAngle,
					Feedback: "Bend your elbows to a right angle",
					Angle:    measured,
				}
			}
			if leftShoulder < wShoulderMin || leftShoulder > wShoulderMax ||
				rightShoulder < wShoulderMin || rightShoulder > wShoulderMax {
				return Verdict{
					Error:    true,
					Pattern:  PatternRange,
					Feedback: "Keep your upper arms angled out from the body",
					Angle:    measured,
				}
			}
			return Verdict{Angle: measured}
		},
	}
}

// earTouch gates on level shoulders (no shrug), then classifies success by
// the distance between the right wrist and the opposite ear. Missing the
// distance target is coaching feedback only, not a scored error.
func earTouch() *Rule {
	return &Rule{
		ID:            "ear_touch",
		Name:          "Opposite Ear Touch",
		Description:   "Reach over the head and touch the opposite ear without shrugging.",
		Duration:      45 * time.Second,
		TorsoCheck:    true,
		CountsAsError: false,
		Check: func(sk *pose.Skeleton, _ time.Duration) Verdict {
			ls, lok := sk.Point(pose.LeftShoulder)
			rs, rok := sk.Point(pose.RightShoulder)
			if !lok || !rok {
				return neutral()
			}
			angle := sk.Angle(pose.RightShoulder, pose.RightElbow, pose.RightWrist)

			if math.Abs(ls.Y-rs.Y) > shoulderLevelTolerance {
				return Verdict{
					Error:    true,
					Pattern:  PatternTorso,
					Feedback: "Relax your shoulders, don't shrug",
					Angle:    angle,
				}
			}

			wrist, wok := sk.Point(pose.RightWrist)
			ear, eok := sk.Point(pose.LeftEar)
			if !wok || !eok {
				return neutral()
			}

			if pose.Distance(wrist, ear) > earTouchDistance {
				return Verdict{
					Advisory: true,
					Pattern:  PatternRange,
					Feedback: "Bring your hand closer to the opposite ear",
					Angle:    angle,
				}
			}
			return Verdict{Feedback: "Good, hold the stretch", Angle: angle}
		},
	}
}

// overheadClasp requires three simultaneous conditions: hands clasped by
// proximity, elbows straight by angle, and wrists above the head.
func overheadClasp() *Rule {
	return &Rule{
		ID:          "overhead_clasp",
		Name:        "Overhead Hand Clasp",
		Description: "Clasp the hands together and stretch them straight overhead.",
		Hold:        8 * time.Second,
		Duration:    90 * time.Second,
		TorsoCheck:  true,
		Check: func(sk *pose.Skeleton, _ time.Duration) Verdict {
			lw, lok := sk.Point(pose.LeftWrist)
			rw, rok := sk.Point(pose.RightWrist)
			nose, nok := sk.Point(pose.Nose)
			if !lok || !rok || !nok ||
				!visible(sk, pose.LeftShoulder, pose.LeftElbow, pose.RightShoulder, pose.RightElbow) {
				return neutral()
			}

			leftElbow := sk.Angle(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
			rightElbow := sk.Angle(pose.RightShoulder, pose.RightElbow, pose.RightWrist)
			measured := (leftElbow + rightElbow) / 2

			if pose.Distance(lw, rw) > claspDistance {
				return Verdict{
					Error:    true,
					Pattern:  PatternRange,
					Feedback: "Clasp your hands together",
					Angle:    measured,
				}
			}
			if leftElbow < straightElbowMin || rightElbow < straightElbowMin {
				return Verdict{
					Error:    true,
					Pattern:  PatternAngle,
					Feedback: "Straighten your elbows",
					Angle:    measured,
				}
			}
			// y grows downward: above the head means smaller y than the nose.
			if lw.Y > nose.Y || rw.Y > nose.Y {
				return Verdict{
					Error:    true,
					Pattern:  PatternRange,
					Feedback: "Stretch your hands higher, above your head",
					Angle:    measured,
				}
			}
			return Verdict{Angle: measured}
		},
	}
}

// wristRotation alternates the expected rotation direction on a fixed time
// period and relies on the session's motion window to prompt when the
// tracked wrist stops moving. Instructions are advisory, never penalized.
func wristRotation() *Rule {
	return &Rule{
		ID:            "wrist_rotation",
		Name:          "Wrist Rotation",
		Description:   "Rotate the wrist in slow circles, switching direction on cue.",
		Duration:      60 * time.Second,
		TorsoCheck:    true,
		CountsAsError: false,
		Motion: &MotionCheck{
			Joint:     pose.RightWrist,
			MinTravel: 0.06,
			Window:    time.Second,
		},
		Check: func(sk *pose.Skeleton, elapsed time.Duration) Verdict {
			if !visible(sk, pose.RightWrist, pose.RightElbow, pose.RightShoulder) {
				return neutral()
			}
			angle := sk.Angle(pose.RightShoulder, pose.RightElbow, pose.RightWrist)

			direction := "clockwise"
			if (int(elapsed/rotationPeriod) % 2) == 1 {
				direction = "counterclockwise"
			}
			return Verdict{
				Advisory: true,
				Feedback: fmt.Sprintf("Rotate your wrist %s", direction),
				Angle:    angle,
			}
		},
	}
}

// trunkFlexionHold is a forward-leaning hold; the upright-torso check is
// exempted because leaning is the exercise.
func trunkFlexionHold() *Rule {
	return &Rule{
		ID:          "trunk_flexion_hold",
		Name:        "Trunk Flexion Hold",
		Description: "Hinge forward at the hips and hold the position.",
		Hold:        5 * time.Second,
		Duration:    90 * time.Second,
		TorsoCheck:  false,
		Check: func(sk *pose.Skeleton, _ time.Duration) Verdict {
			if !visible(sk, pose.LeftShoulder, pose.LeftHip, pose.LeftKnee) {
				return neutral()
			}
			angle := sk.Angle(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee)

			switch {
			case angle > flexionMax:
				return Verdict{
					Error:    true,
					Pattern:  PatternRange,
					Feedback: "Bend forward a little more from the hips",
					Angle:    angle,
				}
			case angle < flexionMin:
				return Verdict{
					Error:    true,
					Pattern:  PatternAngle,
					Feedback: "You are bending too far, come up slightly",
					Angle:    angle,
				}
			default:
				return Verdict{Angle: angle}
			}
		},
	}
}

// visible reports whether every listed landmark passes the visibility floor.
func visible(sk *pose.Skeleton, joints ...int) bool {
	for _, j := range joints {
		if _, ok := sk.Point(j); !ok {
			return false
		}
	}
	return true
}
