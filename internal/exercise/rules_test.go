package exercise

import (
	"testing"
	"time"

	"github.com/ayusman/chikitsa/internal/pose"
)

func mustGet(t *testing.T, id string) *Rule {
	t.Helper()
	rule, ok := Builtin().Get(id)
	if !ok {
		t.Fatalf("Builtin() registry has no rule %q", id)
	}
	return rule
}

func TestShoulderAbduction_CorrectPosture(t *testing.T) {
	rule := mustGet(t, "shoulder_abduction")

	verdict := rule.Check(pose.RaisedArmLandmarks(), 0)
	if verdict.Error {
		t.Errorf("raised arm should be correct, got error %q", verdict.Feedback)
	}
	if verdict.Angle < abductionMin || verdict.Angle > abductionMax {
		t.Errorf("measured angle = %v, want within [%v, %v]", verdict.Angle, abductionMin, abductionMax)
	}
}

func TestShoulderAbduction_ArmTooLow(t *testing.T) {
	rule := mustGet(t, "shoulder_abduction")

	verdict := rule.Check(pose.UprightLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("arm at the side should be a range error")
	}
	if verdict.Pattern != PatternRange {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternRange)
	}
	if verdict.Feedback != "Raise your arm higher, up to shoulder height" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestShoulderAbduction_ArmTooHigh(t *testing.T) {
	rule := mustGet(t, "shoulder_abduction")

	verdict := rule.Check(pose.OverRaisedArmLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("over-raised arm should be an angle error")
	}
	if verdict.Pattern != PatternAngle {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternAngle)
	}
}

func TestShoulderAbduction_MissingLandmarksAreNeutral(t *testing.T) {
	rule := mustGet(t, "shoulder_abduction")

	sk := pose.RaisedArmLandmarks()
	sk.Points[pose.LeftElbow].Visibility = 0

	verdict := rule.Check(sk, 0)
	if verdict.Error || verdict.Feedback != "" {
		t.Errorf("missing landmark should yield a neutral verdict, got %+v", verdict)
	}
}

func TestScapularWHold_CorrectPosture(t *testing.T) {
	rule := mustGet(t, "scapular_w_hold")

	verdict := rule.Check(pose.WHoldLandmarks(), 0)
	if verdict.Error {
		t.Errorf("W position should be correct, got error %q", verdict.Feedback)
	}
}

func TestScapularWHold_StraightArmsAreAngleError(t *testing.T) {
	rule := mustGet(t, "scapular_w_hold")

	// Arms hanging down: elbows near 180 degrees, outside the window.
	verdict := rule.Check(pose.UprightLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("straight arms should be an error in the W hold")
	}
	if verdict.Pattern != PatternAngle {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternAngle)
	}
	if verdict.Feedback != "Bend your elbows to a right angle" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestEarTouch_CorrectPosture(t *testing.T) {
	rule := mustGet(t, "ear_touch")

	verdict := rule.Check(pose.EarTouchLandmarks(), 0)
	if verdict.Error || verdict.Advisory {
		t.Errorf("wrist at the opposite ear should be correct, got %+v", verdict)
	}
	if verdict.Feedback != "Good, hold the stretch" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestEarTouch_ShrugIsError(t *testing.T) {
	rule := mustGet(t, "ear_touch")

	verdict := rule.Check(pose.ShrugLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("uneven shoulders should be an error")
	}
	if verdict.Pattern != PatternTorso {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternTorso)
	}
	if verdict.Feedback != "Relax your shoulders, don't shrug" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestEarTouch_HandFarFromEarIsAdvisory(t *testing.T) {
	rule := mustGet(t, "ear_touch")

	verdict := rule.Check(pose.UprightLandmarks(), 0)
	if verdict.Error {
		t.Fatal("a distant hand is coaching feedback, not a scored error")
	}
	if !verdict.Advisory {
		t.Fatal("expected an advisory verdict")
	}
	if verdict.Feedback != "Bring your hand closer to the opposite ear" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
	if rule.CountsAsError {
		t.Error("ear_touch advisories must not count as errors")
	}
}

func TestOverheadClasp_CorrectPosture(t *testing.T) {
	rule := mustGet(t, "overhead_clasp")

	verdict := rule.Check(pose.OverheadClaspLandmarks(), 0)
	if verdict.Error {
		t.Errorf("clasped overhead hands should be correct, got error %q", verdict.Feedback)
	}
}

func TestOverheadClasp_SeparateHandsAreError(t *testing.T) {
	rule := mustGet(t, "overhead_clasp")

	verdict := rule.Check(pose.UprightLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("separated hands should be an error")
	}
	if verdict.Feedback != "Clasp your hands together" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestOverheadClasp_BentElbowsAreError(t *testing.T) {
	rule := mustGet(t, "overhead_clasp")

	// Clasped hands but elbows pushed far out sideways, bending the arms.
	sk := pose.OverheadClaspLandmarks()
	sk.Points[pose.LeftElbow].X = 0.75
	sk.Points[pose.RightElbow].X = 0.25

	verdict := rule.Check(sk, 0)
	if !verdict.Error {
		t.Fatal("bent elbows should be an error")
	}
	if verdict.Pattern != PatternAngle {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternAngle)
	}
	if verdict.Feedback != "Straighten your elbows" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestOverheadClasp_HandsBelowHeadAreError(t *testing.T) {
	rule := mustGet(t, "overhead_clasp")

	// Keep the clasp and straight elbows but drop everything below the nose.
	sk := pose.OverheadClaspLandmarks()
	sk.Points[pose.LeftElbow].Y = 0.45
	sk.Points[pose.RightElbow].Y = 0.45
	sk.Points[pose.LeftWrist].Y = 0.60
	sk.Points[pose.RightWrist].Y = 0.60

	verdict := rule.Check(sk, 0)
	if !verdict.Error {
		t.Fatal("hands below the head should be an error")
	}
	if verdict.Feedback != "Stretch your hands higher, above your head" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}

func TestWristRotation_DirectionAlternates(t *testing.T) {
	rule := mustGet(t, "wrist_rotation")
	sk := pose.UprightLandmarks()

	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Rotate your wrist clockwise"},
		{9 * time.Second, "Rotate your wrist clockwise"},
		{10 * time.Second, "Rotate your wrist counterclockwise"},
		{19 * time.Second, "Rotate your wrist counterclockwise"},
		{20 * time.Second, "Rotate your wrist clockwise"},
	}

	for _, c := range cases {
		verdict := rule.Check(sk, c.elapsed)
		if !verdict.Advisory {
			t.Fatalf("at %v: wrist rotation instructions should be advisory", c.elapsed)
		}
		if verdict.Feedback != c.want {
			t.Errorf("at %v: feedback = %q, want %q", c.elapsed, verdict.Feedback, c.want)
		}
	}
}

func TestWristRotation_HasMotionCheck(t *testing.T) {
	rule := mustGet(t, "wrist_rotation")

	if rule.Motion == nil {
		t.Fatal("wrist_rotation should declare a motion check")
	}
	if rule.Motion.Joint != pose.RightWrist {
		t.Errorf("motion joint = %d, want %d", rule.Motion.Joint, pose.RightWrist)
	}
	if rule.CountsAsError {
		t.Error("wrist_rotation advisories must not count as errors")
	}
}

func TestTrunkFlexionHold_CorrectPosture(t *testing.T) {
	rule := mustGet(t, "trunk_flexion_hold")

	verdict := rule.Check(pose.ForwardLeanLandmarks(), 0)
	if verdict.Error {
		t.Errorf("forward lean near 120 degrees should be correct, got error %q", verdict.Feedback)
	}
	if verdict.Angle < flexionMin || verdict.Angle > flexionMax {
		t.Errorf("measured angle = %v, want within [%v, %v]", verdict.Angle, flexionMin, flexionMax)
	}
}

func TestTrunkFlexionHold_StandingUprightIsRangeError(t *testing.T) {
	rule := mustGet(t, "trunk_flexion_hold")

	verdict := rule.Check(pose.UprightLandmarks(), 0)
	if !verdict.Error {
		t.Fatal("standing upright should prompt a deeper bend")
	}
	if verdict.Pattern != PatternRange {
		t.Errorf("pattern = %q, want %q", verdict.Pattern, PatternRange)
	}
	if verdict.Feedback != "Bend forward a little more from the hips" {
		t.Errorf("unexpected feedback %q", verdict.Feedback)
	}
}
