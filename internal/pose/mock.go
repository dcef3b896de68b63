package pose

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	skeleton *Skeleton
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSkeleton sets the skeleton that will be returned by Detect.
// Passing nil simulates a frame with no person in it.
func (m *MockDetector) SetSkeleton(sk *Skeleton) {
	m.skeleton = sk
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured skeleton or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Skeleton, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.skeleton, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// set assigns a landmark with full visibility.
func (s *Skeleton) set(i int, x, y float64) {
	s.Points[i] = Landmark{X: x, Y: y, Visibility: 0.95}
}

// baseSkeleton returns a skeleton for a person standing upright facing the
// camera, torso aligned, arms resting at the sides. Image coordinates:
// x grows right, y grows down.
func baseSkeleton() *Skeleton {
	sk := &Skeleton{Score: 0.95}

	sk.set(Nose, 0.50, 0.10)
	sk.set(LeftEar, 0.54, 0.10)
	sk.set(RightEar, 0.46, 0.10)

	sk.set(LeftShoulder, 0.60, 0.30)
	sk.set(RightShoulder, 0.40, 0.30)
	sk.set(LeftElbow, 0.61, 0.45)
	sk.set(RightElbow, 0.39, 0.45)
	sk.set(LeftWrist, 0.62, 0.58)
	sk.set(RightWrist, 0.38, 0.58)

	sk.set(LeftHip, 0.58, 0.55)
	sk.set(RightHip, 0.42, 0.55)
	sk.set(LeftKnee, 0.57, 0.75)
	sk.set(RightKnee, 0.43, 0.75)
	sk.set(LeftAnkle, 0.57, 0.92)
	sk.set(RightAnkle, 0.43, 0.92)

	return sk
}

// UprightLandmarks returns a preset skeleton standing upright with arms
// down at the sides.
func UprightLandmarks() *Skeleton {
	return baseSkeleton()
}

// RaisedArmLandmarks returns a skeleton with the left arm abducted to
// roughly 90 degrees (hip-shoulder-elbow).
func RaisedArmLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftElbow, 0.78, 0.30)
	sk.set(LeftWrist, 0.92, 0.30)
	return sk
}

// OverRaisedArmLandmarks returns a skeleton with the left arm raised well
// above shoulder level (abduction past 110 degrees).
func OverRaisedArmLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftElbow, 0.70, 0.12)
	sk.set(LeftWrist, 0.76, 0.02)
	return sk
}

// LeaningLandmarks returns a skeleton whose shoulders are shifted
// sideways past the torso-alignment tolerance.
func LeaningLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftShoulder, 0.75, 0.30)
	sk.set(RightShoulder, 0.55, 0.30)
	sk.set(LeftElbow, 0.76, 0.45)
	sk.set(RightElbow, 0.54, 0.45)
	return sk
}

// ShrugLandmarks returns a skeleton with uneven shoulder heights, as when
// shrugging one shoulder toward the ear.
func ShrugLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(RightShoulder, 0.40, 0.22)
	return sk
}

// EarTouchLandmarks returns a skeleton with level shoulders and the right
// wrist touching the left (opposite) ear.
func EarTouchLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(RightElbow, 0.42, 0.18)
	sk.set(RightWrist, 0.55, 0.11)
	return sk
}

// WHoldLandmarks returns a skeleton holding the W position: elbows bent
// near 70 degrees with upper arms angled out from the torso on both sides.
func WHoldLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftElbow, 0.70, 0.42)
	sk.set(LeftWrist, 0.80, 0.24)
	sk.set(RightElbow, 0.30, 0.42)
	sk.set(RightWrist, 0.20, 0.24)
	return sk
}

// OverheadClaspLandmarks returns a skeleton with hands clasped together
// above the head and both elbows straight.
func OverheadClaspLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftElbow, 0.555, 0.17)
	sk.set(RightElbow, 0.445, 0.17)
	sk.set(LeftWrist, 0.51, 0.05)
	sk.set(RightWrist, 0.49, 0.05)
	return sk
}

// ForwardLeanLandmarks returns a skeleton bent forward at the hips to
// roughly 120 degrees (shoulder-hip-knee).
func ForwardLeanLandmarks() *Skeleton {
	sk := baseSkeleton()
	sk.set(LeftShoulder, 0.80, 0.44)
	sk.set(RightShoulder, 0.62, 0.44)
	sk.set(LeftElbow, 0.82, 0.56)
	sk.set(RightElbow, 0.64, 0.56)
	sk.set(LeftWrist, 0.83, 0.68)
	sk.set(RightWrist, 0.65, 0.68)
	return sk
}
