// Package pose provides body pose detection interfaces and types for posture coaching.
package pose

import "math"

// Body landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// MinVisibility is the confidence below which a landmark is treated as missing.
const MinVisibility = 0.5

// Landmark represents a body keypoint with normalized planar position
// (x, y in [0,1] relative to the frame), optional depth, and a visibility
// confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Skeleton represents the 33 body landmarks detected for one frame.
// A Skeleton is an immutable snapshot; no landmark persists beyond its
// originating frame.
type Skeleton struct {
	Points [NumLandmarks]Landmark `json:"points"`
	Score  float64                `json:"score"`
}

// Point returns the landmark at the given index and whether it is usable.
// It reports false when the skeleton is nil, the index is out of range,
// or the landmark's visibility is below MinVisibility.
func (s *Skeleton) Point(i int) (Landmark, bool) {
	if s == nil || i < 0 || i >= NumLandmarks {
		return Landmark{}, false
	}
	p := s.Points[i]
	if p.Visibility < MinVisibility {
		return Landmark{}, false
	}
	return p, true
}

// Distance calculates the planar Euclidean distance between two landmarks
// in normalized frame coordinates.
func Distance(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
