package pose

import "math"

// TorsoTolerance is the maximum horizontal offset, in normalized frame
// width, between the shoulder midpoint and the hip midpoint before the
// trunk counts as leaning.
const TorsoTolerance = 0.10

// AngleBetween returns the interior angle at vertex b formed by the rays
// b->a and b->c, in degrees, in the range [0, 180].
//
// The angle is computed from the difference of the atan2 bearings of the
// two rays; a raw difference above 180 is reduced by taking 360 minus it.
// Degenerate inputs (coincident points) yield 0 rather than NaN.
func AngleBetween(a, b, c Landmark) float64 {
	ab := math.Atan2(a.Y-b.Y, a.X-b.X)
	cb := math.Atan2(c.Y-b.Y, c.X-b.X)

	deg := math.Abs(ab-cb) * 180 / math.Pi
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// Angle returns the interior angle, in degrees, at joint j formed by the
// joints i and k. Missing landmarks yield 0 so that callers never have to
// guard against partial detections.
func (s *Skeleton) Angle(i, j, k int) float64 {
	a, ok := s.Point(i)
	if !ok {
		return 0
	}
	b, ok := s.Point(j)
	if !ok {
		return 0
	}
	c, ok := s.Point(k)
	if !ok {
		return 0
	}
	return AngleBetween(a, b, c)
}

// Alignment is the result of a torso-alignment check.
type Alignment struct {
	Aligned bool    `json:"aligned"`
	Error   float64 `json:"error"`
}

// TorsoAlignment computes the horizontal deviation between the midpoint of
// the shoulders and the midpoint of the hips. Missing landmarks default to
// aligned with zero error: the absence of a person must never be reported
// as a posture error.
func (s *Skeleton) TorsoAlignment() Alignment {
	ls, ok := s.Point(LeftShoulder)
	if !ok {
		return Alignment{Aligned: true}
	}
	rs, ok := s.Point(RightShoulder)
	if !ok {
		return Alignment{Aligned: true}
	}
	lh, ok := s.Point(LeftHip)
	if !ok {
		return Alignment{Aligned: true}
	}
	rh, ok := s.Point(RightHip)
	if !ok {
		return Alignment{Aligned: true}
	}

	shoulderMidX := (ls.X + rs.X) / 2
	hipMidX := (lh.X + rh.X) / 2
	deviation := math.Abs(shoulderMidX - hipMidX)

	return Alignment{
		Aligned: deviation < TorsoTolerance,
		Error:   deviation,
	}
}
