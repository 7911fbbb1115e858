// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package joints

import (
	"math"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Angle is a joint name paired with its computed value, in degrees.
type Angle struct {
	Name    string
	Degrees float64
	Valid   bool
}

// Compute evaluates every joint in js against lm, skipping (Valid=false)
// any joint whose landmarks are not visible enough.
//
// A 3-point joint's angle is the interior angle at the middle landmark,
// computed as arccos(dot(u, v) / (|u| |v|)) with the cosine clamped to
// [-1, 1] to absorb floating-point drift before the call to math.Acos.
// A 2-point joint's angle ignores depth and is
// atan2(|dy|, |dx|) against the horizontal, matching the original's
// 2D "tilt" joints (e.g. hip_line_angle, shoulder_line_angle).
//
// A degenerate joint (a zero-length vector at a 3-point joint, or
// identical x/y endpoints at a 2-point joint) is also Valid=false.
func Compute(js []Joint, lm model.LandmarkMatrix, minVisibility float64) []Angle {
	out := make([]Angle, 0, len(js))
	for _, j := range js {
		switch len(j.Landmarks) {
		case 3:
			a, b, c := lm[j.Landmarks[0]], lm[j.Landmarks[1]], lm[j.Landmarks[2]]
			if !visible(minVisibility, a, b, c) {
				out = append(out, Angle{Name: j.Name, Valid: false})
				continue
			}
			deg, ok := threePointAngle(a, b, c)
			out = append(out, Angle{Name: j.Name, Degrees: deg, Valid: ok})
		case 2:
			a, b := lm[j.Landmarks[0]], lm[j.Landmarks[1]]
			if !visible(minVisibility, a, b) {
				out = append(out, Angle{Name: j.Name, Valid: false})
				continue
			}
			deg, ok := twoPointAngle(a, b)
			out = append(out, Angle{Name: j.Name, Degrees: deg, Valid: ok})
		default:
			out = append(out, Angle{Name: j.Name, Valid: false})
		}
	}
	return out
}

func visible(min float64, lms ...model.Landmark) bool {
	for _, l := range lms {
		if l.Visibility < min {
			return false
		}
	}
	return true
}

func threePointAngle(a, b, c model.Landmark) (float64, bool) {
	ux, uy, uz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	vx, vy, vz := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	dot := ux*vx + uy*vy + uz*vz
	umag := math.Sqrt(ux*ux + uy*uy + uz*uz)
	vmag := math.Sqrt(vx*vx + vy*vy + vz*vz)
	if umag == 0 || vmag == 0 {
		return 0, false
	}
	cos := dot / (umag * vmag)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

func twoPointAngle(a, b model.Landmark) (float64, bool) {
	dx := math.Abs(a.X - b.X)
	dy := math.Abs(a.Y - b.Y)
	if dx == 0 && dy == 0 {
		return 0, false
	}
	return math.Atan2(dy, dx) * 180 / math.Pi, true
}

// ByName indexes a slice of angles by joint name for fast lookup by
// rule evaluators.
func ByName(angles []Angle) map[string]Angle {
	m := make(map[string]Angle, len(angles))
	for _, a := range angles {
		m[a.Name] = a
	}
	return m
}
