// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pose implements the pose-quality gate and position-side
// detector that run at the front of the per-frame pipeline, before any
// joint or phase analysis is attempted.
//
// Grounded on original_source/Server/Data/Pose/PositionSide.py and
// original_source/Server/Pipeline/PoseQualityManager.py's
// evaluate_landmarks (spec.md §4.3).
package pose

import (
	"math"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// QualityConfig holds the thresholds loaded from pose.* configuration
// keys.
type QualityConfig struct {
	StabilityThreshold        float64
	BboxTooFar                float64
	MinimumBboxArea           float64
	VisibilityGoodThreshold   float64
	RequiredVisibilityRatio   float64
}

// Gate implements spec.md §4.3: first-match-wins quality classification.
// required is the landmark index set for the session's (exercise, side,
// extended) combination — joints.RequiredLandmarks, not the full
// 33-landmark set (spec.md §4.3 step 3 / SPEC_FULL §4.5).
func Gate(lm model.LandmarkMatrix, required []model.PoseLandmark, cfg QualityConfig, prev *model.LandmarkMatrix) model.Quality {
	minX, minY, maxX, maxY := boundingBox(lm, required)
	area := (maxX - minX) * (maxY - minY)
	if area <= cfg.MinimumBboxArea {
		return model.QualityNoPerson
	}

	ratio := visibilityRatio(lm, required, cfg.VisibilityGoodThreshold)
	if ratio < cfg.RequiredVisibilityRatio {
		if area < cfg.BboxTooFar {
			return model.QualityTooFar
		}
		return model.QualityPartialBody
	}

	if prev != nil {
		if meanEuclideanDelta(lm, *prev) > cfg.StabilityThreshold {
			return model.QualityUnstable
		}
	}

	return model.QualityOK
}

func visibilityRatio(lm model.LandmarkMatrix, idxs []model.PoseLandmark, threshold float64) float64 {
	count := 0
	for _, idx := range idxs {
		if lm[idx].Visibility >= threshold {
			count++
		}
	}
	return float64(count) / float64(len(idxs))
}

func boundingBox(lm model.LandmarkMatrix, idxs []model.PoseLandmark) (minX, minY, maxX, maxY float64) {
	first := true
	for _, idx := range idxs {
		p := sanitize(lm[idx])
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return
}

func meanEuclideanDelta(cur, prev model.LandmarkMatrix) float64 {
	var total float64
	for i := range cur {
		a, b := sanitize(cur[i]), sanitize(prev[i])
		dx := a.X - b.X
		dy := a.Y - b.Y
		total += math.Sqrt(dx*dx + dy*dy)
	}
	return total / float64(len(cur))
}

// sanitize substitutes NaN coordinates with 0.0, per spec.md §4.3.
func sanitize(l model.Landmark) model.Landmark {
	if l.X != l.X {
		l.X = 0
	}
	if l.Y != l.Y {
		l.Y = 0
	}
	return l
}
