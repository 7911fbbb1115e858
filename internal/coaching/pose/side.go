// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import "github.com/bodytrack/coachd/internal/coaching/model"

// SideConfig holds the thresholds loaded from position_side.*
// configuration keys.
type SideConfig struct {
	LandmarkVisibilityThreshold float64
	DominanceRatioThreshold     float64
	FrontSymmetryThreshold      float64
	MinRequiredLandmarkRatio    float64
}

// DetectSide implements spec.md §4.4: classify which side of the body
// the camera is best viewing from the ratio of visible LEFT-side vs.
// RIGHT-side landmarks.
func DetectSide(lm model.LandmarkMatrix, cfg SideConfig) model.PositionSide {
	left := visibleRatio(lm, model.LeftSideLandmarks, cfg.LandmarkVisibilityThreshold)
	right := visibleRatio(lm, model.RightSideLandmarks, cfg.LandmarkVisibilityThreshold)

	maxSide := left
	if right > maxSide {
		maxSide = right
	}
	if maxSide < cfg.MinRequiredLandmarkRatio {
		return model.SideUnknown
	}

	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	if diff <= cfg.FrontSymmetryThreshold {
		return model.SideFront
	}
	if left >= cfg.DominanceRatioThreshold && left > right {
		return model.SideLeft
	}
	if right >= cfg.DominanceRatioThreshold && right > left {
		return model.SideRight
	}
	return model.SideUnknown
}

func visibleRatio(lm model.LandmarkMatrix, idxs []model.PoseLandmark, threshold float64) float64 {
	count := 0
	for _, idx := range idxs {
		if lm[idx].Visibility >= threshold {
			count++
		}
	}
	return float64(count) / float64(len(idxs))
}

// IsAllowed reports whether side is one of the permitted camera
// orientations for exercise.
func IsAllowed(exercise model.ExerciseType, side model.PositionSide) bool {
	for _, allowed := range model.AllowedSides(exercise) {
		if allowed == side {
			return true
		}
	}
	return false
}
