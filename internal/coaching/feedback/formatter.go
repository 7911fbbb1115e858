// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package feedback implements the stateless feedback selector of
// spec.md §4.9.
//
// Grounded on original_source/Server/Pipeline/FeedbackFormatter.py.
package feedback

import "github.com/bodytrack/coachd/internal/coaching/model"

// Config holds the thresholds loaded from feedback.* configuration keys.
type Config struct {
	PoseQualityFeedbackThreshold int
	BioFeedbackThreshold         int
	CooldownFrames               int
}

// Source is the read-only slice of history a formatter needs: it never
// mutates history itself (the orchestrator calls
// history.Manager.MarkFeedbackEmitted with the result).
type Source struct {
	StateOK                bool
	FramesSinceLastValid   int
	FramesSinceLastFeedback int
	ErrorStreaks           map[model.DetectedErrorCode]int
	BadFrameStreaks        map[model.Quality]int
}

// Select implements spec.md §4.9 verbatim.
func Select(src Source, cfg Config) model.FeedbackCode {
	if src.StateOK {
		return selectBiomechanical(src, cfg)
	}
	return selectPoseQuality(src, cfg)
}

func selectBiomechanical(src Source, cfg Config) model.FeedbackCode {
	code, streak := worstError(src.ErrorStreaks)
	if code == model.NoBiomechanicalError {
		streak = src.ErrorStreaks[model.NoBiomechanicalError]
	}
	if streak < cfg.BioFeedbackThreshold {
		return model.FeedbackSilent
	}
	if code == model.NoBiomechanicalError || code == "" {
		return model.FeedbackValid
	}
	if src.FramesSinceLastFeedback < cfg.CooldownFrames {
		return model.FeedbackSilent
	}
	return model.FeedbackCode(code)
}

func selectPoseQuality(src Source, cfg Config) model.FeedbackCode {
	if src.FramesSinceLastValid < cfg.PoseQualityFeedbackThreshold {
		return model.FeedbackSilent
	}
	quality, _ := worstQuality(src.BadFrameStreaks)
	if quality == "" {
		return model.FeedbackSilent
	}
	if src.FramesSinceLastFeedback < cfg.CooldownFrames {
		return model.FeedbackSilent
	}
	return model.FeedbackCode(quality)
}

// worstError returns the highest-streak biomechanical error code. Ties
// break on the code itself (lexically smallest wins) so selection is
// reproducible across runs despite Go's randomized map iteration order.
func worstError(streaks map[model.DetectedErrorCode]int) (model.DetectedErrorCode, int) {
	var best model.DetectedErrorCode
	bestCount := -1
	for code, count := range streaks {
		if !code.IsBiomechanical() {
			continue
		}
		if count > bestCount || (count == bestCount && code < best) {
			best, bestCount = code, count
		}
	}
	if bestCount < 0 {
		return model.NoBiomechanicalError, 0
	}
	return best, bestCount
}

// worstQuality returns the highest-streak pose-quality issue, breaking
// ties the same way worstError does.
func worstQuality(streaks map[model.Quality]int) (model.Quality, int) {
	var best model.Quality
	bestCount := -1
	for q, count := range streaks {
		if count > bestCount || (count == bestCount && q < best) {
			best, bestCount = q, count
		}
	}
	return best, bestCount
}
