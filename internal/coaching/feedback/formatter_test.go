// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feedback

import (
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/stretchr/testify/assert"
)

func TestWorstError_IgnoresBookkeepingCodes(t *testing.T) {
	streaks := map[model.DetectedErrorCode]int{
		model.NoBiomechanicalError: 10,
		model.SquatTooDeep:         2,
	}
	code, count := worstError(streaks)
	assert.Equal(t, model.SquatTooDeep, code)
	assert.Equal(t, 2, count)
}

func TestWorstError_EmptyReturnsSentinel(t *testing.T) {
	code, count := worstError(nil)
	assert.Equal(t, model.NoBiomechanicalError, code)
	assert.Equal(t, 0, count)
}

func TestWorstError_TieBreaksDeterministicallyByCode(t *testing.T) {
	streaks := map[model.DetectedErrorCode]int{
		model.SquatTooDeep:      3,
		model.SquatNotDeepEnough: 3,
		model.SquatKneesInward:   3,
	}
	for i := 0; i < 20; i++ {
		code, count := worstError(streaks)
		assert.Equal(t, model.SquatKneesInward, code, "lexically smallest code must win every call")
		assert.Equal(t, 3, count)
	}
}

func TestWorstQuality_TieBreaksDeterministicallyByCode(t *testing.T) {
	streaks := map[model.Quality]int{
		model.QualityTooFar:      2,
		model.QualityPartialBody: 2,
	}
	for i := 0; i < 20; i++ {
		q, count := worstQuality(streaks)
		assert.Equal(t, model.QualityPartialBody, q)
		assert.Equal(t, 2, count)
	}
}

func TestSelect_Biomechanical_BelowThresholdIsSilent(t *testing.T) {
	cfg := Config{BioFeedbackThreshold: 3, CooldownFrames: 5}
	src := Source{StateOK: true, ErrorStreaks: map[model.DetectedErrorCode]int{model.SquatTooDeep: 2}}
	assert.Equal(t, model.FeedbackSilent, Select(src, cfg))
}

func TestSelect_Biomechanical_AtThresholdEmitsCode(t *testing.T) {
	cfg := Config{BioFeedbackThreshold: 3, CooldownFrames: 5}
	src := Source{StateOK: true, ErrorStreaks: map[model.DetectedErrorCode]int{model.SquatTooDeep: 3}, FramesSinceLastFeedback: 10}
	assert.Equal(t, model.FeedbackCode(model.SquatTooDeep), Select(src, cfg))
}

func TestSelect_Biomechanical_CooldownSuppresses(t *testing.T) {
	cfg := Config{BioFeedbackThreshold: 3, CooldownFrames: 5}
	src := Source{StateOK: true, ErrorStreaks: map[model.DetectedErrorCode]int{model.SquatTooDeep: 6}, FramesSinceLastFeedback: 1}
	assert.Equal(t, model.FeedbackSilent, Select(src, cfg))
}

func TestSelect_Biomechanical_NoErrorEmitsValid(t *testing.T) {
	cfg := Config{BioFeedbackThreshold: 1, CooldownFrames: 5}
	src := Source{StateOK: true, ErrorStreaks: map[model.DetectedErrorCode]int{model.NoBiomechanicalError: 5}}
	assert.Equal(t, model.FeedbackValid, Select(src, cfg))
}

func TestSelect_PoseQuality_BelowThresholdIsSilent(t *testing.T) {
	cfg := Config{PoseQualityFeedbackThreshold: 3, CooldownFrames: 5}
	src := Source{StateOK: false, FramesSinceLastValid: 2, BadFrameStreaks: map[model.Quality]int{model.QualityTooFar: 5}}
	assert.Equal(t, model.FeedbackSilent, Select(src, cfg))
}

func TestSelect_PoseQuality_EmitsWorstQuality(t *testing.T) {
	cfg := Config{PoseQualityFeedbackThreshold: 2, CooldownFrames: 5}
	src := Source{
		StateOK:                 false,
		FramesSinceLastValid:    4,
		FramesSinceLastFeedback: 10,
		BadFrameStreaks:         map[model.Quality]int{model.QualityTooFar: 4},
	}
	assert.Equal(t, model.FeedbackCode(model.QualityTooFar), Select(src, cfg))
}
