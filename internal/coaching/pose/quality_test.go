// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pose

import (
	"math"
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/stretchr/testify/assert"
)

func centeredMatrix(visibility float64) model.LandmarkMatrix {
	var lm model.LandmarkMatrix
	for i := range lm {
		x := 0.4 + float64(i%3)*0.1
		y := 0.3 + float64(i%5)*0.1
		lm[i] = model.Landmark{X: x, Y: y, Visibility: visibility}
	}
	return lm
}

func defaultQualityConfig() QualityConfig {
	return QualityConfig{
		StabilityThreshold:      0.5,
		BboxTooFar:              0.05,
		MinimumBboxArea:         0.01,
		VisibilityGoodThreshold: 0.5,
		RequiredVisibilityRatio: 0.8,
	}
}

func allLandmarks() []model.PoseLandmark {
	out := make([]model.PoseLandmark, model.NumLandmarks)
	for i := range out {
		out[i] = model.PoseLandmark(i)
	}
	return out
}

func TestGate_NoPersonWhenBboxTooSmall(t *testing.T) {
	var lm model.LandmarkMatrix
	for i := range lm {
		lm[i] = model.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	q := Gate(lm, allLandmarks(), defaultQualityConfig(), nil)
	assert.Equal(t, model.QualityNoPerson, q)
}

func TestGate_PartialBodyWhenVisibilityLow(t *testing.T) {
	lm := centeredMatrix(0.1)
	q := Gate(lm, allLandmarks(), defaultQualityConfig(), nil)
	assert.Equal(t, model.QualityPartialBody, q)
}

func TestGate_OKWhenWellVisibleAndStable(t *testing.T) {
	lm := centeredMatrix(1)
	q := Gate(lm, allLandmarks(), defaultQualityConfig(), nil)
	assert.Equal(t, model.QualityOK, q)
}

func TestGate_UnstableWhenJumpyAgainstPrevious(t *testing.T) {
	cfg := defaultQualityConfig()
	prev := centeredMatrix(1)
	var cur model.LandmarkMatrix
	for i := range cur {
		cur[i] = model.Landmark{X: prev[i].X + 1, Y: prev[i].Y + 1, Visibility: 1}
	}
	q := Gate(cur, allLandmarks(), cfg, &prev)
	assert.Equal(t, model.QualityUnstable, q)
}

func TestGate_NaNCoordinatesSanitizedToZero(t *testing.T) {
	lm := centeredMatrix(1)
	lm[model.Nose] = model.Landmark{X: math.NaN(), Y: math.NaN(), Visibility: 1}
	// Should not panic and should still classify deterministically.
	assert.NotPanics(t, func() {
		Gate(lm, allLandmarks(), defaultQualityConfig(), nil)
	})
}

func TestGate_OnlyConsidersRequiredLandmarks(t *testing.T) {
	cfg := defaultQualityConfig()
	var lm model.LandmarkMatrix
	for i := range lm {
		lm[i] = model.Landmark{X: 0.5, Y: 0.5, Visibility: 0}
	}
	// Only the required subset is visible and spread wide enough to pass
	// the bbox/visibility checks; the rest of the 33 landmarks staying
	// invisible must not affect the verdict.
	required := []model.PoseLandmark{model.LeftElbow, model.LeftShoulder, model.LeftWrist}
	lm[model.LeftElbow] = model.Landmark{X: 0.3, Y: 0.3, Visibility: 1}
	lm[model.LeftShoulder] = model.Landmark{X: 0.6, Y: 0.3, Visibility: 1}
	lm[model.LeftWrist] = model.Landmark{X: 0.45, Y: 0.6, Visibility: 1}

	q := Gate(lm, required, cfg, nil)
	assert.Equal(t, model.QualityOK, q)
}
