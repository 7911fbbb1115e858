// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package joints

import (
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/stretchr/testify/assert"
)

func landmarkAt(x, y, visibility float64) model.Landmark {
	return model.Landmark{X: x, Y: y, Visibility: visibility}
}

func TestCompute_ThreePointRightAngle(t *testing.T) {
	var lm model.LandmarkMatrix
	lm[model.LeftHip] = landmarkAt(0, 1, 1)
	lm[model.LeftKnee] = landmarkAt(0, 0, 1)
	lm[model.LeftAnkle] = landmarkAt(1, 0, 1)

	js := []Joint{j3("left_knee_angle", model.LeftHip, model.LeftKnee, model.LeftAnkle)}
	out := Compute(js, lm, 0.5)

	assert.Len(t, out, 1)
	assert.True(t, out[0].Valid)
	assert.InDelta(t, 90.0, out[0].Degrees, 1e-9)
}

func TestCompute_InvalidWhenLandmarkNotVisible(t *testing.T) {
	var lm model.LandmarkMatrix
	lm[model.LeftHip] = landmarkAt(0, 1, 0.1)
	lm[model.LeftKnee] = landmarkAt(0, 0, 1)
	lm[model.LeftAnkle] = landmarkAt(1, 0, 1)

	js := []Joint{j3("left_knee_angle", model.LeftHip, model.LeftKnee, model.LeftAnkle)}
	out := Compute(js, lm, 0.5)

	assert.Len(t, out, 1)
	assert.False(t, out[0].Valid)
	assert.Equal(t, 0.0, out[0].Degrees)
}

func TestCompute_TwoPointHorizontalLine(t *testing.T) {
	var lm model.LandmarkMatrix
	lm[model.LeftHip] = landmarkAt(0, 0, 1)
	lm[model.RightHip] = landmarkAt(1, 0, 1)

	js := []Joint{j2("hip_line_angle", model.LeftHip, model.RightHip)}
	out := Compute(js, lm, 0.5)

	assert.True(t, out[0].Valid)
	assert.InDelta(t, 0.0, out[0].Degrees, 1e-9)
}

func TestCompute_DegenerateZeroLengthVectorIsInvalid(t *testing.T) {
	var lm model.LandmarkMatrix
	lm[model.LeftHip] = landmarkAt(0, 0, 1)
	lm[model.LeftKnee] = landmarkAt(0, 0, 1)
	lm[model.LeftAnkle] = landmarkAt(1, 0, 1)

	js := []Joint{j3("left_knee_angle", model.LeftHip, model.LeftKnee, model.LeftAnkle)}
	out := Compute(js, lm, 0.5)

	assert.False(t, out[0].Valid)
	assert.Equal(t, 0.0, out[0].Degrees)
}

func TestByName(t *testing.T) {
	angles := []Angle{{Name: "a", Degrees: 1, Valid: true}, {Name: "b", Degrees: 2, Valid: false}}
	m := ByName(angles)
	assert.Equal(t, 1.0, m["a"].Degrees)
	assert.False(t, m["b"].Valid)
}
