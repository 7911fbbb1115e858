// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package joints

import (
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/stretchr/testify/assert"
)

func fullyVisibleMatrix() model.LandmarkMatrix {
	var lm model.LandmarkMatrix
	for i := range lm {
		lm[i] = model.Landmark{X: float64(i), Y: float64(i) + 1, Visibility: 1}
	}
	return lm
}

func TestAnalyze_AllCoreValidYieldsRatioOne(t *testing.T) {
	schema, _ := SchemaFor(model.ExerciseSquat)
	lm := fullyVisibleMatrix()

	result := Analyze(schema, lm, model.SideFront, false, AnalyzerConfig{VisibilityThreshold: 0.5, MinValidJointRatio: 1.0})

	assert.Equal(t, 1.0, result.CoreValidRatio)
	assert.False(t, result.TooManyInvalid)
	assert.Len(t, result.Values, len(schema.Core))
}

func TestAnalyze_ExtendedAddsExtraValues(t *testing.T) {
	schema, _ := SchemaFor(model.ExerciseSquat)
	lm := fullyVisibleMatrix()

	core := Analyze(schema, lm, model.SideFront, false, AnalyzerConfig{VisibilityThreshold: 0.5, MinValidJointRatio: 0})
	extended := Analyze(schema, lm, model.SideFront, true, AnalyzerConfig{VisibilityThreshold: 0.5, MinValidJointRatio: 0})

	assert.Greater(t, len(extended.Values), len(core.Values))
}

func TestAnalyze_LowVisibilityTriggersTooManyInvalid(t *testing.T) {
	schema, _ := SchemaFor(model.ExerciseSquat)
	var lm model.LandmarkMatrix
	for i := range lm {
		lm[i] = model.Landmark{Visibility: 0}
	}

	result := Analyze(schema, lm, model.SideFront, false, AnalyzerConfig{VisibilityThreshold: 0.5, MinValidJointRatio: 0.5})

	assert.Equal(t, 0.0, result.CoreValidRatio)
	assert.True(t, result.TooManyInvalid)
	assert.Empty(t, result.Values)
}
