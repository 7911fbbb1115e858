// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package joints

import "github.com/bodytrack/coachd/internal/coaching/model"

// AnalyzerConfig holds the thresholds loaded from joints.*
// configuration keys.
type AnalyzerConfig struct {
	VisibilityThreshold float64
	MinValidJointRatio  float64
}

// Result is the joint analyzer's output for one frame: a name→degrees
// map plus the CORE-validity verdict of spec.md §4.5.
type Result struct {
	Values        map[string]float64
	CoreValidRatio float64
	TooManyInvalid bool
}

// Analyze implements spec.md §4.5: compute CORE (and, if extended is
// set, EXTENDED) joint angles, then gate on the fraction of CORE
// joints that resolved to a value.
func Analyze(schema Schema, lm model.LandmarkMatrix, side model.PositionSide, extended bool, cfg AnalyzerConfig) Result {
	core := AllJoints(schema, side, false)
	coreAngles := Compute(core, lm, cfg.VisibilityThreshold)

	values := make(map[string]float64, len(coreAngles))
	validCore := 0
	for _, a := range coreAngles {
		if a.Valid {
			values[a.Name] = a.Degrees
			validCore++
		}
	}
	ratio := 0.0
	if len(core) > 0 {
		ratio = float64(validCore) / float64(len(core))
	}

	if extended {
		extAngles := Compute(schema.Extended, lm, cfg.VisibilityThreshold)
		for _, a := range extAngles {
			if a.Valid {
				values[a.Name] = a.Degrees
			}
		}
	}

	return Result{
		Values:         values,
		CoreValidRatio: ratio,
		TooManyInvalid: ratio < cfg.MinValidJointRatio,
	}
}
