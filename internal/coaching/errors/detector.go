// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package errors implements the biomechanical error detector of
// spec.md §4.8.
//
// Grounded on original_source/Server/Pipeline/ErrorDetector.py and
// original_source/Server/Data/Error/DetectedErrorCode.py.
package errors

import (
	"fmt"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Direction-qualified threshold for one joint: a value below Min maps
// to a LOW code, above Max maps to a HIGH code.
type Threshold struct {
	Min     float64
	Max     float64
	LowCode model.DetectedErrorCode
	HighCode model.DetectedErrorCode
}

// JointOrder is an ordered joint-name list: iteration order defines
// violation-check priority among joints within one phase.
type JointOrder []string

// PhaseTable maps joint name to its threshold for one phase.
type PhaseTable map[string]Threshold

// Config is one exercise's full error-detector configuration, loaded
// from the JSON file named by error.error_detector_config_file.
type Config struct {
	Phases map[model.PhaseType]PhaseTable
	Order  map[model.PhaseType]JointOrder
}

// Detector evaluates a single frame's joints against one exercise's
// Config. Stateless.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector { return &Detector{cfg: cfg} }

// Detect implements spec.md §4.8: walk the phase's joints in priority
// order and return the first range violation found, or
// NO_BIOMECHANICAL_ERROR if none. isReady must be false when history
// state isn't OK or the last frame isn't actually valid — the caller
// (orchestrator) computes that precondition.
func (d *Detector) Detect(phase model.PhaseType, joints map[string]float64, isReady bool) (model.DetectedErrorCode, error) {
	if !isReady {
		return model.NotReadyForAnalysis, nil
	}

	table, ok := d.cfg.Phases[phase]
	if !ok {
		return "", fmt.Errorf("error detector: no table for phase %q", phase)
	}
	order := d.cfg.Order[phase]

	for _, name := range order {
		th, ok := table[name]
		if !ok {
			continue
		}
		v, ok := joints[name]
		if !ok {
			continue
		}
		switch {
		case v < th.Min:
			if th.LowCode == "" {
				return "", fmt.Errorf("%w: phase=%s joint=%s direction=LOW", ErrMappingNotFound, phase, name)
			}
			return th.LowCode, nil
		case v > th.Max:
			if th.HighCode == "" {
				return "", fmt.Errorf("%w: phase=%s joint=%s direction=HIGH", ErrMappingNotFound, phase, name)
			}
			return th.HighCode, nil
		}
	}
	return model.NoBiomechanicalError, nil
}
