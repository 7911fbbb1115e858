// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodytrack/coachd/internal/coaching/joints"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/phase"
)

// phaseRuleFile is the on-disk JSON shape for one exercise's phase
// detector configuration, named <phase_detector_config_dir>/<exercise>.json.
type phaseRuleFile struct {
	Rules           map[string]map[string][2]float64 `json:"rules"`
	InitialPhase    string                            `json:"initial_phase"`
	TransitionOrder []string                           `json:"transition_order"`
	LowMotionPhases []string                           `json:"low_motion_phases"`
}

// LoadPhaseConfig decodes and validates one exercise's phase detector
// configuration from <dir>/<exercise>.json.
func LoadPhaseConfig(dir string, exercise model.ExerciseType) (phase.Config, error) {
	path := filepath.Join(dir, string(exercise)+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return phase.Config{}, fmt.Errorf("phase config: read %s: %w", path, err)
	}
	var file phaseRuleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return phase.Config{}, fmt.Errorf("phase config: parse %s: %w", path, err)
	}

	cfg := phase.Config{
		Rules:           make(map[model.PhaseType]phase.RuleBlock, len(file.Rules)),
		InitialPhase:    model.PhaseType(file.InitialPhase),
		LowMotionPhases: make(map[model.PhaseType]bool, len(file.LowMotionPhases)),
	}
	for phaseName, jointRanges := range file.Rules {
		block := make(phase.RuleBlock, len(jointRanges))
		for joint, minMax := range jointRanges {
			block[joint] = phase.Range{Min: minMax[0], Max: minMax[1]}
		}
		cfg.Rules[model.PhaseType(phaseName)] = block
	}
	for _, p := range file.TransitionOrder {
		cfg.TransitionOrder = append(cfg.TransitionOrder, model.PhaseType(p))
	}
	for _, p := range file.LowMotionPhases {
		cfg.LowMotionPhases[model.PhaseType(p)] = true
	}

	schema, ok := joints.SchemaFor(exercise)
	if !ok {
		return phase.Config{}, fmt.Errorf("phase config: unknown exercise %q", exercise)
	}
	known := make(map[string]bool)
	for _, name := range joints.Names(joints.AllJoints(schema, model.SideFront, true)) {
		known[name] = true
	}
	if err := cfg.Validate(exercise, known); err != nil {
		return phase.Config{}, err
	}
	return cfg, nil
}
