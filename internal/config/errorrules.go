// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodytrack/coachd/internal/coaching/errors"
	"github.com/bodytrack/coachd/internal/coaching/model"
)

// errorThreshold is the on-disk shape of one joint's error-detector
// entry: numeric range plus the error codes raised on either side.
type errorThreshold struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	LowCode  string  `json:"low_code"`
	HighCode string  `json:"high_code"`
}

// errorRuleFile is the on-disk JSON shape for one exercise's error
// detector configuration, named <error_detector_config_dir>/<exercise>.json.
// joint_order fixes the priority in which joints are checked per phase.
type errorRuleFile struct {
	Phases     map[string]map[string]errorThreshold `json:"phases"`
	JointOrder map[string][]string                  `json:"joint_order"`
}

// LoadErrorConfig decodes one exercise's error detector configuration
// from <dir>/<exercise>.json.
func LoadErrorConfig(dir string, exercise model.ExerciseType) (errors.Config, error) {
	path := filepath.Join(dir, string(exercise)+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Config{}, fmt.Errorf("error config: read %s: %w", path, err)
	}
	var file errorRuleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return errors.Config{}, fmt.Errorf("error config: parse %s: %w", path, err)
	}

	cfg := errors.Config{
		Phases: make(map[model.PhaseType]errors.PhaseTable, len(file.Phases)),
		Order:  make(map[model.PhaseType]errors.JointOrder, len(file.JointOrder)),
	}
	for phaseName, joints := range file.Phases {
		table := make(errors.PhaseTable, len(joints))
		for joint, t := range joints {
			table[joint] = errors.Threshold{
				Min:      t.Min,
				Max:      t.Max,
				LowCode:  model.DetectedErrorCode(t.LowCode),
				HighCode: model.DetectedErrorCode(t.HighCode),
			}
		}
		cfg.Phases[model.PhaseType(phaseName)] = table
	}
	for phaseName, order := range file.JointOrder {
		cfg.Order[model.PhaseType(phaseName)] = errors.JointOrder(order)
	}
	return cfg, nil
}
