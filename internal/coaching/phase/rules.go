// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package phase implements the per-exercise phase detector described
// in spec.md §4.6, loaded from a per-exercise rule table.
//
// Grounded on original_source/Server/Pipeline/PhaseDetector.py and
// original_source/Server/Data/Phase/PhaseType.py.
package phase

import (
	"fmt"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Range is an inclusive [Min, Max] threshold for one joint.
type Range struct {
	Min float64
	Max float64
}

// Satisfies reports whether value falls within the range.
func (r Range) Satisfies(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// RuleBlock maps joint name to its acceptable range for one phase.
type RuleBlock map[string]Range

// Config is one exercise's full phase-detector configuration, loaded
// from <phase.phase_detector_config_dir>/<exercise>.json.
type Config struct {
	Rules            map[model.PhaseType]RuleBlock
	InitialPhase     model.PhaseType
	TransitionOrder  []model.PhaseType
	LowMotionPhases  map[model.PhaseType]bool
}

// Validate implements the load-time checks of spec.md §4.6: every
// non-NONE phase has rules, min<=max, joint names are known to the
// exercise's schema, and transition_order is a well-formed cycle
// starting at initial_phase.
func (c Config) Validate(exercise model.ExerciseType, knownJoints map[string]bool) error {
	phases := model.PhasesFor(exercise)
	for _, p := range phases {
		block, ok := c.Rules[p]
		if !ok {
			return fmt.Errorf("phase detector config: missing rules for phase %q", p)
		}
		for joint, r := range block {
			if r.Min > r.Max {
				return fmt.Errorf("phase detector config: phase %q joint %q has min>max", p, joint)
			}
			if knownJoints != nil && !knownJoints[joint] {
				return fmt.Errorf("phase detector config: phase %q references unknown joint %q", p, joint)
			}
		}
	}
	if len(c.TransitionOrder) < 2 {
		return fmt.Errorf("phase detector config: transition_order too short")
	}
	if c.TransitionOrder[0] != c.InitialPhase {
		return fmt.Errorf("phase detector config: transition_order must start with initial_phase")
	}
	if c.TransitionOrder[0] != c.TransitionOrder[len(c.TransitionOrder)-1] {
		return fmt.Errorf("phase detector config: transition_order must start and end with the same phase")
	}
	known := make(map[model.PhaseType]bool, len(phases))
	for _, p := range phases {
		known[p] = true
	}
	for _, p := range c.TransitionOrder {
		if !known[p] {
			return fmt.Errorf("phase detector config: transition_order references undefined phase %q", p)
		}
	}
	return nil
}

// filterBySide drops joint entries from a rule block that the current
// camera side cannot see. FRONT keeps everything; LEFT/RIGHT keep the
// subset named in sideJoints (empty/nil means "no filtering", matching
// the original's pass-through behavior for UNKNOWN).
func filterBySide(block RuleBlock, side model.PositionSide, sideJoints map[model.PositionSide]map[string]bool) RuleBlock {
	if side == model.SideFront || side == model.SideUnknown || sideJoints == nil {
		return block
	}
	allowed, ok := sideJoints[side]
	if !ok || len(allowed) == 0 {
		return block
	}
	out := make(RuleBlock, len(block))
	for name, r := range block {
		if allowed[name] {
			out[name] = r
		}
	}
	return out
}
