// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package phase

import "github.com/bodytrack/coachd/internal/coaching/model"

// Detector evaluates phase-transition candidates against one
// exercise's Config. It is stateless; all mutable state (phase_state,
// current_transition_index, low_motion_streak) lives in history.
type Detector struct {
	cfg        Config
	sideJoints map[model.PositionSide]map[string]bool
}

// NewDetector builds a Detector for one exercise's loaded config.
// sideJoints, if non-nil, restricts rule evaluation to the joints
// visible from LEFT/RIGHT camera positions; nil disables filtering
// (see filterBySide).
func NewDetector(cfg Config, sideJoints map[model.PositionSide]map[string]bool) *Detector {
	return &Detector{cfg: cfg, sideJoints: sideJoints}
}

func (d *Detector) satisfiedPhases(joints map[string]float64, side model.PositionSide) []model.PhaseType {
	var candidates []model.PhaseType
	for phase, block := range d.cfg.Rules {
		filtered := filterBySide(block, side, d.sideJoints)
		if satisfiesAll(filtered, joints) {
			candidates = append(candidates, phase)
		}
	}
	return candidates
}

func satisfiesAll(block RuleBlock, joints map[string]float64) bool {
	if len(block) == 0 {
		return false
	}
	for name, r := range block {
		v, ok := joints[name]
		if !ok || !r.Satisfies(v) {
			return false
		}
	}
	return true
}

func (d *Detector) indexOf(phase model.PhaseType) int {
	for i, p := range d.cfg.TransitionOrder {
		if p == phase {
			return i
		}
	}
	return -1
}

// Determine implements spec.md §4.6's determine_phase algorithm.
// lastPhase/hasLastPhase mirror history.phase_state; lowMotionStreak
// and lowMotionThreshold gate low-motion phase selection.
func (d *Detector) Determine(joints map[string]float64, side model.PositionSide, lastPhase model.PhaseType, hasLastPhase bool, lowMotionStreak, lowMotionThreshold int) (model.PhaseType, bool) {
	candidates := d.satisfiedPhases(joints, side)

	switch len(candidates) {
	case 0:
		if hasLastPhase {
			return lastPhase, true
		}
		return d.cfg.InitialPhase, true

	case 1:
		c := candidates[0]
		if !hasLastPhase {
			return c, true
		}
		if c == lastPhase {
			return c, true
		}
		if d.isNextExpected(lastPhase, c) {
			return c, true
		}
		return lastPhase, true

	default:
		if hasLastPhase && containsPhase(candidates, lastPhase) {
			return lastPhase, true
		}
		if hasLastPhase {
			li := d.indexOf(lastPhase)
			if li >= 0 && li+1 < len(d.cfg.TransitionOrder) {
				next := d.cfg.TransitionOrder[li+1]
				if d.cfg.LowMotionPhases[next] && lowMotionStreak < lowMotionThreshold {
					return lastPhase, true
				}
				if containsPhase(candidates, next) {
					return next, true
				}
			}
			for step := 1; step <= len(d.cfg.TransitionOrder); step++ {
				idx := (li + step) % len(d.cfg.TransitionOrder)
				p := d.cfg.TransitionOrder[idx]
				if d.cfg.LowMotionPhases[p] && lowMotionStreak < lowMotionThreshold {
					continue
				}
				if containsPhase(candidates, p) {
					return p, true
				}
			}
			return lastPhase, true
		}
		return "", false
	}
}

func (d *Detector) isNextExpected(last, candidate model.PhaseType) bool {
	li := d.indexOf(last)
	if li < 0 || li+1 >= len(d.cfg.TransitionOrder) {
		return false
	}
	return d.cfg.TransitionOrder[li+1] == candidate
}

func containsPhase(phases []model.PhaseType, target model.PhaseType) bool {
	for _, p := range phases {
		if p == target {
			return true
		}
	}
	return false
}

// EnsureInitialPhaseCorrect evaluates the filtered rules for the
// configured initial phase against joints, used during READY-state
// calibration (spec.md §4.2).
func (d *Detector) EnsureInitialPhaseCorrect(joints map[string]float64, side model.PositionSide) bool {
	block, ok := d.cfg.Rules[d.cfg.InitialPhase]
	if !ok {
		return false
	}
	return satisfiesAll(filterBySide(block, side, d.sideJoints), joints)
}

// InitialPhase exposes the configured starting phase.
func (d *Detector) InitialPhase() model.PhaseType { return d.cfg.InitialPhase }

// TransitionOrder exposes the configured cycle.
func (d *Detector) TransitionOrder() []model.PhaseType { return d.cfg.TransitionOrder }
