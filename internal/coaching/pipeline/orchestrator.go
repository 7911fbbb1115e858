// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline implements the per-frame orchestrator of spec.md
// §4.2: the single writer to a session's history, dispatching each
// frame through the INIT/READY/ACTIVE/DONE/FAILURE sub-state machine.
//
// Grounded on internal/pipeline/worker/orchestrator.go's staged,
// lock-held dispatch pattern (teacher), generalized from the streaming
// domain to the coaching domain's stages: pose extraction, quality
// gate, position-side detection, joint analysis, phase detection,
// error detection, and feedback formatting.
package pipeline

import (
	stderrors "errors"
	"fmt"

	"github.com/bodytrack/coachd/internal/coaching/errors"
	"github.com/bodytrack/coachd/internal/coaching/feedback"
	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/joints"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/phase"
	"github.com/bodytrack/coachd/internal/coaching/pose"
	"github.com/bodytrack/coachd/internal/metrics"
)

// Extractor converts a decoded image into a pose landmark matrix. It
// is the only stage the orchestrator does not implement itself —
// production wiring injects a real model; tests inject a fake.
type Extractor interface {
	ExtractPose(image []byte) (model.LandmarkMatrix, error)
}

// ExerciseRuntime bundles the exercise-specific building blocks the
// orchestrator needs: its joint schema and its loaded detectors.
type ExerciseRuntime struct {
	Exercise      model.ExerciseType
	Schema        joints.Schema
	PhaseDetector *phase.Detector
	ErrorDetector *errors.Detector
}

// Config aggregates every threshold the orchestrator consults,
// corresponding to the frame/session/pose/position_side/joints/phase/
// feedback configuration sections of spec.md §6.
type Config struct {
	Quality  pose.QualityConfig
	Side     pose.SideConfig
	Joints   joints.AnalyzerConfig
	Feedback feedback.Config

	NumMinInitOKFrames               int
	NumMinInitCorrectPhaseFrames     int
	MaxConsecutiveInvalidBeforeAbort int
	PhaseLowMotionThreshold          int
	LowMotionAngleDegreesThreshold   float64
}

// Orchestrator is stateless across sessions; all per-session state
// lives in the history.Manager and analyzingState passed into
// AnalyzeFrame.
type Orchestrator struct {
	cfg       Config
	extractor Extractor
	runtimes  map[model.ExerciseType]ExerciseRuntime
}

// New constructs an Orchestrator over a fixed set of exercise runtimes.
func New(cfg Config, extractor Extractor, runtimes map[model.ExerciseType]ExerciseRuntime) *Orchestrator {
	return &Orchestrator{cfg: cfg, extractor: extractor, runtimes: runtimes}
}

// Outcome is the result of one AnalyzeFrame call: the sub-state to
// store back on the session, and the code to render in the HTTP
// response (a CalibrationCode, FeedbackCode, or ServerErrorCode
// string, depending on NextState).
type Outcome struct {
	NextState   model.AnalyzingState
	Code        string
	ShouldAbort bool
}

// Start stamps the exercise start time; called once on REGISTERED->ACTIVE.
func Start(hist *history.Manager) {
	hist.StartExercise()
}

// AnalyzeFrame runs exactly one stage-dispatch of spec.md §4.2. The
// caller (session manager) holds the session lock for the full call.
func (o *Orchestrator) AnalyzeFrame(exercise model.ExerciseType, extended bool, state model.AnalyzingState, hist *history.Manager, frameID string, image []byte) (Outcome, error) {
	switch state {
	case model.AnalyzingDone:
		return Outcome{NextState: state, Code: string(model.TryingToAnalyzeFrameWhenDone)}, nil
	case model.AnalyzingFailure:
		return Outcome{NextState: state, Code: string(model.TryingToAnalyzeFrameWhenFailed)}, nil
	}

	runtime, ok := o.runtimes[exercise]
	if !ok {
		return Outcome{}, fmt.Errorf("pipeline: no runtime registered for exercise %q", exercise)
	}

	lm, err := o.extractor.ExtractPose(image)
	if err != nil {
		return Outcome{NextState: state, Code: string(model.FrameDecodingFailed)}, nil
	}

	switch state {
	case model.AnalyzingInit:
		return o.stepInit(runtime, lm, extended, hist)
	case model.AnalyzingReady:
		return o.stepReady(runtime, lm, extended, hist)
	case model.AnalyzingActive:
		return o.stepActive(runtime, lm, extended, hist, frameID)
	default:
		return Outcome{}, fmt.Errorf("pipeline: unknown analyzing state %q", state)
	}
}

func (o *Orchestrator) lastValidLandmarks(hist *history.Manager) *model.LandmarkMatrix {
	if f := hist.Data().LastValidFrame; f != nil {
		return &f.Landmarks
	}
	return nil
}

func (o *Orchestrator) stepInit(runtime ExerciseRuntime, lm model.LandmarkMatrix, extended bool, hist *history.Manager) (Outcome, error) {
	// The side is not yet known at this point in calibration — mirrors
	// PoseQualityManager.evaluate_landmarks, which only runs once
	// history.get_position_side() is set; until then the required set
	// is exercise/extended-scoped only (AllJoints ignores side anyway).
	required := joints.RequiredLandmarks(runtime.Schema, model.SideUnknown, extended)
	quality := pose.Gate(lm, required, o.cfg.Quality, o.lastValidLandmarks(hist))

	if quality != model.QualityOK {
		hist.ResetConsecutiveOK()
		return Outcome{NextState: model.AnalyzingInit, Code: string(model.QualityToServerErrorCode(quality))}, nil
	}

	notOK := false
	side := pose.DetectSide(lm, o.cfg.Side)
	if side.IsUnknown() || !pose.IsAllowed(runtime.Exercise, side) {
		notOK = true
	} else {
		hist.SetPositionSide(side)
	}

	if notOK {
		hist.ResetConsecutiveOK()
		return Outcome{NextState: model.AnalyzingInit, Code: string(model.UserVisibilityIsUnderChecking)}, nil
	}

	streak := hist.IncrementConsecutiveOK()
	if streak >= o.cfg.NumMinInitOKFrames {
		hist.SetCameraStable(true)
		return Outcome{NextState: model.AnalyzingReady, Code: string(model.UserVisibilityIsValid)}, nil
	}
	return Outcome{NextState: model.AnalyzingInit, Code: string(model.UserVisibilityIsUnderChecking)}, nil
}

func (o *Orchestrator) stepReady(runtime ExerciseRuntime, lm model.LandmarkMatrix, extended bool, hist *history.Manager) (Outcome, error) {
	// The last position side settled on during INIT is already stored
	// on history; this frame may re-detect a different one below, but
	// the required-landmark set for the gate uses the last known side.
	required := joints.RequiredLandmarks(runtime.Schema, hist.Data().PositionSide, extended)
	quality := pose.Gate(lm, required, o.cfg.Quality, o.lastValidLandmarks(hist))

	match := quality == model.QualityOK
	var side model.PositionSide
	var analysis joints.Result
	if match {
		side = pose.DetectSide(lm, o.cfg.Side)
		if side.IsUnknown() || !pose.IsAllowed(runtime.Exercise, side) {
			match = false
		} else {
			analysis = joints.Analyze(runtime.Schema, lm, side, extended, o.cfg.Joints)
			if analysis.TooManyInvalid {
				match = false
			} else if !runtime.PhaseDetector.EnsureInitialPhaseCorrect(analysis.Values, side) {
				match = false
			}
		}
	}

	if !match {
		hist.ResetInitialPhaseCounter()
		return Outcome{NextState: model.AnalyzingReady, Code: string(model.UserPositioningIsUnderChecking)}, nil
	}

	streak := hist.IncrementInitialPhaseCounter()
	if streak >= o.cfg.NumMinInitCorrectPhaseFrames {
		hist.SeedInitialPhase(runtime.PhaseDetector.InitialPhase())
		hist.SetPositionSide(side)
		return Outcome{NextState: model.AnalyzingActive, Code: string(model.UserPositioningIsValid)}, nil
	}
	return Outcome{NextState: model.AnalyzingReady, Code: string(model.UserPositioningIsUnderChecking)}, nil
}

func (o *Orchestrator) stepActive(runtime ExerciseRuntime, lm model.LandmarkMatrix, extended bool, hist *history.Manager, frameID string) (Outcome, error) {
	side := hist.Data().PositionSide
	required := joints.RequiredLandmarks(runtime.Schema, side, extended)
	quality := pose.Gate(lm, required, o.cfg.Quality, o.lastValidLandmarks(hist))

	if quality != model.QualityOK {
		hist.RecordInvalidFrame(quality)
		if hist.Data().FramesSinceLastValid >= o.cfg.MaxConsecutiveInvalidBeforeAbort {
			return Outcome{NextState: model.AnalyzingActive, Code: string(model.SessionShouldAbort), ShouldAbort: true}, nil
		}
		code := feedback.Select(o.feedbackSource(hist), o.cfg.Feedback)
		hist.MarkFeedbackEmitted(code)
		return Outcome{NextState: model.AnalyzingActive, Code: string(code)}, nil
	}

	analysis := joints.Analyze(runtime.Schema, lm, side, extended, o.cfg.Joints)
	if analysis.TooManyInvalid {
		return Outcome{NextState: model.AnalyzingActive, Code: string(model.TooManyInvalidAngles)}, nil
	}

	previousValid := hist.Data().LastValidFrame
	hist.RecordValidFrame(frameID, lm, analysis.Values)
	o.updateLowMotion(hist, previousValid, analysis.Values)

	newPhase, ok := runtime.PhaseDetector.Determine(analysis.Values, side, hist.Data().PhaseState, hist.Data().HasPhaseState, hist.LowMotionStreak(), o.cfg.PhaseLowMotionThreshold)
	if !ok {
		return Outcome{NextState: model.AnalyzingActive, Code: string(model.PhaseUndeterminedInFrame)}, nil
	}
	hist.RecordPhaseTransition(runtime.Exercise, newPhase, frameID, analysis.Values, runtime.PhaseDetector.TransitionOrder())

	errCode, err := runtime.ErrorDetector.Detect(newPhase, analysis.Values, hist.IsStateOK())
	if err != nil {
		if stderrors.Is(err, errors.ErrMappingNotFound) {
			return Outcome{NextState: model.AnalyzingActive, Code: string(model.ErrorDetectorMappingNotFound)}, nil
		}
		return Outcome{}, err
	}
	hist.AddFrameError(errCode)
	if errCode.IsBiomechanical() {
		metrics.BiomechanicalErrorsTotal.WithLabelValues(string(runtime.Exercise), string(errCode)).Inc()
	}

	code := feedback.Select(o.feedbackSource(hist), o.cfg.Feedback)
	hist.MarkFeedbackEmitted(code)
	return Outcome{NextState: model.AnalyzingActive, Code: string(code)}, nil
}

func (o *Orchestrator) feedbackSource(hist *history.Manager) feedback.Source {
	d := hist.Data()
	return feedback.Source{
		StateOK:                 hist.IsStateOK(),
		FramesSinceLastValid:    d.FramesSinceLastValid,
		FramesSinceLastFeedback: d.FramesSinceLastFeedback,
		ErrorStreaks:            d.ErrorStreaks,
		BadFrameStreaks:         d.BadFrameStreaks,
	}
}

// updateLowMotion tracks whether the current frame's joints moved
// enough to count as "in motion", gating the phase detector's
// low-motion-phase selection (spec.md §4.6 step 4b/4c).
func (o *Orchestrator) updateLowMotion(hist *history.Manager, previous *history.FrameRecord, values map[string]float64) {
	if previous == nil || len(previous.Joints) == 0 {
		hist.ResetLowMotionStreak()
		return
	}
	var maxDelta float64
	for name, v := range values {
		if prev, ok := previous.Joints[name]; ok {
			d := v - prev
			if d < 0 {
				d = -d
			}
			if d > maxDelta {
				maxDelta = d
			}
		}
	}
	if maxDelta <= o.cfg.LowMotionAngleDegreesThreshold {
		hist.IncrementLowMotionStreak()
	} else {
		hist.ResetLowMotionStreak()
	}
}
