// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package integration drives a real session.Manager over a real
// pipeline.Orchestrator, with a scripted pipeline.Extractor standing in
// for the actual pose model (SPEC_FULL §9's extractor seam). It
// exercises the S3-S6 scenarios of SPEC_FULL §8 end to end: calibration,
// squat rep counting, cooldown-gated feedback, and the end-of-session
// summary.
//
// S1 (registration race by IP) and S2 (admission control) are already
// covered at the session.Manager level by
// internal/coaching/session/manager_test.go; S1's HTTP-visible
// extra_info.session_id is covered where it's actually populated, in
// internal/api's register handler.
package integration

import (
	"math"
	"testing"

	"github.com/bodytrack/coachd/internal/coaching/errors"
	"github.com/bodytrack/coachd/internal/coaching/feedback"
	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/joints"
	"github.com/bodytrack/coachd/internal/coaching/model"
	"github.com/bodytrack/coachd/internal/coaching/phase"
	"github.com/bodytrack/coachd/internal/coaching/pipeline"
	"github.com/bodytrack/coachd/internal/coaching/pose"
	"github.com/bodytrack/coachd/internal/coaching/session"
	"github.com/bodytrack/coachd/internal/coaching/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedExtractor feeds a fixed sequence of landmark matrices to the
// orchestrator; once exhausted it keeps returning the last frame, so a
// test can "hold a pose" over many calls without re-queuing it.
type scriptedExtractor struct {
	frames []model.LandmarkMatrix
	next   int
}

func (s *scriptedExtractor) push(lm model.LandmarkMatrix) { s.frames = append(s.frames, lm) }

func (s *scriptedExtractor) ExtractPose([]byte) (model.LandmarkMatrix, error) {
	lm := s.frames[s.next]
	if s.next < len(s.frames)-1 {
		s.next++
	}
	return lm, nil
}

// baseFrame gives every one of the 33 landmarks a distinct, fully
// visible position so bounding-box area and visibility-ratio checks in
// pose.Gate always pass; squatKneeFrame then overwrites the six
// landmarks that drive left_knee_angle/right_knee_angle.
func baseFrame() model.LandmarkMatrix {
	var lm model.LandmarkMatrix
	for i := range lm {
		lm[i] = model.Landmark{X: 0.3 + float64(i%4)*0.1, Y: 0.2 + float64(i%5)*0.1, Visibility: 1}
	}
	return lm
}

// squatKneeFrame builds a frame whose left/right knee angle is exactly
// deg degrees: hip-knee is fixed at unit vector (0, 1), and the ankle is
// placed at unit distance from the knee at angle deg from that vector,
// so threePointAngle(hip, knee, ankle) == deg by construction.
func squatKneeFrame(deg float64) model.LandmarkMatrix {
	lm := baseFrame()
	rad := deg * math.Pi / 180
	knee := model.Landmark{X: 0.5, Y: 1.0, Visibility: 1}
	hip := model.Landmark{X: 0.5, Y: 2.0, Visibility: 1}
	ankle := model.Landmark{X: 0.5 + math.Sin(rad), Y: 1.0 + math.Cos(rad), Visibility: 1}
	lm[model.LeftHip], lm[model.RightHip] = hip, hip
	lm[model.LeftKnee], lm[model.RightKnee] = knee, knee
	lm[model.LeftAnkle], lm[model.RightAnkle] = ankle, ankle
	return lm
}

// squatPhaseConfig defines four non-overlapping left_knee_angle bands,
// one per phase, so every frame in these tests resolves to exactly one
// phase candidate and Determine never has to arbitrate between
// candidates (that arbitration is covered separately by
// internal/coaching/phase's own unit tests).
func squatPhaseConfig() phase.Config {
	return phase.Config{
		Rules: map[model.PhaseType]phase.RuleBlock{
			model.PhaseSquatTop:  {"left_knee_angle": phase.Range{Min: 170, Max: 190}},
			model.PhaseSquatDown: {"left_knee_angle": phase.Range{Min: 85, Max: 100}},
			model.PhaseSquatHold: {"left_knee_angle": phase.Range{Min: 60, Max: 84}},
			model.PhaseSquatUp:   {"left_knee_angle": phase.Range{Min: 120, Max: 140}},
		},
		InitialPhase:    model.PhaseSquatTop,
		TransitionOrder: []model.PhaseType{model.PhaseSquatTop, model.PhaseSquatDown, model.PhaseSquatHold, model.PhaseSquatUp, model.PhaseSquatTop},
	}
}

// wideErrorTable never flags a biomechanical error: every phase accepts
// the full range a knee angle can take, for scenarios that only care
// about phase/rep bookkeeping.
func wideErrorTable() errors.Config {
	wide := errors.Threshold{Min: -1, Max: 361, LowCode: model.SquatTooDeep, HighCode: model.SquatNotDeepEnough}
	return errors.Config{
		Phases: map[model.PhaseType]errors.PhaseTable{
			model.PhaseSquatTop:  {"left_knee_angle": wide},
			model.PhaseSquatDown: {"left_knee_angle": wide},
			model.PhaseSquatHold: {"left_knee_angle": wide},
			model.PhaseSquatUp:   {"left_knee_angle": wide},
		},
		Order: map[model.PhaseType]errors.JointOrder{
			model.PhaseSquatTop:  {"left_knee_angle"},
			model.PhaseSquatDown: {"left_knee_angle"},
			model.PhaseSquatHold: {"left_knee_angle"},
			model.PhaseSquatUp:   {"left_knee_angle"},
		},
	}
}

func squatSchema() joints.Schema {
	schema, ok := joints.SchemaFor(model.ExerciseSquat)
	if !ok {
		panic("squat schema must be registered")
	}
	return schema
}

func pipelineConfig(feedbackCfg feedback.Config) pipeline.Config {
	return pipeline.Config{
		Quality: pose.QualityConfig{
			StabilityThreshold:      5,
			BboxTooFar:              0,
			MinimumBboxArea:         0.001,
			VisibilityGoodThreshold: 0.5,
			RequiredVisibilityRatio: 0.8,
		},
		Side: pose.SideConfig{
			LandmarkVisibilityThreshold: 0.5,
			DominanceRatioThreshold:     0.6,
			FrontSymmetryThreshold:      0.2,
			MinRequiredLandmarkRatio:    0.5,
		},
		Joints: joints.AnalyzerConfig{
			VisibilityThreshold: 0.5,
			MinValidJointRatio:  0.5,
		},
		Feedback:                         feedbackCfg,
		NumMinInitOKFrames:               5,
		NumMinInitCorrectPhaseFrames:     3,
		MaxConsecutiveInvalidBeforeAbort: 1000,
	}
}

// newHarness wires a session.Manager to a real pipeline.Orchestrator
// over a single squat runtime, mirroring cmd/coachd/main.go's
// buildExerciseRuntimes/pipeline.New/session.NewManager assembly.
func newHarness(errCfg errors.Config, feedbackCfg feedback.Config) (*session.Manager, *scriptedExtractor) {
	extractor := &scriptedExtractor{}
	runtime := pipeline.ExerciseRuntime{
		Exercise:      model.ExerciseSquat,
		Schema:        squatSchema(),
		PhaseDetector: phase.NewDetector(squatPhaseConfig(), nil),
		ErrorDetector: errors.NewDetector(errCfg),
	}
	orchestrator := pipeline.New(pipelineConfig(feedbackCfg), extractor, map[model.ExerciseType]pipeline.ExerciseRuntime{
		model.ExerciseSquat: runtime,
	})
	mgr := session.NewManager(session.Config{
		SupportedExercises: map[model.ExerciseType]bool{model.ExerciseSquat: true},
		MaxClients:         5,
		HistoryLimits:      history.Limits{FramesWindow: 64, BadFrameLog: 32},
	}, orchestrator)
	return mgr, extractor
}

// registerStartAndCalibrate implements S3: register, start, then feed
// calibration frames until the session reaches ACTIVE. With
// NumMinInitOKFrames=5 and NumMinInitCorrectPhaseFrames=3 the streak
// counters (which start at zero and increment before being compared)
// cross their threshold on the 5th and 3rd calls respectively, giving
// exactly the 4-under-checking-then-valid and
// 2-under-checking-then-valid sequences SPEC_FULL §8 describes.
func registerStartAndCalibrate(t *testing.T, mgr *session.Manager, extractor *scriptedExtractor, ip string) model.SessionId {
	t.Helper()

	id, code, cerr := mgr.Register("squat", session.ClientInfo{IP: ip})
	require.Nil(t, cerr)
	assert.Equal(t, model.ClientRegisteredSuccessfully, code)

	_, cerr = mgr.Start(id, false)
	require.Nil(t, cerr)

	top := squatKneeFrame(170)
	for i := 0; i < 4; i++ {
		extractor.push(top)
		outcome, cerr := mgr.AnalyzeFrame(id, "calib", []byte("frame"))
		require.Nil(t, cerr)
		assert.Equal(t, string(model.UserVisibilityIsUnderChecking), outcome.Code)
		assert.Equal(t, model.AnalyzingInit, outcome.NextState)
	}
	extractor.push(top)
	outcome, cerr := mgr.AnalyzeFrame(id, "calib", []byte("frame"))
	require.Nil(t, cerr)
	assert.Equal(t, string(model.UserVisibilityIsValid), outcome.Code)
	require.Equal(t, model.AnalyzingReady, outcome.NextState)

	for i := 0; i < 2; i++ {
		extractor.push(top)
		outcome, cerr := mgr.AnalyzeFrame(id, "calib", []byte("frame"))
		require.Nil(t, cerr)
		assert.Equal(t, string(model.UserPositioningIsUnderChecking), outcome.Code)
		assert.Equal(t, model.AnalyzingReady, outcome.NextState)
	}
	extractor.push(top)
	outcome, cerr = mgr.AnalyzeFrame(id, "calib", []byte("frame"))
	require.Nil(t, cerr)
	assert.Equal(t, string(model.UserPositioningIsValid), outcome.Code)
	require.Equal(t, model.AnalyzingActive, outcome.NextState)

	return id
}

func TestScenario_S3_CalibrationHappyPath(t *testing.T) {
	mgr, extractor := newHarness(wideErrorTable(), feedback.Config{BioFeedbackThreshold: 1000, CooldownFrames: 0})
	registerStartAndCalibrate(t, mgr, extractor, "10.1.0.1")
}

// TestScenario_S4_S6_SquatCycleAndSummary drives three full squat
// cycles (TOP->DOWN->HOLD->UP->TOP) through the ACTIVE state machine,
// repeating the TOP and DOWN frames of the first cycle (as SPEC_FULL
// §8's S4 example does) to confirm repeated frames within a phase are a
// no-op, then ends the session and builds its summary (S6): a clean
// three-rep session must grade at MaxGrade with no recommendations.
func TestScenario_S4_S6_SquatCycleAndSummary(t *testing.T) {
	mgr, extractor := newHarness(wideErrorTable(), feedback.Config{BioFeedbackThreshold: 1000, CooldownFrames: 0})
	id := registerStartAndCalibrate(t, mgr, extractor, "10.1.0.2")

	rep1 := []float64{170, 170, 90, 90, 75, 130, 170}
	rep2 := []float64{90, 75, 130, 170}
	rep3 := []float64{90, 75, 130, 170}

	runFrames := func(angles []float64) {
		for _, angle := range angles {
			extractor.push(squatKneeFrame(angle))
			outcome, cerr := mgr.AnalyzeFrame(id, "active", []byte("frame"))
			require.Nil(t, cerr)
			require.Equal(t, model.AnalyzingActive, outcome.NextState)
		}
	}
	runFrames(rep1)
	runFrames(rep2)
	runFrames(rep3)

	_, cerr := mgr.End(id)
	require.Nil(t, cerr)

	data, cerr := mgr.Summary(id)
	require.Nil(t, cerr)

	require.Equal(t, 3, data.History.RepCount)
	require.Len(t, data.History.Repetitions, 3)
	for _, rep := range data.History.Repetitions {
		assert.True(t, rep.HasEnd)
		assert.False(t, rep.HasError, "a session with no biomechanical violations must have zero error reps")
	}
	assert.Equal(t, 0, data.History.CurrentTransitionIndex, "closing the third rep resets the transition index")

	resp := summary.Build(id.String(), model.ExerciseSquat, data.History, summary.Config{
		NumberOfTopErrors: 3,
		PenaltyPerError:   2,
		MaxGrade:          100,
	})
	assert.Equal(t, 100.0, resp.OverallGrade)
	assert.Equal(t, 3, resp.NumberOfReps)
	assert.GreaterOrEqual(t, resp.AverageRepDurationSeconds, 0.0)
	assert.Empty(t, resp.Recommendations)
}

// TestScenario_S5_BiomechanicalFeedbackWithCooldown holds the squatter
// in a too-deep DOWN position continuously. It asserts the invariants
// the feedback selector actually guarantees (threshold-gated onset,
// cooldown-spaced repeats) rather than SPEC_FULL §8's illustrative
// frame-index narrative: history.Data.FramesSinceLastFeedback starts at
// zero, so selectBiomechanical's own cooldown gate delays the very
// first emission past bio_feedback_threshold by however many frames
// cooldown_frames still has left to run out — the narrative's "emits on
// the third frame" describes the streak threshold, not the cooldown
// gate layered on top of it.
func TestScenario_S5_BiomechanicalFeedbackWithCooldown(t *testing.T) {
	const threshold = 3
	const cooldown = 5

	tooDeep := errors.Threshold{Min: 90, Max: 100, LowCode: model.SquatTooDeep, HighCode: model.SquatNotDeepEnough}
	errCfg := wideErrorTable()
	errCfg.Phases[model.PhaseSquatDown] = errors.PhaseTable{"left_knee_angle": tooDeep}

	mgr, extractor := newHarness(errCfg, feedback.Config{BioFeedbackThreshold: threshold, CooldownFrames: cooldown})
	id := registerStartAndCalibrate(t, mgr, extractor, "10.1.0.3")

	// Enter DOWN once, then hold a too-deep angle (87 is within the
	// phase's DOWN band [85,100] but below the error band's Min of 90).
	extractor.push(squatKneeFrame(87))
	outcome, cerr := mgr.AnalyzeFrame(id, "active", []byte("frame"))
	require.Nil(t, cerr)
	codes := []string{outcome.Code}

	const numFrames = 20
	for i := 1; i < numFrames; i++ {
		extractor.push(squatKneeFrame(87))
		outcome, cerr := mgr.AnalyzeFrame(id, "active", []byte("frame"))
		require.Nil(t, cerr)
		codes = append(codes, outcome.Code)
	}

	var emissions []int
	for i, c := range codes {
		if c != string(model.FeedbackSilent) && c != string(model.FeedbackValid) {
			emissions = append(emissions, i)
			assert.Equal(t, string(model.SquatTooDeep), c)
		}
	}
	require.NotEmpty(t, emissions, "a sustained biomechanical error must eventually surface feedback")
	assert.GreaterOrEqual(t, emissions[0], threshold-1, "no emission can occur before the error streak reaches bio_feedback_threshold")
	for i := 1; i < len(emissions); i++ {
		assert.GreaterOrEqual(t, emissions[i]-emissions[i-1], cooldown+1, "consecutive emissions must be spaced at least cooldown_frames+1 apart")
	}
}
