// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history implements HistoryData, the rolling per-session
// state, and the Manager that is the only writer to it. Every other
// pipeline stage reads history but never mutates it directly.
//
// Grounded on spec.md §3 (DATA MODEL) and §4.7 (recording a phase
// transition), cross-checked against
// original_source/Server/Pipeline/PipelineProcessor.py's call sites
// into the (unretrieved) HistoryManager.
package history

import (
	"time"

	"github.com/bodytrack/coachd/internal/coaching/model"
)

// FrameRecord is a single accepted frame.
type FrameRecord struct {
	FrameID   string
	Timestamp time.Time
	Landmarks model.LandmarkMatrix
	Joints    map[string]float64
	Errors    []model.DetectedErrorCode
}

// TransitionRecord is one phase-to-phase change.
type TransitionRecord struct {
	PhaseFrom model.PhaseType
	PhaseTo   model.PhaseType
	Timestamp time.Time
	FrameID   string
	Joints    map[string]float64
}

// PhaseDurationRecord is a closed (or session-end-truncated) phase span.
type PhaseDurationRecord struct {
	Phase      model.PhaseType
	StartTime  time.Time
	EndTime    time.Time
	HasEndTime bool
	FrameStart string
	FrameEnd   string
}

func (r PhaseDurationRecord) Duration() time.Duration {
	if !r.HasEndTime {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// RepRecord is a completed or currently-open repetition.
type RepRecord struct {
	StartTime time.Time
	EndTime   time.Time
	HasEnd    bool
	HasError  bool
	Errors    []model.DetectedErrorCode
	Notified  map[model.FeedbackCode]struct{}
}

func (r RepRecord) Duration() time.Duration {
	if !r.HasEnd {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Data is the full rolling history for one session, per spec.md §3.
type Data struct {
	Frames              []FrameRecord
	LastValidFrame      *FrameRecord
	ConsecutiveOKFrames int

	PhaseState              model.PhaseType
	HasPhaseState           bool
	PhaseTransitions        []TransitionRecord
	PhaseDurations          []PhaseDurationRecord
	CurrentTransitionIndex  int

	BadFrameCounters map[model.Quality]int
	BadFrameStreaks  map[model.Quality]int
	BadFramesLog     []model.Quality
	FramesSinceLastValid int
	InitialPhaseCounter  int

	ErrorCounters map[model.DetectedErrorCode]int
	ErrorStreaks  map[model.DetectedErrorCode]int

	RepCount   int
	Repetitions []RepRecord
	CurrentRep *RepRecord

	ExerciseStartTime   time.Time
	HasExerciseStart    bool
	ExerciseEndTime     time.Time
	HasExerciseEnd      bool
	PauseSessionTimestamp time.Time
	IsPaused              bool
	PausesDurations       time.Duration
	ExerciseFinalDuration time.Duration

	FramesSinceLastFeedback int
	LowMotionStreak         int
	IsCameraStable          bool
	PositionSide            model.PositionSide
}

// New returns a zero-valued, ready-to-use Data.
func New() *Data {
	return &Data{
		BadFrameCounters: make(map[model.Quality]int),
		BadFrameStreaks:  make(map[model.Quality]int),
		ErrorCounters:    make(map[model.DetectedErrorCode]int),
		ErrorStreaks:     make(map[model.DetectedErrorCode]int),
		PositionSide:     model.SideUnknown,
	}
}

// Limits bounds the rolling collections; zero means unbounded.
type Limits struct {
	FramesWindow int
	BadFrameLog  int
}

// Manager is the sole writer to Data. A Manager is bound to exactly
// one session's history for its lifetime.
type Manager struct {
	data   *Data
	limits Limits
	now    func() time.Time
}

// NewManager constructs a Manager over data, using nowFn for all
// timestamps (tests may inject a deterministic clock).
func NewManager(data *Data, limits Limits, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{data: data, limits: limits, now: nowFn}
}

// Data exposes the underlying state for read-only consumption by
// other stages.
func (m *Manager) Data() *Data { return m.data }

// IsStateOK reports whether the most recently processed frame was
// accepted (history "OK" per spec.md §4.9).
func (m *Manager) IsStateOK() bool {
	return m.data.FramesSinceLastValid == 0 && m.data.LastValidFrame != nil
}

// ResetConsecutiveOK clears the INIT-stage visibility streak.
func (m *Manager) ResetConsecutiveOK() {
	m.data.ConsecutiveOKFrames = 0
}

// IncrementConsecutiveOK advances the INIT-stage visibility streak and
// returns its new value.
func (m *Manager) IncrementConsecutiveOK() int {
	m.data.ConsecutiveOKFrames++
	return m.data.ConsecutiveOKFrames
}

// SetCameraStable records that the INIT calibration threshold has been met.
func (m *Manager) SetCameraStable(v bool) { m.data.IsCameraStable = v }

// SetPositionSide records the side determined during calibration.
func (m *Manager) SetPositionSide(side model.PositionSide) { m.data.PositionSide = side }

// ResetInitialPhaseCounter clears the READY-stage correct-phase streak.
func (m *Manager) ResetInitialPhaseCounter() {
	m.data.InitialPhaseCounter = 0
}

// IncrementInitialPhaseCounter advances the READY-stage correct-phase
// streak and returns its new value.
func (m *Manager) IncrementInitialPhaseCounter() int {
	m.data.InitialPhaseCounter++
	return m.data.InitialPhaseCounter
}

// SeedInitialPhase stores the configured initial phase once, when the
// session advances from READY to ACTIVE. It is a no-op if a phase is
// already stored.
func (m *Manager) SeedInitialPhase(phase model.PhaseType) {
	if !m.data.HasPhaseState {
		m.data.PhaseState = phase
		m.data.HasPhaseState = true
	}
}

// LowMotionStreak accessors back the phase detector's low-motion gating.
func (m *Manager) LowMotionStreak() int { return m.data.LowMotionStreak }

func (m *Manager) ResetLowMotionStreak() { m.data.LowMotionStreak = 0 }

func (m *Manager) IncrementLowMotionStreak() { m.data.LowMotionStreak++ }

// RecordValidFrame appends an accepted frame, resets the invalid-frame
// streak, and advances the consecutive-OK counter.
func (m *Manager) RecordValidFrame(frameID string, lm model.LandmarkMatrix, joints map[string]float64) {
	rec := FrameRecord{FrameID: frameID, Timestamp: m.now(), Landmarks: lm, Joints: joints}
	m.data.Frames = append(m.data.Frames, rec)
	if m.limits.FramesWindow > 0 && len(m.data.Frames) > m.limits.FramesWindow {
		m.data.Frames = m.data.Frames[len(m.data.Frames)-m.limits.FramesWindow:]
	}
	m.data.LastValidFrame = &rec
	m.data.FramesSinceLastValid = 0
	m.data.ConsecutiveOKFrames++

	for q := range m.data.BadFrameStreaks {
		m.data.BadFrameStreaks[q] = 0
	}
}

// RecordInvalidFrame increments the invalid-frame bookkeeping for a
// single non-OK quality verdict, resetting every other streak.
func (m *Manager) RecordInvalidFrame(q model.Quality) {
	m.data.ConsecutiveOKFrames = 0
	m.data.FramesSinceLastValid++
	m.data.BadFrameCounters[q]++
	for k := range m.data.BadFrameStreaks {
		if k == q {
			m.data.BadFrameStreaks[k]++
		} else {
			m.data.BadFrameStreaks[k] = 0
		}
	}
	if _, ok := m.data.BadFrameStreaks[q]; !ok {
		m.data.BadFrameStreaks[q] = 1
	}

	m.data.BadFramesLog = append(m.data.BadFramesLog, q)
	if m.limits.BadFrameLog > 0 && len(m.data.BadFramesLog) > m.limits.BadFrameLog {
		m.data.BadFramesLog = m.data.BadFramesLog[len(m.data.BadFramesLog)-m.limits.BadFrameLog:]
	}
}

// AddFrameError records a single detected-error code against the
// current frame's counters and streaks.
func (m *Manager) AddFrameError(code model.DetectedErrorCode) {
	m.data.ErrorCounters[code]++
	for k := range m.data.ErrorStreaks {
		if k == code {
			continue
		}
		m.data.ErrorStreaks[k] = 0
	}
	m.data.ErrorStreaks[code]++

	if m.data.CurrentRep != nil && code.IsBiomechanical() {
		m.data.CurrentRep.Errors = append(m.data.CurrentRep.Errors, code)
		m.data.CurrentRep.HasError = true
	}
}

// MarkFeedbackEmitted implements spec.md §4.9's cooldown bookkeeping:
// SILENT and VALID never reset the cooldown counter; anything else does.
func (m *Manager) MarkFeedbackEmitted(code model.FeedbackCode) {
	if code == model.FeedbackSilent || code == model.FeedbackValid {
		m.data.FramesSinceLastFeedback++
		return
	}
	m.data.FramesSinceLastFeedback = 0
	if m.data.CurrentRep != nil {
		if m.data.CurrentRep.Notified == nil {
			m.data.CurrentRep.Notified = make(map[model.FeedbackCode]struct{})
		}
		m.data.CurrentRep.Notified[code] = struct{}{}
	}
}

// RecordPhaseTransition implements spec.md §4.7 verbatim: phase
// bookkeeping, rep-boundary detection, and phase-duration closing.
func (m *Manager) RecordPhaseTransition(exercise model.ExerciseType, newPhase model.PhaseType, frameID string, joints map[string]float64, transitionOrder []model.PhaseType) {
	now := m.now()

	if !m.data.HasPhaseState {
		m.data.PhaseState = newPhase
		m.data.HasPhaseState = true
		return
	}
	if newPhase == m.data.PhaseState {
		return
	}

	i := m.data.CurrentTransitionIndex
	var nextPhase model.PhaseType
	hasNext := i+1 < len(transitionOrder)
	if hasNext {
		nextPhase = transitionOrder[i+1]
	}
	initialPhase := model.PhaseType("")
	if len(transitionOrder) > 0 {
		initialPhase = transitionOrder[0]
	}

	switch {
	case hasNext && newPhase == nextPhase && newPhase != initialPhase:
		if i == 0 {
			m.data.CurrentRep = &RepRecord{StartTime: now}
		}
		m.data.CurrentTransitionIndex++
	case newPhase == initialPhase && i != 0:
		rep := RepRecord{StartTime: now, EndTime: now, HasEnd: true}
		if m.data.CurrentRep != nil {
			rep = *m.data.CurrentRep
			rep.EndTime = now
			rep.HasEnd = true
		}
		m.data.Repetitions = append(m.data.Repetitions, RepRecord{
			StartTime: rep.StartTime,
			EndTime:   rep.EndTime,
			HasEnd:    true,
			HasError:  rep.HasError,
			Errors:    rep.Errors,
			Notified:  rep.Notified,
		})
		m.data.RepCount++
		m.data.CurrentRep = nil
		m.data.CurrentTransitionIndex = 0
	default:
		m.data.CurrentTransitionIndex = 0
	}

	if len(m.data.PhaseTransitions) > 0 {
		prev := m.data.PhaseTransitions[len(m.data.PhaseTransitions)-1]
		m.data.PhaseDurations = append(m.data.PhaseDurations, PhaseDurationRecord{
			Phase:      m.data.PhaseState,
			StartTime:  prev.Timestamp,
			EndTime:    now,
			HasEndTime: true,
			FrameStart: prev.FrameID,
			FrameEnd:   frameID,
		})
	}

	m.data.PhaseTransitions = append(m.data.PhaseTransitions, TransitionRecord{
		PhaseFrom: m.data.PhaseState,
		PhaseTo:   newPhase,
		Timestamp: now,
		FrameID:   frameID,
		Joints:    joints,
	})
	m.data.PhaseState = newPhase
}

// StartExercise stamps the exercise start time, called once on the
// session's ACTIVE transition.
func (m *Manager) StartExercise() {
	m.data.ExerciseStartTime = m.now()
	m.data.HasExerciseStart = true
}

// Pause stamps the pause start time.
func (m *Manager) Pause() {
	m.data.PauseSessionTimestamp = m.now()
	m.data.IsPaused = true
}

// Resume accumulates the elapsed pause duration and clears the open pause.
func (m *Manager) Resume() {
	if m.data.IsPaused {
		m.data.PausesDurations += m.now().Sub(m.data.PauseSessionTimestamp)
		m.data.IsPaused = false
	}
}

// End stamps the exercise end time and computes the final duration,
// net of accumulated pause time.
func (m *Manager) End() {
	end := m.now()
	m.data.ExerciseEndTime = end
	m.data.HasExerciseEnd = true
	if m.data.HasExerciseStart {
		m.data.ExerciseFinalDuration = end.Sub(m.data.ExerciseStartTime) - m.data.PausesDurations
		if m.data.ExerciseFinalDuration < 0 {
			m.data.ExerciseFinalDuration = 0
		}
	}
}
