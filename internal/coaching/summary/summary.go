// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package summary builds the end-of-session SummaryResponse described
// in spec.md §4.10.
//
// Grounded on original_source/Server/Management/SessionSummaryManager.py
// (behavior recovered from spec.md §4.10, since the file itself was not
// among the retrieved original_source pages).
package summary

import (
	"sort"
	"time"

	"github.com/bodytrack/coachd/internal/coaching/history"
	"github.com/bodytrack/coachd/internal/coaching/model"
)

// Config holds the thresholds loaded from summary.* configuration keys.
type Config struct {
	NumberOfTopErrors int
	PenaltyPerError   float64
	MaxGrade          float64
}

// RepBreakdown mirrors a single completed repetition for the response.
type RepBreakdown struct {
	StartTime        time.Time
	EndTime          time.Time
	DurationSeconds  float64
	IsCorrect        bool
	Errors           []model.DetectedErrorCode
}

// Response is the full SummaryResponse payload.
type Response struct {
	SessionID                 string
	ExerciseType              model.ExerciseType
	SessionDurationSeconds    float64
	NumberOfReps              int
	AverageRepDurationSeconds float64
	OverallGrade              float64
	RepBreakdown              []RepBreakdown
	AggregatedErrors          map[model.DetectedErrorCode]int
	Recommendations           []string
}

// recommendations maps a detected error to a fixed, human-readable
// coaching cue. Exhaustive over the codes defined in model.DetectedErrorCode.
var recommendations = map[model.DetectedErrorCode]string{
	model.SquatNotDeepEnough:    "Lower your hips further to reach full depth.",
	model.SquatTooDeep:          "Avoid sinking past the point of control; rise earlier in the descent.",
	model.SquatKneesInward:      "Keep your knees tracking over your toes.",
	model.SquatKneesOutward:     "Ease off on pushing your knees outward.",
	model.SquatHeelsOffGround:   "Keep your heels planted through the whole rep.",
	model.SquatWeightForward:    "Shift your weight back toward your heels.",
	model.SquatChestLeanForward: "Keep your chest more upright.",
	model.SquatBackRounded:      "Keep your back neutral, not rounded.",
	model.SquatHipShiftLeft:     "Keep your hips level; avoid shifting left.",
	model.SquatHipShiftRight:    "Keep your hips level; avoid shifting right.",

	model.CurlTooShortTop:          "Curl all the way to the top of the movement.",
	model.CurlNotFullFlexion:       "Fully flex your elbow at the top of the curl.",
	model.CurlElbowsMovingForward:  "Keep your elbows pinned at your sides.",
	model.CurlElbowsMovingBackward: "Keep your elbows from drifting behind your torso.",
	model.CurlLeaningForward:       "Avoid leaning forward to generate momentum.",
	model.CurlLeaningBackward:      "Avoid leaning back to swing the weight up.",
	model.CurlWristNotNeutral:      "Keep your wrist neutral through the curl.",

	model.LateralArmsTooLow:        "Raise your arms closer to shoulder height.",
	model.LateralArmsTooHigh:       "Stop the raise at shoulder height; avoid shrugging higher.",
	model.LateralElbowsBentTooMuch: "Keep a slight, consistent bend in your elbows.",
	model.LateralTorsoSwaying:      "Keep your torso still; avoid swaying to lift the weight.",
	model.LateralPartialRep:        "Complete the full range of motion on every rep.",
}

// Build implements spec.md §4.10.
func Build(sessionID string, exercise model.ExerciseType, data *history.Data, cfg Config) Response {
	breakdown := make([]RepBreakdown, 0, len(data.Repetitions))
	var totalRepSeconds float64
	for _, r := range data.Repetitions {
		d := r.Duration().Seconds()
		totalRepSeconds += d
		breakdown = append(breakdown, RepBreakdown{
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			DurationSeconds: d,
			IsCorrect:       !r.HasError,
			Errors:          r.Errors,
		})
	}

	avg := 0.0
	if len(data.Repetitions) > 0 {
		avg = totalRepSeconds / float64(len(data.Repetitions))
	}

	// Only biomechanical errors count against the grade; NoBiomechanicalError
	// and NotReadyForAnalysis are per-frame bookkeeping counters, not
	// technique faults, so a clean session grades at cfg.MaxGrade.
	totalErrors := 0
	for code, count := range data.ErrorCounters {
		if code.IsBiomechanical() {
			totalErrors += count
		}
	}
	grade := cfg.MaxGrade - float64(totalErrors)*cfg.PenaltyPerError
	if grade < 0 {
		grade = 0
	}

	return Response{
		SessionID:                 sessionID,
		ExerciseType:              exercise,
		SessionDurationSeconds:    data.ExerciseFinalDuration.Seconds(),
		NumberOfReps:              data.RepCount,
		AverageRepDurationSeconds: avg,
		OverallGrade:              grade,
		RepBreakdown:              breakdown,
		AggregatedErrors:          data.ErrorCounters,
		Recommendations:           topRecommendations(data.ErrorCounters, cfg.NumberOfTopErrors),
	}
}

func topRecommendations(counters map[model.DetectedErrorCode]int, topN int) []string {
	type entry struct {
		code  model.DetectedErrorCode
		count int
	}
	entries := make([]entry, 0, len(counters))
	for code, count := range counters {
		if !code.IsBiomechanical() {
			continue
		}
		entries = append(entries, entry{code, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].code < entries[j].code
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if msg, ok := recommendations[e.code]; ok {
			out = append(out, msg)
		}
	}
	return out
}
