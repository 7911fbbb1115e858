// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the coachd application.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Session attributes
	SessionIDKey       = "coachd.session.id"
	SessionStatusKey   = "coachd.session.status"
	SessionExerciseKey = "coachd.session.exercise"
	SessionClientIPKey = "coachd.session.client_ip"

	// Frame / pipeline attributes
	FrameIDKey        = "coachd.frame.id"
	FrameExtendedKey  = "coachd.frame.extended_evaluation"
	PipelineStageKey  = "coachd.pipeline.stage"
	AnalyzingStateKey = "coachd.pipeline.analyzing_state"
	FeedbackCodeKey   = "coachd.pipeline.feedback_code"
	PositionSideKey   = "coachd.pipeline.position_side"
	PhaseKey          = "coachd.pipeline.phase"
	DetectedErrorKey  = "coachd.pipeline.detected_error_code"

	// Summary attributes
	SummaryRepsKey  = "coachd.summary.reps"
	SummaryGradeKey = "coachd.summary.grade"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session-identity span attributes.
func SessionAttributes(sessionID, status, exercise, clientIP string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(SessionStatusKey, status))
	}
	if exercise != "" {
		attrs = append(attrs, attribute.String(SessionExerciseKey, exercise))
	}
	if clientIP != "" {
		attrs = append(attrs, attribute.String(SessionClientIPKey, clientIP))
	}
	return attrs
}

// FrameAttributes creates per-frame pipeline span attributes.
func FrameAttributes(frameID string, extended bool, state, code string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(FrameIDKey, frameID),
		attribute.Bool(FrameExtendedKey, extended),
		attribute.String(AnalyzingStateKey, state),
		attribute.String(FeedbackCodeKey, code),
	}
}

// PipelineStageAttributes names the orchestrator stage a span covers.
func PipelineStageAttributes(stage string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PipelineStageKey, stage),
	}
}

// SummaryAttributes creates session-summary span attributes.
func SummaryAttributes(reps int, grade float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(SummaryRepsKey, reps),
		attribute.Float64(SummaryGradeKey, grade),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
