// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus collectors for the coaching
// server's session and pipeline concerns.
//
// Grounded on the teacher's promauto-based collector style (see
// internal/ratelimit/limiter.go's ratelimit_exceeded_total counter),
// generalized from the streaming domain's job/stream counters to
// session/frame/pipeline counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coachd"

var (
	// SessionsTotal counts sessions by terminal or transitional event.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Total sessions by lifecycle event.",
	}, []string{"event"})

	// ActiveSessions is the current number of ACTIVE sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of sessions in the ACTIVE state.",
	})

	// FramesTotal counts analyzed frames by exercise and outcome code.
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Total frames analyzed, by exercise and resulting code.",
	}, []string{"exercise", "code"})

	// PipelineStageDuration measures wall-clock time of each orchestrator stage.
	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of each pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// BiomechanicalErrorsTotal counts detected errors by exercise and code.
	BiomechanicalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "biomechanical_errors_total",
		Help:      "Total biomechanical errors detected, by exercise and code.",
	}, []string{"exercise", "code"})

	// SessionsReapedTotal counts cleanup-task evictions by reason.
	SessionsReapedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_reaped_total",
		Help:      "Total sessions evicted by the cleanup task, by reason.",
	}, []string{"reason"})

	// circuitBreakerState reports each breaker's current state as a label.
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state: 1 on the series whose state label is current, 0 on the others.",
	}, []string{"name", "state"})

	// circuitBreakerTripsTotal counts transitions into the open state.
	circuitBreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total circuit breaker trips into the open state, by reason.",
	}, []string{"name", "reason"})
)

// SetCircuitBreakerState records the named breaker's state in label
// form: the series for state is set to 1 and the breaker's other two
// state series to 0.
func SetCircuitBreakerState(name, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		circuitBreakerState.WithLabelValues(name, s).Set(0)
	}
	circuitBreakerState.WithLabelValues(name, state).Set(1)
}

// SetCircuitBreakerStatus is kept alongside SetCircuitBreakerState for
// compatibility with callers that track the numeric state directly;
// coachd's dashboards key off the label form above.
func SetCircuitBreakerStatus(_ string, _ int) {}

// RecordCircuitBreakerTrip increments the trip counter for name/reason.
func RecordCircuitBreakerTrip(name, reason string) {
	circuitBreakerTripsTotal.WithLabelValues(name, reason).Inc()
}

// ObserveStage is a small helper mirroring the teacher's
// defer-timed-observation style in its transcoder/admission packages.
func ObserveStage(stage string, start time.Time) {
	PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
