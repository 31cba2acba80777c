// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus collectors for playback sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionTransitions counts lifecycle transitions by edge.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlswatch_session_transitions_total",
		Help: "Playback session lifecycle transitions",
	}, []string{"from", "to", "event"})

	// SessionsActive tracks sessions holding a live engine handle.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hlswatch_sessions_active",
		Help: "Playback sessions with an attached engine handle",
	})

	// RecoveryActions counts recovery decisions taken for fatal engine errors.
	RecoveryActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlswatch_recovery_actions_total",
		Help: "Recovery actions taken by the session controller",
	}, []string{"action", "category"})

	// EngineWarnings counts non-fatal problems surfaced to callers.
	EngineWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlswatch_engine_warnings_total",
		Help: "Non-fatal playback warnings by kind",
	}, []string{"kind"})

	// StaleEventsDropped counts callbacks discarded because of a generation mismatch.
	StaleEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlswatch_stale_events_dropped_total",
		Help: "Engine or sink events discarded after their handle was superseded",
	}, []string{"source"})
)

// RecordTransition records a lifecycle edge.
func RecordTransition(from, to, event string) {
	SessionTransitions.WithLabelValues(from, to, event).Inc()
}

// IncRecoveryAction records a recovery decision.
func IncRecoveryAction(action, category string) {
	RecoveryActions.WithLabelValues(action, category).Inc()
}

// IncWarning records a non-fatal warning.
func IncWarning(kind string) {
	EngineWarnings.WithLabelValues(kind).Inc()
}

// IncStaleEvent records a discarded stale callback.
func IncStaleEvent(source string) {
	StaleEventsDropped.WithLabelValues(source).Inc()
}
