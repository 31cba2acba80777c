// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ManifestFetchDuration tracks manifest download + parse latency of the headless engine.
var ManifestFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "hlswatch_manifest_fetch_duration_seconds",
	Help:    "Time taken to fetch and parse a manifest",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"result"})

// ObserveManifestFetch records one manifest fetch outcome.
func ObserveManifestFetch(success bool, d time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	ManifestFetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

var (
	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlswatch_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips (transitions to open state)",
	}, []string{"component", "reason"})

	// Hosts are not used as labels; the gauge counts open breakers per component.
	circuitBreakersOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hlswatch_circuit_breakers_open",
		Help: "Number of circuit breakers currently open by component",
	}, []string{"component"})
)

// RecordCircuitBreakerTrip increments the trip counter when a breaker opens.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}

// SetCircuitBreakerState adjusts the open-breaker gauge for a transition.
func SetCircuitBreakerState(component, from, to string) {
	switch {
	case to == "open" && from != "open":
		circuitBreakersOpen.WithLabelValues(component).Inc()
	case from == "open" && to != "open":
		circuitBreakersOpen.WithLabelValues(component).Dec()
	}
}
