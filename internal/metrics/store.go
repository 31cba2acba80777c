// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RecentStoreOps counts recent-streams store operations.
var RecentStoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hlswatch_recent_store_ops_total",
	Help: "Recent-streams store operations by backend and result",
}, []string{"op", "backend", "result"})

// IncStoreOp records one store operation.
func IncStoreOp(op, backend string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	RecentStoreOps.WithLabelValues(op, backend, result).Inc()
}
