/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solverQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "externalip_solver_queries_total",
			Help: "Total number of solver queries",
		},
		[]string{"solver", "family", "status"}, // status: success or error
	)

	solverQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "externalip_solver_query_duration_seconds",
			Help:    "Time taken by individual solver queries",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"solver"},
	)
)

func observeQuery(kind string, family Family, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	solverQueriesTotal.WithLabelValues(kind, string(family), status).Inc()
	solverQueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
