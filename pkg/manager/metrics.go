/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "externalip_reconcile_duration_seconds",
			Help:    "Time taken by a complete reconciliation run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "externalip_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"status"},
	)

	patchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "externalip_service_patches_total",
			Help: "Total number of Service externalIPs patch attempts",
		},
		[]string{"status"},
	)

	managedServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "externalip_managed_services",
			Help: "Number of annotated Services seen in the last run",
		},
	)
)
