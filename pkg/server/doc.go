/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes the manager's operational HTTP endpoints:
// /health and /ready for probes and /metrics for Prometheus scrapes.
package server
