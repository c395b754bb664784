/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package errors provides structured error types with classification codes
// shared across the manager, solvers, and CLI. Codes allow callers to react
// to a failure class (rate limited, invalid source, kube API error) without
// string matching.
package errors
