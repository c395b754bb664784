/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package v1alpha1 defines the ClusterExternalIPSource API types, their
// validation rules, and the embedded CRD manifest.
//
// The types mirror the CRD schema exactly; SolverConfig is a union struct
// where exactly one member is set, matching the Kubernetes API convention
// for one-of fields.
package v1alpha1
