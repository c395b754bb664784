/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package solver implements the address solvers a ClusterExternalIPSource
// can reference: static lists, DNS hostname lookups, load-balancer ingress
// status, public what-is-my-IP APIs, and masked merges of other solvers.
//
// Solver instances live in a shared Registry keyed by their canonical
// config and address family, so per-solver state like the ipAPI response
// cache is shared across every source referencing the same solver.
package solver
