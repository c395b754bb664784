/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package manager drives the reconciliation loop: it discovers Services
// annotated with a ClusterExternalIPSource reference, resolves their
// desired external IPs through the source's solvers, and patches
// spec.externalIPs when the sets diverge. Failures surface as Kubernetes
// Events on the affected object.
package manager
