/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package client creates the Kubernetes clients used by the manager,
// discovering configuration from kubeconfig or the in-cluster service
// account.
package client
