/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package k8s groups Kubernetes integration: client construction and
// Event publication.
package k8s
