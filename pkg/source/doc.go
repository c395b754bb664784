/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package source compiles ClusterExternalIPSource custom resources into
// queryable address sources and caches them between reconciliation runs.
package source
