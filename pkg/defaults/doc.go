/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package defaults centralizes timeout and cache-TTL constants so the
// values stay discoverable and consistent across packages.
package defaults
