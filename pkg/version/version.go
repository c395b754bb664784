/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package version carries build metadata injected via ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of the build, overridden with
	// -ldflags "-X .../pkg/version.Version=v1.2.3".
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
