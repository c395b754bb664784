/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the externalip-manager command line interface.
package cli
