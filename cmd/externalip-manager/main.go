/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package main

import "github.com/spacebird-dev/externalip-manager/pkg/cli"

func main() {
	cli.Execute()
}
