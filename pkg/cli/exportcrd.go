/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
)

func exportCRDCmd() *cli.Command {
	return &cli.Command{
		Name:      "export-crd",
		Usage:     "Write the CustomResourceDefinition manifests to a directory",
		ArgsUsage: "OUTPUT_DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-version",
				Usage: "Which version of CRDs to export",
				Value: v1alpha1.Version,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one OUTPUT_DIR argument, got %d", cmd.NArg())
			}
			if v := cmd.String("api-version"); v != v1alpha1.Version {
				return fmt.Errorf("unknown api version: %q", v)
			}

			path := filepath.Join(cmd.Args().First(), v1alpha1.CRDManifestName)
			if err := os.WriteFile(path, v1alpha1.CRDManifest(), 0o644); err != nil {
				return fmt.Errorf("unable to write CRD manifest: %w", err)
			}
			return nil
		},
	}
}
