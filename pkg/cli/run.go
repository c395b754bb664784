/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/spacebird-dev/externalip-manager/pkg/k8s/client"
	"github.com/spacebird-dev/externalip-manager/pkg/k8s/events"
	"github.com/spacebird-dev/externalip-manager/pkg/manager"
	"github.com/spacebird-dev/externalip-manager/pkg/server"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the reconciliation loop",
		Description: `Periodically scan all Services annotated with
` + manager.AnnotationClusterSource + `
and reconcile their spec.externalIPs against the referenced
ClusterExternalIPSource.`,
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Seconds between reconciliation runs",
				Sources: cli.EnvVars("EXTERNALIP_MANAGER_INTERVAL"),
				Value:   60,
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "Show what actions would be performed without modifying any services",
				Sources: cli.EnvVars("EXTERNALIP_MANAGER_DRY_RUN"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single reconciliation and exit",
			},
			&cli.StringFlag{
				Name:    "kubeconfig",
				Usage:   "Path to kubeconfig file (default: in-cluster config)",
				Sources: cli.EnvVars("KUBECONFIG"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Listen address for health and metrics endpoints",
				Sources: cli.EnvVars("EXTERNALIP_MANAGER_METRICS_ADDR"),
				Value:   server.DefaultAddr,
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file, overridden by flags and env vars",
				Sources: cli.EnvVars("EXTERNALIP_MANAGER_CONFIG"),
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	fileCfg, err := loadFileConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	interval := cmd.Uint("interval")
	if !cmd.IsSet("interval") && fileCfg.Interval > 0 {
		interval = fileCfg.Interval
	}
	dryRun := cmd.Bool("dry-run") || fileCfg.DryRun
	kubeconfig := cmd.String("kubeconfig")
	if kubeconfig == "" {
		kubeconfig = fileCfg.Kubeconfig
	}
	metricsAddr := cmd.String("metrics-addr")
	if !cmd.IsSet("metrics-addr") && fileCfg.MetricsAddr != "" {
		metricsAddr = fileCfg.MetricsAddr
	}

	if dryRun {
		slog.WarnContext(ctx, "running in dry-run mode, no changes will be made")
	}

	clients, err := client.New(kubeconfig)
	if err != nil {
		return err
	}

	rec, shutdownEvents := events.NewRecorder(clients.Typed, manager.FieldManager)
	defer shutdownEvents()

	m := manager.New(manager.Config{
		DryRun:   dryRun,
		Interval: time.Duration(interval) * time.Second,
	}, clients.Typed, clients.Dynamic, rec)

	if cmd.Bool("once") {
		return m.Reconcile(ctx)
	}

	srv := server.New(metricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		err := m.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("manager stopped gracefully")
	return nil
}
