/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig holds the optional YAML config file options. Flags and
// environment variables take precedence over file values.
type fileConfig struct {
	Interval    uint   `yaml:"interval"`
	DryRun      bool   `yaml:"dryRun"`
	Kubeconfig  string `yaml:"kubeconfig"`
	MetricsAddr string `yaml:"metricsAddr"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return &cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}
