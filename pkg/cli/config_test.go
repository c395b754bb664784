/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
interval: 120
dryRun: true
kubeconfig: /tmp/kubeconfig
metricsAddr: ":9090"
`)

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(120), cfg.Interval)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "/tmp/kubeconfig", cfg.Kubeconfig)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoadFileConfigEmptyPath(t *testing.T) {
	cfg, err := loadFileConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint(0), cfg.Interval)
	assert.False(t, cfg.DryRun)
}

func TestLoadFileConfigEmptyFile(t *testing.T) {
	cfg, err := loadFileConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, uint(0), cfg.Interval)
}

func TestLoadFileConfigRejectsUnknownKeys(t *testing.T) {
	_, err := loadFileConfig(writeConfig(t, "intervall: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse config file")
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	_, err := loadFileConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to read config file")
}
