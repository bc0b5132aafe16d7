// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation and round-trip.
func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".boardroom", "boardroom.yaml")

	require.NoError(t, createDefault(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var cfg BoardroomConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))

	assert.Equal(t, 20.0, cfg.Thresholds.ProfitPct)
	assert.Equal(t, 2, cfg.Thresholds.RiskScore)
	assert.Equal(t, 5, cfg.Thresholds.MaxIterations)
	assert.Equal(t, 15, cfg.Discussion.MaxTurns)
	assert.Equal(t, 3, cfg.Discussion.ConsecutivePassCap)
	assert.Equal(t, 24, cfg.Checkpoint.DeadlineHours)
}

// TestReadFile_PartialOverride verifies that a sparse file keeps the
// defaults for everything it doesn't mention.
func TestReadFile_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  profit_pct: 35.5\n"), 0644))

	cfg, err := readFile(path)
	require.NoError(t, err)

	assert.Equal(t, 35.5, cfg.Thresholds.ProfitPct)
	// Untouched sections keep defaults
	assert.Equal(t, 2, cfg.Thresholds.RiskScore)
	assert.Equal(t, "python3", cfg.Sandbox.Interpreter)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := readFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestApplyEnvOverrides verifies deployment env vars win over the file.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BOARDROOM_PROFIT_THRESHOLD", "42.0")
	t.Setenv("BOARDROOM_RISK_THRESHOLD", "3")
	t.Setenv("BOARDROOM_MAX_ITERATIONS", "7")
	t.Setenv("BOARDROOM_ORACLE_BACKEND", " OpenAI ")
	t.Setenv("BOARDROOM_PORT", "9999")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 42.0, cfg.Thresholds.ProfitPct)
	assert.Equal(t, 3, cfg.Thresholds.RiskScore)
	assert.Equal(t, 7, cfg.Thresholds.MaxIterations)
	assert.Equal(t, "openai", cfg.Oracle.Backend)
	assert.Equal(t, 9999, cfg.Server.Port)
}

// TestApplyEnvOverrides_IgnoresGarbage verifies malformed values are
// silently skipped rather than zeroing the config.
func TestApplyEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("BOARDROOM_PROFIT_THRESHOLD", "not-a-number")
	t.Setenv("BOARDROOM_RISK_THRESHOLD", "two")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 20.0, cfg.Thresholds.ProfitPct)
	assert.Equal(t, 2, cfg.Thresholds.RiskScore)
}

// TestValidation rejects out-of-range thresholds.
func TestValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.RiskScore = 9 // scale is 1-5
	assert.Error(t, validate.Struct(cfg))

	cfg = DefaultConfig()
	cfg.Thresholds.MaxIterations = 0
	assert.Error(t, validate.Struct(cfg))

	assert.NoError(t, validate.Struct(DefaultConfig()))
}

// TestDurationHelpers verifies the duration conversions.
func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "2m0s", cfg.Oracle.Timeout().String())
	assert.Equal(t, "1s", cfg.Oracle.InitialBackoff().String())
	assert.Equal(t, "30s", cfg.Sandbox.Timeout().String())
	assert.Equal(t, "24h0m0s", cfg.Checkpoint.Deadline().String())
}
