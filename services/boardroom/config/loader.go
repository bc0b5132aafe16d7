// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and watches the Boardroom configuration.
//
// Configuration lives in a single YAML file (~/.boardroom/boardroom.yaml
// by default, overridable via BOARDROOM_CONFIG). A default file is
// written on first run. Decision thresholds can be hot-reloaded while
// the service runs via Watch; everything else requires a restart.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// Global is the singleton configuration instance. Call Load before
	// reading it. Guarded for hot reload by mu.
	Global BoardroomConfig

	mu   sync.RWMutex
	once sync.Once

	validate = validator.New()
)

// Load ensures the config is loaded into the Global variable.
// Safe to call from multiple packages; only the first call does work.
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

// Snapshot returns a copy of the current configuration. Use this from
// long-running pipelines so a hot reload cannot change thresholds in
// the middle of a session.
func Snapshot() BoardroomConfig {
	mu.RLock()
	defer mu.RUnlock()
	return Global
}

// Path returns the config file location, honoring BOARDROOM_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("BOARDROOM_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".boardroom", "boardroom.yaml"), nil
}

func loadInternal() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	// create it if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Info("First run detected, creating the config", "path", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	cfg, err := readFile(configPath)
	if err != nil {
		return err
	}
	applyEnvOverrides(&cfg)
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	mu.Lock()
	Global = cfg
	mu.Unlock()
	return nil
}

func readFile(path string) (BoardroomConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal the config file: %w", err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets container deployments tune thresholds without
// editing the file. Only the knobs operators actually change at deploy
// time are exposed.
func applyEnvOverrides(cfg *BoardroomConfig) {
	if v := os.Getenv("BOARDROOM_PROFIT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.ProfitPct = f
		}
	}
	if v := os.Getenv("BOARDROOM_RISK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Thresholds.RiskScore = n
		}
	}
	if v := os.Getenv("BOARDROOM_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Thresholds.MaxIterations = n
		}
	}
	if v := os.Getenv("BOARDROOM_ORACLE_BACKEND"); v != "" {
		cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("BOARDROOM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("BOARDROOM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Watch re-reads the threshold section whenever the config file changes
// on disk. Reload failures keep the previous values; they never crash a
// running service. The watcher stops when done is closed.
func Watch(done <-chan struct{}) error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create the config watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save,
	// which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch the config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != configPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := readFile(configPath)
				if err != nil {
					slog.Warn("Config reload failed, keeping previous values", "error", err)
					continue
				}
				applyEnvOverrides(&cfg)
				if err := validate.Struct(cfg); err != nil {
					slog.Warn("Config reload rejected by validation", "error", err)
					continue
				}
				mu.Lock()
				Global.Thresholds = cfg.Thresholds
				Global.Discussion = cfg.Discussion
				mu.Unlock()
				slog.Info("Config thresholds reloaded",
					"profit_pct", cfg.Thresholds.ProfitPct,
					"risk_score", cfg.Thresholds.RiskScore,
					"max_iterations", cfg.Thresholds.MaxIterations)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			}
		}
	}()
	return nil
}
