// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "time"

// BoardroomConfig is the root configuration document. It is loaded once
// from YAML at startup; the decision thresholds may additionally be
// hot-reloaded while the service runs (see Watch).
type BoardroomConfig struct {
	// Thresholds drive the auto-judge policy.
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Oracle controls how role agents talk to the reasoning backend.
	Oracle OracleConfig `yaml:"oracle"`

	// Sandbox controls isolated execution of generated repair code.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Discussion controls the free-discussion (open floor) variant.
	Discussion DiscussionConfig `yaml:"discussion"`

	// Checkpoint controls the human-decision suspension point.
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Storage configures the local session store.
	Storage StorageConfig `yaml:"storage"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ThresholdConfig holds the auto-judge knobs. The veto escalation count
// (2) and the deliberation iteration semantics are fixed policy, not
// configuration; only the numeric thresholds here are tunable.
type ThresholdConfig struct {
	// ProfitPct is the minimum projected profit percentage for
	// auto-approval.
	ProfitPct float64 `yaml:"profit_pct" validate:"gte=0"`

	// RiskScore is the maximum tolerated risk score (1-5 scale) for
	// auto-approval.
	RiskScore int `yaml:"risk_score" validate:"gte=1,lte=5"`

	// MaxIterations bounds the propose/revise cycle before a session is
	// escalated to a hearing.
	MaxIterations int `yaml:"max_iterations" validate:"gte=1"`
}

// OracleConfig bounds calls into the reasoning backend.
type OracleConfig struct {
	// Backend selects the LLM client: "openai", "ollama", or "scripted".
	Backend string `yaml:"backend"`

	// TimeoutSeconds is the per-call deadline.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=1"`

	// MaxRetries is the number of attempts (including the first) at the
	// role-agent boundary before the error is surfaced to the pipeline.
	MaxRetries int `yaml:"max_retries" validate:"gte=1"`

	// InitialBackoffMillis is the first retry wait; doubles per attempt.
	InitialBackoffMillis int `yaml:"initial_backoff_millis" validate:"gte=1"`
}

// SandboxConfig bounds the self-healing test environment.
type SandboxConfig struct {
	// Interpreter runs candidate repair code (default python3).
	Interpreter string `yaml:"interpreter"`

	// TimeoutSeconds is the wall-clock limit per sandbox run. On expiry
	// the process group is killed, never abandoned.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=1"`
}

// DiscussionConfig bounds the open-floor chat variant.
type DiscussionConfig struct {
	// MaxTurns caps the number of speaking turns in one session.
	MaxTurns int `yaml:"max_turns" validate:"gte=1"`

	// ConsecutivePassCap ends the session after this many pass turns
	// in a row.
	ConsecutivePassCap int `yaml:"consecutive_pass_cap" validate:"gte=1"`
}

// CheckpointConfig governs the indefinite human suspension point in the
// adversarial hearing. The source system had no deadline at all; we add
// one so suspended sessions cannot pin resources forever.
type CheckpointConfig struct {
	// DeadlineHours is how long a hearing waits for the human verdict.
	// A resume after the deadline routes to the conservative terminal
	// phase instead of honoring the late verdict.
	DeadlineHours int `yaml:"deadline_hours" validate:"gte=1"`
}

// StorageConfig configures the BadgerDB session store.
type StorageConfig struct {
	// Path is the directory for session data. Supports ~ expansion.
	Path string `yaml:"path"`

	// InMemory disables persistence; used in tests.
	InMemory bool `yaml:"in_memory"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

// DefaultConfig returns the configuration the service runs with when no
// file exists yet. The numbers mirror the deployed system's defaults.
func DefaultConfig() BoardroomConfig {
	return BoardroomConfig{
		Thresholds: ThresholdConfig{
			ProfitPct:     20.0,
			RiskScore:     2,
			MaxIterations: 5,
		},
		Oracle: OracleConfig{
			Backend:              "ollama",
			TimeoutSeconds:       120,
			MaxRetries:           3,
			InitialBackoffMillis: 1000,
		},
		Sandbox: SandboxConfig{
			Interpreter:    "python3",
			TimeoutSeconds: 30,
		},
		Discussion: DiscussionConfig{
			MaxTurns:           15,
			ConsecutivePassCap: 3,
		},
		Checkpoint: CheckpointConfig{
			DeadlineHours: 24,
		},
		Storage: StorageConfig{
			Path: "~/.boardroom/sessions",
		},
		Server: ServerConfig{
			Port: 12280,
		},
		LogLevel: "info",
	}
}

// Timeout returns the oracle deadline as a duration.
func (c OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InitialBackoff returns the first retry wait as a duration.
func (c OracleConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMillis) * time.Millisecond
}

// Timeout returns the sandbox wall-clock limit as a duration.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Deadline returns the checkpoint deadline as a duration.
func (c CheckpointConfig) Deadline() time.Duration {
	return time.Duration(c.DeadlineHours) * time.Hour
}
