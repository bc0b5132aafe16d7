// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes the Prometheus metrics of the
// deliberation pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boardroom"

var (
	// SessionsStarted counts sessions by the machine they were routed to.
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Sessions started, labeled by meeting type.",
	}, []string{"meeting"})

	// SessionsTerminal counts sessions reaching each terminal phase.
	SessionsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_terminal_total",
		Help:      "Sessions completed, labeled by terminal phase.",
	}, []string{"phase"})

	// ActiveSessions tracks sessions currently being driven.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently running or suspended at a checkpoint.",
	})

	// PhaseTransitions counts every validated phase change.
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "phase_transitions_total",
		Help:      "Phase transitions applied, labeled by target phase.",
	}, []string{"phase"})

	// TranscriptTurns counts recorded debate and discussion turns.
	TranscriptTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcript_turns_total",
		Help:      "Transcript entries recorded, labeled by speaker role.",
	}, []string{"speaker"})

	// CheckpointsExpired counts hearings that timed out waiting for a
	// human verdict.
	CheckpointsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkpoints_expired_total",
		Help:      "Human checkpoints that expired without a verdict.",
	})

	// PipelineErrors counts machine runs that failed with an error.
	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_errors_total",
		Help:      "Machine runs that ended in an error, labeled by meeting type.",
	}, []string{"meeting"})
)
