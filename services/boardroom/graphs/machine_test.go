// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// ===== Shared helpers =====

var assertableErr = errors.New("oracle exploded")

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log := logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func testOracleConfig() config.OracleConfig {
	return config.OracleConfig{
		Backend:              "scripted",
		TimeoutSeconds:       5,
		MaxRetries:           1,
		InitialBackoffMillis: 1,
	}
}

func testRegistry(t *testing.T, client *llm.ScriptedClient) *agents.Registry {
	t.Helper()
	return agents.NewRegistry(client, testOracleConfig(), testLogger(t))
}

// ===== StateMachine =====

func TestStateMachine_Transitions(t *testing.T) {
	sm := newStateMachine("test")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseProposing)
	sm.addTransition(datatypes.PhaseProposing, datatypes.PhaseReviewing)

	assert.True(t, sm.CanTransition(datatypes.PhaseInit, datatypes.PhaseProposing))
	assert.False(t, sm.CanTransition(datatypes.PhaseInit, datatypes.PhaseReviewing))
	assert.False(t, sm.CanTransition(datatypes.PhaseReviewing, datatypes.PhaseInit))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "intent")
	require.NoError(t, sm.Transition(rec, datatypes.PhaseProposing))
	assert.Equal(t, datatypes.PhaseProposing, rec.Phase)

	err := sm.Transition(rec, datatypes.PhaseInit)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, datatypes.PhaseProposing, rec.Phase)
}

func TestStateMachine_ValidTransitionsFrom(t *testing.T) {
	sm := newStateMachine("test")
	sm.addTransition(datatypes.PhaseAggregated, datatypes.PhaseRevising)
	sm.addTransition(datatypes.PhaseAggregated, datatypes.PhaseEscalated)

	targets := sm.ValidTransitionsFrom(datatypes.PhaseAggregated)
	assert.ElementsMatch(t, []datatypes.Phase{datatypes.PhaseRevising, datatypes.PhaseEscalated}, targets)
	assert.Empty(t, sm.ValidTransitionsFrom(datatypes.PhaseInit))
}

func TestStateMachine_TerminateValidatesTransition(t *testing.T) {
	sm := newStateMachine("test")
	sm.addTransition(datatypes.PhaseTesting, datatypes.PhaseHealed)

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "intent")
	err := sm.terminate(rec, datatypes.PhaseHealed, "fixed")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, rec.Phase.IsTerminal())
}
