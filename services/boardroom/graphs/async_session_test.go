// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{ProfitPct: 20.0, RiskScore: 2, MaxIterations: 5}
}

const passingMatrix = `{"profit_pct": 25, "risk_score": 1, "tech_ready": true, "consensus": true, "summary": "strong plan"}`
const failingMatrix = `{"profit_pct": 8, "risk_score": 3, "tech_ready": false, "consensus": false, "summary": "weak plan"}`

// One joint-session round is five oracle calls in fixed order:
// propose, review coo, review cro, review cto, aggregate.
func jointRound(proposal, cooV, croV, ctoV, matrix string) []string {
	return []string{
		proposal,
		"analysis\nVERDICT: " + cooV,
		"analysis\nVERDICT: " + croV,
		"analysis\nVERDICT: " + ctoV,
		matrix,
	}
}

func TestAsyncJoint_AutoApproveFirstRound(t *testing.T) {
	client := llm.NewScriptedClient(jointRound("open two stores", "APPROVE", "APPROVE", "APPROVE", passingMatrix)...)
	m := NewAsyncJointSession(testRegistry(t, client), testThresholds(), testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "expand retail footprint")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseApprovedExecuting, rec.Phase)
	assert.Equal(t, datatypes.L0AutoApproved, rec.L0VerdictValue)
	assert.Equal(t, 0, rec.IterationCount)
	require.Len(t, rec.ProposalBuffer, 1)
	assert.Equal(t, "open two stores", rec.ProposalBuffer[0].Content)
	assert.True(t, rec.DecisionMatrix.Consensus)
	assert.NotEmpty(t, rec.DecisionMatrix.Summary, "the aggregated matrix lands on the record")
	assert.NotEmpty(t, rec.Outcome)
}

func TestAsyncJoint_ReviseThenApprove(t *testing.T) {
	responses := jointRound("draft one", "REJECT", "APPROVE", "APPROVE", failingMatrix)
	responses = append(responses, jointRound("draft two", "APPROVE", "APPROVE", "APPROVE", passingMatrix)...)
	client := llm.NewScriptedClient(responses...)
	m := NewAsyncJointSession(testRegistry(t, client), testThresholds(), testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "expand retail footprint")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseApprovedExecuting, rec.Phase)
	assert.Equal(t, 1, rec.IterationCount)
	// The buffer is append-only and versioned; nothing was truncated.
	require.Len(t, rec.ProposalBuffer, 2)
	assert.Equal(t, 1, rec.ProposalBuffer[0].Version)
	assert.Equal(t, 2, rec.ProposalBuffer[1].Version)
	assert.Equal(t, "draft two", rec.ProposalBuffer[1].Content)
}

func TestAsyncJoint_TwoVetoesEscalate(t *testing.T) {
	client := llm.NewScriptedClient(jointRound("risky draft", "VETO", "VETO", "APPROVE", failingMatrix)...)
	m := NewAsyncJointSession(testRegistry(t, client), testThresholds(), testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "acquire a competitor")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseEscalated, rec.Phase)
	assert.False(t, rec.Phase.IsTerminal())
	assert.Equal(t, 2, rec.VetoCount())
}

func TestAsyncJoint_IterationCapEscalates(t *testing.T) {
	thresholds := config.ThresholdConfig{ProfitPct: 20.0, RiskScore: 2, MaxIterations: 2}

	var responses []string
	for i := 0; i < 3; i++ {
		responses = append(responses, jointRound("draft", "REJECT", "APPROVE", "APPROVE", failingMatrix)...)
	}
	client := llm.NewScriptedClient(responses...)
	m := NewAsyncJointSession(testRegistry(t, client), thresholds, testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "expand retail footprint")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseEscalated, rec.Phase)
	assert.Equal(t, 2, rec.IterationCount)
}

func TestAsyncJoint_ReviewsRunInFixedOrder(t *testing.T) {
	client := llm.NewScriptedClient(jointRound("draft", "APPROVE", "APPROVE", "APPROVE", passingMatrix)...)
	m := NewAsyncJointSession(testRegistry(t, client), testThresholds(), testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "intent")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	require.NoError(t, m.Run(context.Background(), rec))

	calls := client.Calls()
	require.Len(t, calls, 5)
	// Reviews carry each seat's focus in the prompt, in coo, cro, cto order.
	assert.Contains(t, calls[1].Prompt, "operational feasibility")
	assert.Contains(t, calls[2].Prompt, "downside exposure")
	assert.Contains(t, calls[3].Prompt, "technical feasibility")
}

func TestAsyncJoint_OracleFailurePropagates(t *testing.T) {
	client := llm.NewScriptedClient() // defaults to filler text
	client.FailNext(assertableErr)
	m := NewAsyncJointSession(testRegistry(t, client), testThresholds(), testLogger(t))

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "intent")
	rec.MeetingType = datatypes.MeetingAsyncJoint
	err := m.Run(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, assertableErr)
	assert.False(t, rec.Phase.IsTerminal())
}
