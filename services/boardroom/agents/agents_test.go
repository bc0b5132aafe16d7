// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

func testOracleConfig() config.OracleConfig {
	return config.OracleConfig{
		Backend:              "scripted",
		TimeoutSeconds:       5,
		MaxRetries:           3,
		InitialBackoffMillis: 1, // keep tests fast
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log := logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func newSession(t *testing.T, intent string) *datatypes.SessionRecord {
	t.Helper()
	return datatypes.NewSessionRecord(datatypes.ModeExecution, intent)
}

func TestSeatAgent_ProposeAppendsNothing(t *testing.T) {
	client := llm.NewScriptedClient("Launch a pilot in two regions.")
	agent := NewGrowthAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "enter the smart-home market")

	p, err := agent.Propose(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "cgo", p.Author)
	assert.Equal(t, "Launch a pilot in two regions.", p.Content)
	// Propose returns the draft; the state machine owns the buffer.
	assert.Empty(t, rec.ProposalBuffer)
}

func TestSeatAgent_ReviewResolvesVerdict(t *testing.T) {
	client := llm.NewScriptedClient("Margins are too thin.\nVERDICT: REJECT")
	agent := NewRiskAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "enter the smart-home market")
	_, err := rec.AppendProposal("cgo", "buy a competitor")
	require.NoError(t, err)

	entry, err := agent.Review(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, datatypes.VerdictReject, entry.Verdict)
	assert.Contains(t, entry.Analysis, "Margins")
}

func TestSeatAgent_DebateSeesOnlyEarlierRounds(t *testing.T) {
	client := llm.NewScriptedClient("The risks outweigh the upside.")
	agent := NewRiskAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "topic")
	require.NoError(t, rec.AppendTranscript(datatypes.TranscriptEntry{Round: 1, Speaker: "cgo", Content: "huge upside"}))
	require.NoError(t, rec.AppendTranscript(datatypes.TranscriptEntry{Round: 2, Speaker: "cro", Content: "stale entry from same round"}))

	entry, err := agent.Debate(context.Background(), rec, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Round)
	assert.Equal(t, "cro", entry.Speaker)

	prompt := client.Calls()[0].Prompt
	assert.Contains(t, prompt, "huge upside")
	assert.NotContains(t, prompt, "stale entry from same round")
}

func TestSeatAgent_DiagnoseRequiresErrorLog(t *testing.T) {
	agent := NewTechnologyAgent(llm.NewScriptedClient(), testOracleConfig(), testLogger(t))
	rec := newSession(t, "fix the scraper")

	_, err := agent.Diagnose(context.Background(), rec)
	assert.Error(t, err)
}

func TestThink_RetriesEmptyCompletionThenSucceeds(t *testing.T) {
	client := llm.NewScriptedClient("   ", "second attempt answer")
	agent := NewGrowthAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "intent")

	p, err := agent.Propose(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "second attempt answer", p.Content)
	assert.Equal(t, 2, client.CallCount())
}

func TestThink_ExhaustedRetriesSurfaceTypedError(t *testing.T) {
	client := llm.NewScriptedClient(" ", " ", " ")
	agent := NewGrowthAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "intent")

	_, err := agent.Propose(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleMalformed)

	var oErr *OracleError
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, "cgo", oErr.Role)
	assert.Equal(t, "propose", oErr.Op)
	assert.Equal(t, 3, oErr.Attempts)
}

func TestThink_NonRetryableFailsFast(t *testing.T) {
	client := llm.NewScriptedClient("unused")
	client.FailNext(errors.New("api key rejected"))
	agent := NewGrowthAgent(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "intent")

	_, err := agent.Propose(context.Background(), rec)
	require.Error(t, err)
	assert.Equal(t, 1, client.CallCount())
}

func TestCoordinator_AggregateParsesMatrix(t *testing.T) {
	client := llm.NewScriptedClient("```json\n" +
		`{"profit_pct": 23.5, "risk_score": 2, "tech_ready": true, "consensus": false, "summary": "split board"}` +
		"\n```")
	gm := NewCoordinator(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "intent")
	_, err := rec.AppendProposal("cgo", "draft")
	require.NoError(t, err)

	matrix, err := gm.Aggregate(context.Background(), rec)
	require.NoError(t, err)
	assert.InDelta(t, 23.5, matrix.ProfitPct, 0.001)
	assert.Equal(t, 2, matrix.RiskScore)
	assert.True(t, matrix.TechReady)
	assert.False(t, matrix.Consensus)
	assert.Equal(t, "split board", matrix.Summary)
}

func TestCoordinator_AggregateRetriesMalformedJSON(t *testing.T) {
	client := llm.NewScriptedClient(
		"I think profit looks fine.", // no JSON at all
		`{"profit_pct": 10, "risk_score": 9, "tech_ready": false, "consensus": true, "summary": "ok"}`,
	)
	gm := NewCoordinator(client, testOracleConfig(), testLogger(t))
	rec := newSession(t, "intent")

	matrix, err := gm.Aggregate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, client.CallCount())
	// Out-of-range risk is clamped, not rejected.
	assert.Equal(t, 5, matrix.RiskScore)
}

func TestCoordinator_ParseIntent(t *testing.T) {
	tests := []struct {
		response string
		want     datatypes.IntentCategory
	}{
		{"TECH_FIX", datatypes.IntentTechFix},
		{"tech_fix", datatypes.IntentTechFix},
		{"COMPLEX_STRATEGY — this spans quarters", datatypes.IntentComplexStrategy},
		{"`NEW_CATEGORY`", datatypes.IntentNewCategory},
	}
	for _, tt := range tests {
		gm := NewCoordinator(llm.NewScriptedClient(tt.response), testOracleConfig(), testLogger(t))
		got, err := gm.ParseIntent(context.Background(), "do a thing")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCoordinator_ParseIntentUnknownLabelFails(t *testing.T) {
	gm := NewCoordinator(llm.NewScriptedClient("WORLD_DOMINATION", "GLOBAL_EXPANSION", "SHRUG"),
		testOracleConfig(), testLogger(t))
	_, err := gm.ParseIntent(context.Background(), "do a thing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleMalformed)
}

func TestCoordinator_CheckConvergence(t *testing.T) {
	rec := newSession(t, "intent")

	gm := NewCoordinator(llm.NewScriptedClient("YES, the board agrees."), testOracleConfig(), testLogger(t))
	converged, err := gm.CheckConvergence(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, converged)

	gm = NewCoordinator(llm.NewScriptedClient("NO\nStill split on pricing."), testOracleConfig(), testLogger(t))
	converged, err = gm.CheckConvergence(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, converged)
}

func TestCoordinator_PickSpeakerValidatesCandidates(t *testing.T) {
	rec := newSession(t, "intent")
	candidates := []string{"cgo", "cro", "coo"}

	gm := NewCoordinator(llm.NewScriptedClient("cro"), testOracleConfig(), testLogger(t))
	speaker, err := gm.PickSpeaker(context.Background(), rec, candidates)
	require.NoError(t, err)
	assert.Equal(t, "cro", speaker)

	gm = NewCoordinator(llm.NewScriptedClient("nobody"), testOracleConfig(), testLogger(t))
	speaker, err = gm.PickSpeaker(context.Background(), rec, candidates)
	require.NoError(t, err)
	assert.Equal(t, "nobody", speaker)

	// A non-candidate is malformed and retried until exhaustion.
	gm = NewCoordinator(llm.NewScriptedClient("the-intern", "the-intern", "the-intern"),
		testOracleConfig(), testLogger(t))
	_, err = gm.PickSpeaker(context.Background(), rec, candidates)
	assert.ErrorIs(t, err, ErrOracleMalformed)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(llm.NewScriptedClient(), testOracleConfig(), testLogger(t))

	assert.NotNil(t, reg.Coordinator())
	assert.Equal(t, "cgo", reg.Proposer().Role())

	for _, role := range []string{"cgo", "coo", "cro", "cto"} {
		agent, err := reg.Seat(role)
		require.NoError(t, err)
		assert.Equal(t, role, agent.Role())
	}

	_, err := reg.Seat("gm")
	assert.Error(t, err)

	order := reg.DebateOrder()
	require.Len(t, order, 4)
	assert.Equal(t, []string{order[0].Role(), order[1].Role(), order[2].Role(), order[3].Role()},
		reg.SeatRoles())
}
