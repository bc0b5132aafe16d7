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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/sandbox"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// ===== Fakes =====

type fakeSandbox struct {
	syntaxValid bool
	results     []sandbox.RunResult
	runs        int
	syntaxCalls int
}

func (f *fakeSandbox) CheckSyntax(_ context.Context, _ string) (sandbox.SyntaxResult, error) {
	f.syntaxCalls++
	if f.syntaxValid {
		return sandbox.SyntaxResult{Valid: true}, nil
	}
	return sandbox.SyntaxResult{Valid: false, Errors: []string{"SyntaxError: invalid syntax"}}, nil
}

func (f *fakeSandbox) Run(_ context.Context, code, testCode string, _ time.Duration) (sandbox.RunResult, error) {
	if code == "" && testCode == "" {
		return sandbox.RunResult{Success: true}, nil
	}
	f.runs++
	if f.runs <= len(f.results) {
		return f.results[f.runs-1], nil
	}
	return sandbox.RunResult{Success: true}, nil
}

type fakeBuilder struct {
	builds int
}

func (f *fakeBuilder) Build(_ context.Context, _ *datatypes.SessionRecord) (agents.RepairCandidate, error) {
	f.builds++
	return agents.RepairCandidate{
		Analysis: "off-by-one in pagination",
		Code:     "def fetch(): return []",
		TestCode: "assert fetch() == []",
	}, nil
}

type fakeToolRegistry struct {
	updates []datatypes.ToolUpdate
}

func (f *fakeToolRegistry) Update(_ context.Context, update datatypes.ToolUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

func healSession(t *testing.T) *datatypes.SessionRecord {
	t.Helper()
	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "heal failing tool price-scraper")
	rec.MeetingType = datatypes.MeetingSelfHeal
	rec.ErrorLog = &datatypes.ErrorLog{
		ToolName: "price-scraper",
		Message:  "TypeError: cannot unpack non-iterable NoneType",
		Location: "scraper.py:42",
	}
	return rec
}

func newSelfHeal(t *testing.T, diagnosis string, sb *fakeSandbox, builder *fakeBuilder, tools *fakeToolRegistry) *SelfHeal {
	t.Helper()
	client := llm.NewScriptedClient(diagnosis)
	return NewSelfHeal(testRegistry(t, client), builder, sb, tools, testLogger(t))
}

// ===== Diagnose classifier =====

func TestClassifyDiagnosis(t *testing.T) {
	tests := []struct {
		diagnosis string
		want      repairAction
	}{
		{"REBUILD: the parser changed", actionRebuild},
		{"there is a BUG in the pagination logic", actionRebuild},
		{"the API_CHANGE broke the client", actionRebuild},
		{"missing CONFIG value for the endpoint", actionConfigFix},
		{"the ENV secret rotated", actionConfigFix},
		{"NETWORK blip, upstream flaked", actionRetry},
		{"hit the RATE_LIMIT, back off", actionRetry},
		{"no recognizable keyword here", actionRetry},
		// Rebuild keywords outrank config keywords.
		{"CODE reads the wrong CONFIG key", actionRebuild},
	}
	for _, tt := range tests {
		t.Run(tt.diagnosis, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDiagnosis(tt.diagnosis))
		})
	}
}

// ===== Loop =====

func TestSelfHeal_RetryPathHeals(t *testing.T) {
	sb := &fakeSandbox{syntaxValid: true}
	tools := &fakeToolRegistry{}
	h := newSelfHeal(t, "NETWORK timeout against the supplier API", sb, &fakeBuilder{}, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseHealed, rec.Phase)
	assert.Equal(t, 1, rec.HealAttempts)
	assert.Equal(t, 0, sb.runs) // nothing generated, nothing tested

	require.Len(t, tools.updates, 1)
	assert.Equal(t, datatypes.ToolActive, tools.updates[0].Status)
	assert.Equal(t, "price-scraper", tools.updates[0].Name)
}

func TestSelfHeal_ConfigFixNeedsHuman(t *testing.T) {
	sb := &fakeSandbox{syntaxValid: true}
	tools := &fakeToolRegistry{}
	builder := &fakeBuilder{}
	h := newSelfHeal(t, "the CONFIG is missing the new SECRET", sb, builder, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseNeedsHuman, rec.Phase)
	// No sandbox path for configuration issues.
	assert.Equal(t, 0, sb.runs)
	assert.Equal(t, 0, sb.syntaxCalls)
	assert.Equal(t, 0, builder.builds)
	assert.Empty(t, tools.updates)
}

func TestSelfHeal_RebuildFirstAttemptHeals(t *testing.T) {
	sb := &fakeSandbox{syntaxValid: true, results: []sandbox.RunResult{{Success: true}}}
	tools := &fakeToolRegistry{}
	builder := &fakeBuilder{}
	h := newSelfHeal(t, "clear BUG in the unpacking LOGIC", sb, builder, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseHealed, rec.Phase)
	assert.Equal(t, 1, rec.HealAttempts)
	assert.Equal(t, 1, builder.builds)
	require.Len(t, tools.updates, 1)
	assert.Equal(t, datatypes.ToolActive, tools.updates[0].Status)
	assert.Equal(t, 1, tools.updates[0].Attempts)
}

func TestSelfHeal_GivesUpAtAttemptCap(t *testing.T) {
	fail := sandbox.RunResult{Success: false, Stderr: "AssertionError: still broken", ExitCode: 1}
	sb := &fakeSandbox{syntaxValid: true, results: []sandbox.RunResult{fail, fail, fail}}
	tools := &fakeToolRegistry{}
	builder := &fakeBuilder{}
	h := newSelfHeal(t, "BUG in the scraper", sb, builder, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseBroken, rec.Phase)
	assert.Equal(t, selfHealAttemptCap, rec.HealAttempts)
	assert.Equal(t, selfHealAttemptCap, builder.builds)

	require.Len(t, tools.updates, 1)
	assert.Equal(t, datatypes.ToolBroken, tools.updates[0].Status)
	assert.Equal(t, "AssertionError: still broken", tools.updates[0].LastError)
	assert.Equal(t, selfHealAttemptCap, tools.updates[0].Attempts)
}

func TestSelfHeal_ThirdAttemptCanStillHeal(t *testing.T) {
	fail := sandbox.RunResult{Success: false, Stderr: "nope", ExitCode: 1}
	sb := &fakeSandbox{syntaxValid: true, results: []sandbox.RunResult{fail, fail, {Success: true}}}
	tools := &fakeToolRegistry{}
	h := newSelfHeal(t, "BUG", sb, &fakeBuilder{}, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseHealed, rec.Phase)
	assert.Equal(t, 3, rec.HealAttempts)
}

func TestSelfHeal_SyntaxFailureCountsAsFailedAttempt(t *testing.T) {
	sb := &fakeSandbox{syntaxValid: false}
	tools := &fakeToolRegistry{}
	h := newSelfHeal(t, "BUG", sb, &fakeBuilder{}, tools)

	rec := healSession(t)
	require.NoError(t, h.Run(context.Background(), rec))

	// Malformed code never reaches the run step.
	assert.Equal(t, datatypes.PhaseBroken, rec.Phase)
	assert.Equal(t, 0, sb.runs)
	assert.Equal(t, selfHealAttemptCap, sb.syntaxCalls)
	require.Len(t, tools.updates, 1)
	assert.Equal(t, "SyntaxError: invalid syntax", tools.updates[0].LastError)
}

func TestSelfHeal_RequiresErrorLog(t *testing.T) {
	h := newSelfHeal(t, "unused", &fakeSandbox{syntaxValid: true}, &fakeBuilder{}, &fakeToolRegistry{})

	rec := datatypes.NewSessionRecord(datatypes.ModeExecution, "intent")
	rec.MeetingType = datatypes.MeetingSelfHeal
	err := h.Run(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoErrorLog)
}
