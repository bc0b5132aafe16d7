// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// One exploration iteration is five oracle calls: four seat turns then
// the convergence check.
func explorationIteration(n int, convergence string) []string {
	return []string{
		fmt.Sprintf("growth take %d", n),
		fmt.Sprintf("risk take %d", n),
		fmt.Sprintf("operations take %d", n),
		fmt.Sprintf("technology take %d", n),
		convergence,
	}
}

func explorationSession(t *testing.T) *datatypes.SessionRecord {
	t.Helper()
	rec := datatypes.NewSessionRecord(datatypes.ModeExploration, "should we enter the pet-food market")
	rec.MeetingType = datatypes.MeetingExplorationChat
	return rec
}

func TestExploration_ConvergesFirstIteration(t *testing.T) {
	responses := explorationIteration(1, "YES, the direction is clear")
	responses = append(responses, "drafted proposal from the discussion")
	client := llm.NewScriptedClient(responses...)
	m := NewExploration(testRegistry(t, client), testLogger(t))

	rec := explorationSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseProposalReady, rec.Phase)
	assert.Equal(t, 1, rec.IterationCount)

	// Four turns, round-tagged 1..4, fixed speaker order.
	require.Len(t, rec.MeetingTranscript, 4)
	for i, entry := range rec.MeetingTranscript {
		assert.Equal(t, i+1, entry.Round)
	}
	assert.Equal(t, "cgo", rec.MeetingTranscript[0].Speaker)
	assert.Equal(t, "cto", rec.MeetingTranscript[3].Speaker)

	// The draft landed in the versioned buffer.
	require.Len(t, rec.ProposalBuffer, 1)
	assert.Equal(t, "gm", rec.ProposalBuffer[0].Author)
	assert.Equal(t, "drafted proposal from the discussion", rec.ProposalBuffer[0].Content)
}

func TestExploration_RoundTagsDeriveFromIteration(t *testing.T) {
	responses := explorationIteration(1, "NO")
	responses = append(responses, explorationIteration(2, "YES")...)
	responses = append(responses, "draft")
	client := llm.NewScriptedClient(responses...)
	m := NewExploration(testRegistry(t, client), testLogger(t))

	rec := explorationSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	require.Len(t, rec.MeetingTranscript, 8)
	// Second iteration rounds continue at iteration*4 + position.
	assert.Equal(t, 5, rec.MeetingTranscript[4].Round)
	assert.Equal(t, "cgo", rec.MeetingTranscript[4].Speaker)
	assert.Equal(t, 8, rec.MeetingTranscript[7].Round)
	assert.Equal(t, 2, rec.IterationCount)
}

func TestExploration_IterationCapForcesDraft(t *testing.T) {
	var responses []string
	for i := 1; i <= explorationIterationCap; i++ {
		responses = append(responses, explorationIteration(i, "NO, still split")...)
	}
	responses = append(responses, "forced draft")
	client := llm.NewScriptedClient(responses...)
	m := NewExploration(testRegistry(t, client), testLogger(t))

	rec := explorationSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseProposalReady, rec.Phase)
	assert.Equal(t, explorationIterationCap, rec.IterationCount)
	assert.Len(t, rec.MeetingTranscript, explorationIterationCap*4)
	require.Len(t, rec.ProposalBuffer, 1)
	assert.Contains(t, rec.Outcome, "cap")
}
