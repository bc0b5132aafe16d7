// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

func testDiscussion() config.DiscussionConfig {
	return config.DiscussionConfig{MaxTurns: 15, ConsecutivePassCap: 3}
}

func floorSession(t *testing.T) *datatypes.SessionRecord {
	t.Helper()
	rec := datatypes.NewSessionRecord(datatypes.ModeExploration, "end of quarter retrospective")
	rec.MeetingType = datatypes.MeetingOpenFloor
	return rec
}

func TestOpenFloor_NobodyClosesTheFloor(t *testing.T) {
	// The coordinator is asked first and immediately yields the floor.
	client := llm.NewScriptedClient("nobody")
	m := NewOpenFloor(testRegistry(t, client), testDiscussion(), testLogger(t))

	rec := floorSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseFloorClosed, rec.Phase)
	// Only the round-0 announcement is on the transcript.
	require.Len(t, rec.MeetingTranscript, 1)
	assert.Equal(t, 0, rec.MeetingTranscript[0].Round)
	assert.Equal(t, systemSpeaker, rec.MeetingTranscript[0].Speaker)
}

func TestOpenFloor_ConsecutivePassesCloseTheFloor(t *testing.T) {
	// Turn sequence: pick, speak. Three passes in a row end it.
	client := llm.NewScriptedClient(
		"cgo", "great quarter overall",
		"cro", "I'll pass on this one",
		"coo", "nothing to add",
		"cto", "no further comment from me",
	)
	m := NewOpenFloor(testRegistry(t, client), testDiscussion(), testLogger(t))

	rec := floorSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseFloorClosed, rec.Phase)
	assert.Contains(t, rec.Outcome, "consecutive passes")

	// Announcement plus four turns; pass detection is recorded per turn.
	require.Len(t, rec.MeetingTranscript, 5)
	assert.False(t, rec.MeetingTranscript[1].IsPass)
	for _, entry := range rec.MeetingTranscript[2:] {
		assert.True(t, entry.IsPass)
	}
}

func TestOpenFloor_TurnCapClosesTheFloor(t *testing.T) {
	cfg := config.DiscussionConfig{MaxTurns: 2, ConsecutivePassCap: 3}
	client := llm.NewScriptedClient(
		"cgo", "substantive point one",
		"cro", "substantive point two",
	)
	m := NewOpenFloor(testRegistry(t, client), cfg, testLogger(t))

	rec := floorSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseFloorClosed, rec.Phase)
	assert.Contains(t, rec.Outcome, "cap")
	assert.Len(t, rec.MeetingTranscript, 3) // announcement + 2 turns
}

func TestOpenFloor_PreviousSpeakerIsNotACandidate(t *testing.T) {
	client := llm.NewScriptedClient(
		"cgo", "point",
		"cro", "pass",
		"coo", "pass",
		"cto", "pass",
	)
	m := NewOpenFloor(testRegistry(t, client), testDiscussion(), testLogger(t))

	rec := floorSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	// The second pick's prompt must not offer cgo again.
	secondPick := client.Calls()[2].Prompt
	assert.Contains(t, secondPick, "Candidates: cro, coo, cto")
}

func TestOpenFloor_FallbackWhenOracleFails(t *testing.T) {
	// Every pick response is invalid, so the deterministic fallback
	// chooses; every spoken turn is a pass so the floor closes.
	client := llm.NewScriptedClient().OnPrompt("Who should speak next?", "someone unqualified")
	m := NewOpenFloor(testRegistry(t, client), testDiscussion(), testLogger(t))

	rec := floorSession(t)
	require.NoError(t, m.Run(context.Background(), rec))

	assert.Equal(t, datatypes.PhaseFloorClosed, rec.Phase)
	// Turns happened despite the oracle never naming a valid speaker.
	assert.Greater(t, len(rec.MeetingTranscript), 1)
}

func TestFallbackSpeaker_LeastRecentNonPrevious(t *testing.T) {
	m := NewOpenFloor(testRegistry(t, llm.NewScriptedClient()), testDiscussion(), testLogger(t))
	m.rng = rand.New(rand.NewSource(1))

	rec := floorSession(t)
	require.NoError(t, rec.AppendTranscript(datatypes.TranscriptEntry{Round: 1, Speaker: "cgo", Content: "a"}))
	require.NoError(t, rec.AppendTranscript(datatypes.TranscriptEntry{Round: 2, Speaker: "cro", Content: "b"}))

	// coo and cto have never spoken; cro spoke last and is excluded by
	// the caller. Either silent seat is a valid uniform pick.
	picks := map[string]bool{}
	for i := 0; i < 50; i++ {
		picks[m.fallbackSpeaker(rec, []string{"cgo", "coo", "cto"})] = true
	}
	assert.False(t, picks["cgo"], "cgo spoke more recently than the silent seats")
	assert.True(t, picks["coo"] || picks["cto"])
}

func TestFallbackSpeaker_NoCandidates(t *testing.T) {
	m := NewOpenFloor(testRegistry(t, llm.NewScriptedClient()), testDiscussion(), testLogger(t))
	assert.Equal(t, "nobody", m.fallbackSpeaker(floorSession(t), nil))
}

func TestIsPass(t *testing.T) {
	assert.True(t, isPass("I'll pass."))
	assert.True(t, isPass("Nothing to add from my side"))
	assert.True(t, isPass("NO FURTHER COMMENT"))
	assert.False(t, isPass("We should double the ad budget"))
}
