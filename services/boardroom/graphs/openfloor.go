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
	"math/rand"
	"sort"
	"strings"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// systemSpeaker tags the announcement entries.
const systemSpeaker = "system"

// passPhrases are the fixed markers of a pass-equivalent turn.
var passPhrases = []string{
	"pass",
	"nothing to add",
	"no further comment",
	"no comment",
	"i have nothing",
	"sit this one out",
}

// OpenFloor runs the unstructured discussion variant:
//
//	INIT → CHATTING → FLOOR_CLOSED
//
// There is no fixed speaking order. Each turn the coordinator picks
// the next speaker — favoring relevance, roles addressed by name, and
// seats with the fewest recent turns, never the previous speaker —
// with a deterministic fallback when the oracle call fails: a uniform
// pick among the least-recent, non-previous speakers. The floor closes
// on a "nobody" pick, after the configured run of consecutive passes,
// or at the turn cap.
type OpenFloor struct {
	sm       *StateMachine
	reg      *agents.Registry
	cfg      config.DiscussionConfig
	log      *logging.Logger
	observer TransitionObserver

	// rng drives the fallback picker; tests may replace it.
	rng *rand.Rand
}

// NewOpenFloor wires the free-discussion machine.
func NewOpenFloor(reg *agents.Registry, cfg config.DiscussionConfig, log *logging.Logger, opts ...Option) *OpenFloor {
	sm := newStateMachine("open_floor")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseChatting)
	sm.addTransition(datatypes.PhaseChatting, datatypes.PhaseFloorClosed)

	m := &OpenFloor{
		sm:       sm,
		reg:      reg,
		cfg:      cfg,
		log:      log.With("machine", "open_floor"),
		observer: nopObserver{},
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(&m.observer)
	}
	return m
}

// Run drives the discussion to FLOOR_CLOSED.
func (m *OpenFloor) Run(ctx context.Context, rec *datatypes.SessionRecord) error {
	log := m.log.With("trace_id", rec.TraceID)

	if err := m.sm.Transition(rec, datatypes.PhaseChatting); err != nil {
		return err
	}
	m.observer.PhaseChanged(rec)

	// Announcement opens the floor as round 0.
	announcement := datatypes.TranscriptEntry{
		Round:   0,
		Speaker: systemSpeaker,
		Content: fmt.Sprintf("The floor is open: %s", rec.StrategicIntent),
	}
	if err := rec.AppendTranscript(announcement); err != nil {
		return err
	}
	m.observer.TranscriptAppended(rec, announcement)

	candidates := m.reg.SeatRoles()
	consecutivePasses := 0
	previous := ""

	for turn := 1; turn <= m.cfg.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		speaker := m.pickSpeaker(ctx, rec, candidates, previous)
		if speaker == "nobody" {
			return m.close(rec, fmt.Sprintf("Floor closed after %d turn(s): no one asked to speak.", turn-1))
		}

		seat, err := m.reg.Seat(speaker)
		if err != nil {
			return err
		}
		entry, err := seat.Debate(ctx, rec, turn)
		if err != nil {
			return fmt.Errorf("turn %d (%s): %w", turn, speaker, err)
		}
		entry.IsPass = isPass(entry.Content)
		if err := rec.AppendTranscript(entry); err != nil {
			return err
		}
		m.observer.TranscriptAppended(rec, entry)

		if entry.IsPass {
			consecutivePasses++
			if consecutivePasses >= m.cfg.ConsecutivePassCap {
				return m.close(rec, fmt.Sprintf("Floor closed after %d consecutive passes.", consecutivePasses))
			}
		} else {
			consecutivePasses = 0
		}
		previous = speaker
		log.Debug("turn recorded", "turn", turn, "speaker", speaker, "pass", entry.IsPass)
	}

	return m.close(rec, fmt.Sprintf("Floor closed at the %d-turn cap.", m.cfg.MaxTurns))
}

func (m *OpenFloor) close(rec *datatypes.SessionRecord, outcome string) error {
	if err := m.sm.terminate(rec, datatypes.PhaseFloorClosed, outcome); err != nil {
		return err
	}
	m.observer.PhaseChanged(rec)
	return nil
}

// pickSpeaker asks the coordinator first and falls back to the
// deterministic picker on any failure. The fallback is real code, not
// another oracle call.
func (m *OpenFloor) pickSpeaker(ctx context.Context, rec *datatypes.SessionRecord, candidates []string, previous string) string {
	eligible := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != previous {
			eligible = append(eligible, c)
		}
	}

	speaker, err := m.reg.Coordinator().PickSpeaker(ctx, rec, eligible)
	if err == nil {
		return speaker
	}
	m.log.Warn("oracle speaker pick failed, using fallback", "error", err)
	return m.fallbackSpeaker(rec, eligible)
}

// fallbackSpeaker picks uniformly among the eligible seats that have
// spoken least recently.
func (m *OpenFloor) fallbackSpeaker(rec *datatypes.SessionRecord, eligible []string) string {
	if len(eligible) == 0 {
		return "nobody"
	}

	// Last turn index per speaker; seats that never spoke rank first.
	lastTurn := make(map[string]int, len(eligible))
	for _, role := range eligible {
		lastTurn[role] = -1
	}
	for i, entry := range rec.MeetingTranscript {
		if _, ok := lastTurn[entry.Speaker]; ok {
			lastTurn[entry.Speaker] = i
		}
	}

	sorted := append([]string(nil), eligible...)
	sort.Strings(sorted)

	least := []string{}
	best := int(^uint(0) >> 1)
	for _, role := range sorted {
		switch {
		case lastTurn[role] < best:
			best = lastTurn[role]
			least = []string{role}
		case lastTurn[role] == best:
			least = append(least, role)
		}
	}
	return least[m.rng.Intn(len(least))]
}

// isPass detects a pass-equivalent turn by the fixed phrase list.
func isPass(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	if lower == "" {
		return true
	}
	for _, phrase := range passPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
