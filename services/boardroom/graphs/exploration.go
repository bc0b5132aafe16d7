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

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// explorationIterationCap is fixed policy: after five full iterations
// the discussion is force-drafted regardless of convergence.
const explorationIterationCap = 5

// Exploration runs the capped round-robin discussion:
//
//	INIT → EXPLORING → ... (all four seats per iteration, then a
//	convergence check) → PROPOSAL_READY
//
// Each iteration runs the seats in fixed order (growth, risk,
// operations, technology); each turn is tagged with a derived round
// number so transcript ordering survives serialization. The machine
// always terminates: either the coordinator judges the discussion
// converged, or the iteration cap forces a draft.
type Exploration struct {
	sm       *StateMachine
	reg      *agents.Registry
	log      *logging.Logger
	observer TransitionObserver
}

// NewExploration wires the exploration machine.
func NewExploration(reg *agents.Registry, log *logging.Logger, opts ...Option) *Exploration {
	sm := newStateMachine("exploration")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseExploring)
	sm.addTransition(datatypes.PhaseExploring, datatypes.PhaseProposalReady)

	m := &Exploration{
		sm:       sm,
		reg:      reg,
		log:      log.With("machine", "exploration"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&m.observer)
	}
	return m
}

// Run drives the record to PROPOSAL_READY.
func (m *Exploration) Run(ctx context.Context, rec *datatypes.SessionRecord) error {
	log := m.log.With("trace_id", rec.TraceID)

	if err := m.sm.Transition(rec, datatypes.PhaseExploring); err != nil {
		return err
	}
	m.observer.PhaseChanged(rec)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for pos, seat := range m.reg.DebateOrder() {
			round := rec.IterationCount*4 + pos + 1
			entry, err := seat.Debate(ctx, rec, round)
			if err != nil {
				return fmt.Errorf("exploration round %d (%s): %w", round, seat.Role(), err)
			}
			if err := rec.AppendTranscript(entry); err != nil {
				return err
			}
			m.observer.TranscriptAppended(rec, entry)
		}

		converged, err := m.reg.Coordinator().CheckConvergence(ctx, rec)
		if err != nil {
			return fmt.Errorf("convergence check: %w", err)
		}
		log.Info("iteration complete", "iteration", rec.IterationCount, "converged", converged)

		// The counter moves only after the fourth seat has spoken.
		if err := rec.IncrementIteration(); err != nil {
			return err
		}

		if converged || rec.IterationCount >= explorationIterationCap {
			if !converged {
				log.Warn("iteration cap reached, forcing draft", "iterations", rec.IterationCount)
			}
			return m.draft(ctx, rec, converged)
		}
	}
}

func (m *Exploration) draft(ctx context.Context, rec *datatypes.SessionRecord, converged bool) error {
	draft, err := m.reg.Coordinator().DraftProposal(ctx, rec)
	if err != nil {
		return fmt.Errorf("draft proposal: %w", err)
	}
	p, err := rec.AppendProposal(draft.Author, draft.Content)
	if err != nil {
		return err
	}

	outcome := fmt.Sprintf("Exploration converged after %d iteration(s); proposal v%d drafted.",
		rec.IterationCount, p.Version)
	if !converged {
		outcome = fmt.Sprintf("Exploration hit the iteration cap (%d); proposal v%d force-drafted.",
			explorationIterationCap, p.Version)
	}
	if err := m.sm.terminate(rec, datatypes.PhaseProposalReady, outcome); err != nil {
		return err
	}
	m.observer.PhaseChanged(rec)
	return nil
}
