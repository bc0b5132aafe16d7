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
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/guards"
)

// AsyncJointSession runs the propose/review/aggregate/judge cycle:
//
//	INIT → PROPOSING → REVIEWING → AGGREGATED → {APPROVED_EXECUTING |
//	REVISING (loop to PROPOSING) | ESCALATED}
//
// Reviews run in the fixed order coo, cro, cto, each against the
// latest proposal only. ESCALATED hands the same record to the
// adversarial hearing; this machine never starts one itself.
type AsyncJointSession struct {
	sm         *StateMachine
	reg        *agents.Registry
	thresholds config.ThresholdConfig
	log        *logging.Logger
	observer   TransitionObserver
}

// NewAsyncJointSession wires the joint session machine.
func NewAsyncJointSession(reg *agents.Registry, thresholds config.ThresholdConfig, log *logging.Logger, opts ...Option) *AsyncJointSession {
	sm := newStateMachine("async_joint")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseProposing)
	sm.addTransition(datatypes.PhaseProposing, datatypes.PhaseReviewing)
	sm.addTransition(datatypes.PhaseReviewing, datatypes.PhaseAggregated)
	sm.addTransition(datatypes.PhaseAggregated, datatypes.PhaseApprovedExecuting)
	sm.addTransition(datatypes.PhaseAggregated, datatypes.PhaseRevising)
	sm.addTransition(datatypes.PhaseAggregated, datatypes.PhaseEscalated)
	sm.addTransition(datatypes.PhaseRevising, datatypes.PhaseProposing)

	m := &AsyncJointSession{
		sm:         sm,
		reg:        reg,
		thresholds: thresholds,
		log:        log.With("machine", "async_joint"),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(&m.observer)
	}
	return m
}

// Run drives the record until this machine's work is done. On return
// the record is either terminal (approved) or ESCALATED; the caller
// owns what happens next.
func (m *AsyncJointSession) Run(ctx context.Context, rec *datatypes.SessionRecord) error {
	log := m.log.With("trace_id", rec.TraceID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Propose
		if err := m.transition(rec, datatypes.PhaseProposing); err != nil {
			return err
		}
		draft, err := m.reg.Proposer().Propose(ctx, rec)
		if err != nil {
			return fmt.Errorf("propose: %w", err)
		}
		p, err := rec.AppendProposal(draft.Author, draft.Content)
		if err != nil {
			return err
		}
		log.Info("proposal drafted", "version", p.Version)

		// Review, fixed order, latest proposal only
		if err := m.transition(rec, datatypes.PhaseReviewing); err != nil {
			return err
		}
		for _, role := range datatypes.ReviewerRoles {
			seat, err := m.reg.Seat(role)
			if err != nil {
				return err
			}
			entry, err := seat.Review(ctx, rec)
			if err != nil {
				return fmt.Errorf("review %s: %w", role, err)
			}
			if err := rec.SetCritique(role, entry); err != nil {
				return err
			}
			log.Info("critique recorded", "role", role, "verdict", entry.Verdict)
		}

		// Aggregate
		matrix, err := m.reg.Coordinator().Aggregate(ctx, rec)
		if err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		rec.DecisionMatrix = matrix
		if err := m.transition(rec, datatypes.PhaseAggregated); err != nil {
			return err
		}

		// Judge
		decision := guards.Judge(matrix, rec.CritiqueLogs, rec.IterationCount, m.thresholds)
		log.Info("round judged", "decision", decision,
			"iteration", rec.IterationCount, "vetoes", rec.VetoCount())

		switch decision {
		case guards.DecisionAutoApprove:
			rec.L0VerdictValue = datatypes.L0AutoApproved
			outcome := fmt.Sprintf("Auto-approved after %d revision(s): %s",
				rec.IterationCount, matrix.Summary)
			if err := m.sm.terminate(rec, datatypes.PhaseApprovedExecuting, outcome); err != nil {
				return err
			}
			m.observer.PhaseChanged(rec)
			return nil

		case guards.DecisionEscalate:
			if err := m.transition(rec, datatypes.PhaseEscalated); err != nil {
				return err
			}
			return nil

		default: // revise
			if err := m.transition(rec, datatypes.PhaseRevising); err != nil {
				return err
			}
			if err := rec.IncrementIteration(); err != nil {
				return err
			}
		}
	}
}

func (m *AsyncJointSession) transition(rec *datatypes.SessionRecord, to datatypes.Phase) error {
	if err := m.sm.Transition(rec, to); err != nil {
		return err
	}
	m.observer.PhaseChanged(rec)
	return nil
}
