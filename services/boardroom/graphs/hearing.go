// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// ErrNotAwaitingVerdict indicates a resume attempt on a session that
// is not suspended at the human checkpoint.
var ErrNotAwaitingVerdict = errors.New("session is not awaiting an L0 verdict")

// hearingSummaryArtifact is the artifact type of the decision brief
// pushed before the human checkpoint.
const hearingSummaryArtifact = "hearing_summary"

// Hearing runs the fixed four-round adversarial debate:
//
//	{INIT, ESCALATED} → HEARING_OPENED → DEBATING → AWAITING_L0 →
//	{APPROVED_EXECUTING | REJECTED_ARCHIVED | CONSERVATIVE_EXECUTING |
//	DEBATING (on REVISE)}
//
// Rounds are bound to one role and one stance each, always in the
// order attack (cgo), defend (cro), arbitrate (coo), technical ruling
// (cto), and never reordered. AWAITING_L0 is an indefinite suspension:
// Open returns there, the caller checkpoints the record, and Resume
// continues it from a reloaded snapshot — possibly in a different
// process.
type Hearing struct {
	sm       *StateMachine
	reg      *agents.Registry
	deadline time.Duration
	log      *logging.Logger
	observer TransitionObserver
}

// NewHearing wires the hearing machine. deadline bounds the human
// checkpoint; a verdict arriving after it is treated as stale and the
// session completes conservatively.
func NewHearing(reg *agents.Registry, ckpt config.CheckpointConfig, log *logging.Logger, opts ...Option) *Hearing {
	sm := newStateMachine("hearing")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseHearingOpened)
	sm.addTransition(datatypes.PhaseEscalated, datatypes.PhaseHearingOpened)
	sm.addTransition(datatypes.PhaseHearingOpened, datatypes.PhaseDebating)
	sm.addTransition(datatypes.PhaseDebating, datatypes.PhaseAwaitingL0)
	sm.addTransition(datatypes.PhaseAwaitingL0, datatypes.PhaseApprovedExecuting)
	sm.addTransition(datatypes.PhaseAwaitingL0, datatypes.PhaseRejectedArchived)
	sm.addTransition(datatypes.PhaseAwaitingL0, datatypes.PhaseConservativeExecuting)
	sm.addTransition(datatypes.PhaseAwaitingL0, datatypes.PhaseDebating)

	h := &Hearing{
		sm:       sm,
		reg:      reg,
		deadline: ckpt.Deadline(),
		log:      log.With("machine", "hearing"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&h.observer)
	}
	return h
}

// Open runs one full debate cycle and suspends the record at the
// human checkpoint. On return the phase is AWAITING_L0 and the caller
// must persist the record before acknowledging anything to the user.
func (h *Hearing) Open(ctx context.Context, rec *datatypes.SessionRecord) error {
	if err := h.transition(rec, datatypes.PhaseHearingOpened); err != nil {
		return err
	}
	return h.debateCycle(ctx, rec)
}

// Resume continues a suspended session with the principal's verdict.
// REVISE starts a fresh four-round cycle on the same transcript; a
// verdict arriving past the checkpoint deadline is not trusted to
// approve outright and completes the session conservatively.
func (h *Hearing) Resume(ctx context.Context, rec *datatypes.SessionRecord, verdict datatypes.L0Verdict) error {
	if rec.Phase != datatypes.PhaseAwaitingL0 {
		return fmt.Errorf("%w: trace %s is in phase %s", ErrNotAwaitingVerdict, rec.TraceID, rec.Phase)
	}
	log := h.log.With("trace_id", rec.TraceID)

	if rec.CheckpointDeadline != nil && time.Now().After(*rec.CheckpointDeadline) {
		log.Warn("verdict arrived after checkpoint deadline", "verdict", verdict,
			"deadline", rec.CheckpointDeadline)
		rec.L0VerdictValue = verdict
		return h.terminate(rec, datatypes.PhaseConservativeExecuting,
			"Checkpoint deadline expired before the verdict arrived; proceeding conservatively.")
	}

	rec.L0VerdictValue = verdict
	switch verdict {
	case datatypes.L0Approved:
		return h.terminate(rec, datatypes.PhaseApprovedExecuting,
			"Approved by the principal after adversarial hearing.")

	case datatypes.L0Rejected:
		return h.terminate(rec, datatypes.PhaseRejectedArchived,
			"Rejected by the principal after adversarial hearing.")

	case datatypes.L0Revise:
		log.Info("principal requested another hearing cycle")
		if err := h.transition(rec, datatypes.PhaseDebating); err != nil {
			return err
		}
		return h.debateCycle(ctx, rec)

	default:
		log.Warn("unrecognized verdict, completing conservatively", "verdict", verdict)
		return h.terminate(rec, datatypes.PhaseConservativeExecuting,
			fmt.Sprintf("Unrecognized verdict %q; execution approved with caution flags.", verdict))
	}
}

// Expire completes a session whose checkpoint deadline passed with no
// verdict at all. The pipeline's sweeper calls this.
func (h *Hearing) Expire(rec *datatypes.SessionRecord) error {
	if rec.Phase != datatypes.PhaseAwaitingL0 {
		return fmt.Errorf("%w: trace %s is in phase %s", ErrNotAwaitingVerdict, rec.TraceID, rec.Phase)
	}
	if rec.CheckpointDeadline == nil || time.Now().Before(*rec.CheckpointDeadline) {
		return fmt.Errorf("trace %s: checkpoint deadline has not expired", rec.TraceID)
	}
	return h.terminate(rec, datatypes.PhaseConservativeExecuting,
		"No verdict before the checkpoint deadline; proceeding conservatively.")
}

// debateCycle appends four rounds, pushes the decision brief, and
// suspends at AWAITING_L0. A REVISE cycle restarts the tagging at
// round 1; prior rounds stay on the transcript untouched.
func (h *Hearing) debateCycle(ctx context.Context, rec *datatypes.SessionRecord) error {
	log := h.log.With("trace_id", rec.TraceID)

	if rec.Phase != datatypes.PhaseDebating {
		if err := h.transition(rec, datatypes.PhaseDebating); err != nil {
			return err
		}
	}

	for i, seat := range h.reg.DebateOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		round := i + 1
		entry, err := seat.Debate(ctx, rec, round)
		if err != nil {
			return fmt.Errorf("hearing round %d (%s): %w", round, seat.Role(), err)
		}
		if err := rec.AppendTranscript(entry); err != nil {
			return err
		}
		h.observer.TranscriptAppended(rec, entry)
		log.Info("hearing round recorded", "round", round, "speaker", seat.Role())
	}

	brief, err := h.reg.Coordinator().Summarize(ctx, rec)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if err := rec.AppendArtifact(hearingSummaryArtifact, brief); err != nil {
		return err
	}

	deadline := time.Now().UTC().Add(h.deadline)
	rec.CheckpointDeadline = &deadline
	rec.L0VerdictValue = datatypes.L0Pending

	if err := h.transition(rec, datatypes.PhaseAwaitingL0); err != nil {
		return err
	}
	log.Info("suspended at human checkpoint", "deadline", deadline)
	return nil
}

func (h *Hearing) transition(rec *datatypes.SessionRecord, to datatypes.Phase) error {
	if err := h.sm.Transition(rec, to); err != nil {
		return err
	}
	h.observer.PhaseChanged(rec)
	return nil
}

func (h *Hearing) terminate(rec *datatypes.SessionRecord, to datatypes.Phase, outcome string) error {
	if err := h.sm.terminate(rec, to, outcome); err != nil {
		return err
	}
	h.observer.PhaseChanged(rec)
	return nil
}
