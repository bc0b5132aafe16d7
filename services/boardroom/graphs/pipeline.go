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
	"sync"
	"time"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/observability"
)

// ErrSessionBusy indicates a second writer tried to drive a session
// that is already being driven. Each record has exactly one sequential
// pipeline.
var ErrSessionBusy = errors.New("session is already being driven")

// SessionStore is the persistence collaborator. The badger store in
// the storage package implements it.
type SessionStore interface {
	SaveCheckpoint(ctx context.Context, rec *datatypes.SessionRecord) error
	LoadCheckpoint(ctx context.Context, traceID string) (*datatypes.SessionRecord, error)
	Archive(ctx context.Context, rec *datatypes.SessionRecord) error
	Load(ctx context.Context, traceID string) (*datatypes.SessionRecord, error)
	ListCheckpoints(ctx context.Context) ([]*datatypes.SessionRecord, error)
}

// Pipeline dispatches requests to the deliberation machines and owns
// the session lifecycle around them: routing, the single-writer guard,
// checkpointing at every suspension, and archival at termination.
type Pipeline struct {
	router      *Router
	joint       *AsyncJointSession
	hearing     *Hearing
	exploration *Exploration
	openFloor   *OpenFloor
	selfHeal    *SelfHeal
	store       SessionStore
	log         *logging.Logger

	mu      sync.Mutex
	driving map[string]struct{}
}

// NewPipeline wires every machine over the shared registry, store, and
// collaborators. The observer receives phase and transcript events
// from all machines, on top of the metrics the pipeline records
// itself.
func NewPipeline(reg *agents.Registry, store SessionStore, builder CodeBuilder, sb Sandbox,
	tools ToolRegistry, cfg *config.BoardroomConfig, log *logging.Logger, observer TransitionObserver) *Pipeline {

	obs := TransitionObserver(metricsObserver{next: observer})
	opt := WithObserver(obs)

	return &Pipeline{
		router:      NewRouter(reg, log),
		joint:       NewAsyncJointSession(reg, cfg.Thresholds, log, opt),
		hearing:     NewHearing(reg, cfg.Checkpoint, log, opt),
		exploration: NewExploration(reg, log, opt),
		openFloor:   NewOpenFloor(reg, cfg.Discussion, log, opt),
		selfHeal:    NewSelfHeal(reg, builder, sb, tools, log, opt),
		store:       store,
		log:         log.With("component", "pipeline"),
		driving:     make(map[string]struct{}),
	}
}

// Start classifies the intent, persists the routed record, and returns
// it still in INIT. Drive actually runs it; handlers call Drive from a
// goroutine so Start can return the trace ID immediately.
func (p *Pipeline) Start(ctx context.Context, intent string) (*datatypes.SessionRecord, error) {
	rec, meeting, err := p.router.Dispatch(ctx, intent)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveCheckpoint(ctx, rec); err != nil {
		return nil, err
	}
	observability.SessionsStarted.WithLabelValues(string(meeting)).Inc()
	return rec, nil
}

// StartOpenFloor creates a free-discussion session on a topic. The
// open floor is never routed to; it is requested explicitly.
func (p *Pipeline) StartOpenFloor(ctx context.Context, topic string) (*datatypes.SessionRecord, error) {
	rec := datatypes.NewSessionRecord(datatypes.ModeExploration, topic)
	rec.MeetingType = datatypes.MeetingOpenFloor
	if err := p.store.SaveCheckpoint(ctx, rec); err != nil {
		return nil, err
	}
	observability.SessionsStarted.WithLabelValues(string(datatypes.MeetingOpenFloor)).Inc()
	return rec, nil
}

// StartHeal creates a self-healing session from an operational error
// report.
func (p *Pipeline) StartHeal(ctx context.Context, errLog datatypes.ErrorLog) (*datatypes.SessionRecord, error) {
	rec := datatypes.NewSessionRecord(datatypes.ModeExecution,
		fmt.Sprintf("Heal failing tool %s", errLog.ToolName))
	rec.MeetingType = datatypes.MeetingSelfHeal
	rec.IntentCategory = datatypes.IntentTechFix
	rec.ErrorLog = &errLog
	if err := p.store.SaveCheckpoint(ctx, rec); err != nil {
		return nil, err
	}
	observability.SessionsStarted.WithLabelValues(string(datatypes.MeetingSelfHeal)).Inc()
	return rec, nil
}

// Drive runs the record's machine to its next stopping point: a
// terminal phase or the human checkpoint. A joint session that
// escalates flows straight into the hearing on the same record.
func (p *Pipeline) Drive(ctx context.Context, rec *datatypes.SessionRecord) error {
	if err := p.acquire(rec.TraceID); err != nil {
		return err
	}
	defer p.release(rec.TraceID)

	observability.ActiveSessions.Inc()
	defer observability.ActiveSessions.Dec()

	err := p.drive(ctx, rec)
	if err != nil {
		observability.PipelineErrors.WithLabelValues(string(rec.MeetingType)).Inc()
		p.log.Error("machine run failed", "trace_id", rec.TraceID,
			"meeting", rec.MeetingType, "error", err)
		// Persist whatever progress was made before the failure.
		if saveErr := p.store.SaveCheckpoint(context.WithoutCancel(ctx), rec); saveErr != nil {
			p.log.Error("checkpoint after failure also failed", "trace_id", rec.TraceID, "error", saveErr)
		}
		return err
	}
	return p.settle(ctx, rec)
}

func (p *Pipeline) drive(ctx context.Context, rec *datatypes.SessionRecord) error {
	switch rec.MeetingType {
	case datatypes.MeetingAsyncJoint:
		if err := p.joint.Run(ctx, rec); err != nil {
			return err
		}
		if rec.Phase == datatypes.PhaseEscalated {
			p.log.Info("joint session escalated to hearing", "trace_id", rec.TraceID)
			return p.hearing.Open(ctx, rec)
		}
		return nil

	case datatypes.MeetingAdversarial:
		return p.hearing.Open(ctx, rec)

	case datatypes.MeetingExplorationChat:
		return p.exploration.Run(ctx, rec)

	case datatypes.MeetingOpenFloor:
		return p.openFloor.Run(ctx, rec)

	case datatypes.MeetingSelfHeal:
		return p.selfHeal.Run(ctx, rec)

	default:
		return fmt.Errorf("unknown meeting type %q on trace %s", rec.MeetingType, rec.TraceID)
	}
}

// Resume continues a session suspended at the human checkpoint.
func (p *Pipeline) Resume(ctx context.Context, traceID string, verdict datatypes.L0Verdict) (*datatypes.SessionRecord, error) {
	if err := p.acquire(traceID); err != nil {
		return nil, err
	}
	defer p.release(traceID)

	rec, err := p.store.LoadCheckpoint(ctx, traceID)
	if err != nil {
		return nil, err
	}
	if err := p.hearing.Resume(ctx, rec, verdict); err != nil {
		return rec, err
	}
	if err := p.settle(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Status returns the current snapshot of a session, live or archived.
func (p *Pipeline) Status(ctx context.Context, traceID string) (*datatypes.SessionRecord, error) {
	return p.store.Load(ctx, traceID)
}

// ExpireCheckpoints completes every suspended hearing whose deadline
// passed without a verdict. Called on startup and periodically by the
// server.
func (p *Pipeline) ExpireCheckpoints(ctx context.Context) (int, error) {
	live, err := p.store.ListCheckpoints(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	now := time.Now()
	for _, rec := range live {
		if rec.Phase != datatypes.PhaseAwaitingL0 ||
			rec.CheckpointDeadline == nil || now.Before(*rec.CheckpointDeadline) {
			continue
		}
		if err := p.acquire(rec.TraceID); err != nil {
			continue // being driven right now, the driver will settle it
		}
		if err := p.hearing.Expire(rec); err != nil {
			p.release(rec.TraceID)
			p.log.Error("checkpoint expiry failed", "trace_id", rec.TraceID, "error", err)
			continue
		}
		if err := p.settle(ctx, rec); err != nil {
			p.release(rec.TraceID)
			return expired, err
		}
		p.release(rec.TraceID)
		observability.CheckpointsExpired.Inc()
		expired++
	}
	return expired, nil
}

// settle persists the record according to where the machine left it:
// archive for terminal phases, checkpoint for suspensions.
func (p *Pipeline) settle(ctx context.Context, rec *datatypes.SessionRecord) error {
	if rec.Phase.IsTerminal() {
		if err := p.store.Archive(ctx, rec); err != nil {
			return err
		}
		observability.SessionsTerminal.WithLabelValues(string(rec.Phase)).Inc()
		p.log.Info("session archived", "trace_id", rec.TraceID,
			"phase", rec.Phase, "outcome", rec.Outcome)
		return nil
	}
	return p.store.SaveCheckpoint(ctx, rec)
}

func (p *Pipeline) acquire(traceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.driving[traceID]; busy {
		return fmt.Errorf("%w: %s", ErrSessionBusy, traceID)
	}
	p.driving[traceID] = struct{}{}
	return nil
}

func (p *Pipeline) release(traceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.driving, traceID)
}

// metricsObserver bumps the transition metrics and forwards events to
// the next observer, if any.
type metricsObserver struct {
	next TransitionObserver
}

func (m metricsObserver) PhaseChanged(rec *datatypes.SessionRecord) {
	observability.PhaseTransitions.WithLabelValues(string(rec.Phase)).Inc()
	if m.next != nil {
		m.next.PhaseChanged(rec)
	}
}

func (m metricsObserver) TranscriptAppended(rec *datatypes.SessionRecord, entry datatypes.TranscriptEntry) {
	observability.TranscriptTurns.WithLabelValues(entry.Speaker).Inc()
	if m.next != nil {
		m.next.TranscriptAppended(rec, entry)
	}
}
