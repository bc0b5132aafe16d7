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
	"strings"
	"time"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/sandbox"
)

// selfHealAttemptCap is fixed policy, distinct from the deliberation
// machines' max_iterations: three failed repair passes mark the tool
// broken.
const selfHealAttemptCap = 3

// ErrNoErrorLog indicates the self-heal loop was started on a session
// without an error report to triage.
var ErrNoErrorLog = errors.New("self-heal requires an error log")

// repairAction is the diagnose classifier's output.
type repairAction string

const (
	actionRetry     repairAction = "retry"
	actionRebuild   repairAction = "rebuild"
	actionConfigFix repairAction = "config_fix"
)

// Sandbox is the isolated execution collaborator. The executor in the
// sandbox package implements it.
type Sandbox interface {
	CheckSyntax(ctx context.Context, code string) (sandbox.SyntaxResult, error)
	Run(ctx context.Context, code, testCode string, timeout time.Duration) (sandbox.RunResult, error)
}

// CodeBuilder generates repair candidates for a failed tool.
type CodeBuilder interface {
	Build(ctx context.Context, rec *datatypes.SessionRecord) (agents.RepairCandidate, error)
}

// ToolRegistry receives the tool status intents a heal run emits.
type ToolRegistry interface {
	Update(ctx context.Context, update datatypes.ToolUpdate) error
}

// SelfHeal runs the fault-triage loop:
//
//	INIT → DIAGNOSING → {REPAIRING | TESTING | needs_human} →
//	TESTING → {healed | REPAIRING (capped) | broken}
//
// Configuration failures skip the sandbox entirely: there is no code
// to fix, so the loop hands the session to a human. The loop never
// calls back into a deliberation machine.
type SelfHeal struct {
	sm       *StateMachine
	reg      *agents.Registry
	builder  CodeBuilder
	sandbox  Sandbox
	tools    ToolRegistry
	log      *logging.Logger
	observer TransitionObserver
}

// NewSelfHeal wires the healing loop.
func NewSelfHeal(reg *agents.Registry, builder CodeBuilder, sb Sandbox, tools ToolRegistry,
	log *logging.Logger, opts ...Option) *SelfHeal {

	sm := newStateMachine("self_heal")
	sm.addTransition(datatypes.PhaseInit, datatypes.PhaseDiagnosing)
	sm.addTransition(datatypes.PhaseDiagnosing, datatypes.PhaseRepairing)
	sm.addTransition(datatypes.PhaseDiagnosing, datatypes.PhaseTesting)
	sm.addTransition(datatypes.PhaseDiagnosing, datatypes.PhaseNeedsHuman)
	sm.addTransition(datatypes.PhaseRepairing, datatypes.PhaseTesting)
	sm.addTransition(datatypes.PhaseTesting, datatypes.PhaseHealed)
	sm.addTransition(datatypes.PhaseTesting, datatypes.PhaseRepairing)
	sm.addTransition(datatypes.PhaseTesting, datatypes.PhaseBroken)

	h := &SelfHeal{
		sm:       sm,
		reg:      reg,
		builder:  builder,
		sandbox:  sb,
		tools:    tools,
		log:      log.With("machine", "self_heal"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&h.observer)
	}
	return h
}

// Run triages the session's error log to a terminal phase.
func (h *SelfHeal) Run(ctx context.Context, rec *datatypes.SessionRecord) error {
	if rec.ErrorLog == nil {
		return fmt.Errorf("%w: trace %s", ErrNoErrorLog, rec.TraceID)
	}
	log := h.log.With("trace_id", rec.TraceID, "tool", rec.ErrorLog.ToolName)

	// Diagnose
	if err := h.transition(rec, datatypes.PhaseDiagnosing); err != nil {
		return err
	}
	seat, err := h.reg.Seat("cto")
	if err != nil {
		return err
	}
	diagnosis, err := seat.Diagnose(ctx, rec)
	if err != nil {
		return fmt.Errorf("diagnose: %w", err)
	}
	action := classifyDiagnosis(diagnosis)
	log.Info("failure diagnosed", "action", action)

	switch action {
	case actionConfigFix:
		// No sandbox path for configuration issues.
		return h.terminate(rec, datatypes.PhaseNeedsHuman,
			fmt.Sprintf("Configuration issue in %s needs a human: %s",
				rec.ErrorLog.ToolName, firstLine(diagnosis)))

	case actionRetry:
		if err := rec.IncrementHealAttempts(); err != nil {
			return err
		}
		if err := h.transition(rec, datatypes.PhaseTesting); err != nil {
			return err
		}
		// Direct retry generates no code; the sandbox pass is trivial.
		result, err := h.sandbox.Run(ctx, "", "", 0)
		if err != nil {
			return fmt.Errorf("sandbox: %w", err)
		}
		if result.Success {
			return h.deploy(ctx, rec, "Transient failure cleared by direct retry.")
		}
		return h.rebuildLoop(ctx, rec, log)

	default: // rebuild
		return h.rebuildLoop(ctx, rec, log)
	}
}

// rebuildLoop generates, tests, and either deploys or retries a repair
// candidate until the attempt cap.
func (h *SelfHeal) rebuildLoop(ctx context.Context, rec *datatypes.SessionRecord, log *logging.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := h.transition(rec, datatypes.PhaseRepairing); err != nil {
			return err
		}
		candidate, err := h.builder.Build(ctx, rec)
		if err != nil {
			return fmt.Errorf("rebuild: %w", err)
		}
		if err := rec.IncrementHealAttempts(); err != nil {
			return err
		}

		if err := h.transition(rec, datatypes.PhaseTesting); err != nil {
			return err
		}
		result, err := h.testCandidate(ctx, candidate)
		if err != nil {
			return err
		}
		log.Info("candidate tested", "attempt", rec.HealAttempts,
			"success", result.Success, "exit_code", result.ExitCode)

		if result.Success {
			return h.deploy(ctx, rec,
				fmt.Sprintf("Repaired and verified in sandbox after %d attempt(s).", rec.HealAttempts))
		}
		if rec.HealAttempts >= selfHealAttemptCap {
			return h.giveUp(ctx, rec, result)
		}
	}
}

// testCandidate syntax-checks first so malformed generated code fails
// fast, then runs code plus test inside the sandbox.
func (h *SelfHeal) testCandidate(ctx context.Context, candidate agents.RepairCandidate) (sandbox.RunResult, error) {
	syntax, err := h.sandbox.CheckSyntax(ctx, candidate.Code)
	if err != nil {
		return sandbox.RunResult{}, fmt.Errorf("sandbox syntax check: %w", err)
	}
	if !syntax.Valid {
		return sandbox.RunResult{
			Success:  false,
			Stderr:   strings.Join(syntax.Errors, "\n"),
			ExitCode: 1,
		}, nil
	}

	result, err := h.sandbox.Run(ctx, candidate.Code, candidate.TestCode, 0)
	if err != nil {
		return sandbox.RunResult{}, fmt.Errorf("sandbox run: %w", err)
	}
	return result, nil
}

func (h *SelfHeal) deploy(ctx context.Context, rec *datatypes.SessionRecord, outcome string) error {
	update := datatypes.ToolUpdate{
		Name:     rec.ErrorLog.ToolName,
		Status:   datatypes.ToolActive,
		Attempts: rec.HealAttempts,
	}
	if err := h.tools.Update(ctx, update); err != nil {
		h.log.Error("tool registry update failed", "tool", update.Name, "error", err)
	}
	return h.terminate(rec, datatypes.PhaseHealed, outcome)
}

func (h *SelfHeal) giveUp(ctx context.Context, rec *datatypes.SessionRecord, last sandbox.RunResult) error {
	update := datatypes.ToolUpdate{
		Name:      rec.ErrorLog.ToolName,
		Status:    datatypes.ToolBroken,
		LastError: firstLine(last.Stderr),
		Attempts:  rec.HealAttempts,
	}
	if err := h.tools.Update(ctx, update); err != nil {
		h.log.Error("tool registry update failed", "tool", update.Name, "error", err)
	}
	return h.terminate(rec, datatypes.PhaseBroken,
		fmt.Sprintf("Gave up on %s after %d failed repair attempt(s).",
			rec.ErrorLog.ToolName, rec.HealAttempts))
}

func (h *SelfHeal) transition(rec *datatypes.SessionRecord, to datatypes.Phase) error {
	if err := h.sm.Transition(rec, to); err != nil {
		return err
	}
	h.observer.PhaseChanged(rec)
	return nil
}

func (h *SelfHeal) terminate(rec *datatypes.SessionRecord, to datatypes.Phase, outcome string) error {
	if err := h.sm.terminate(rec, to, outcome); err != nil {
		return err
	}
	h.observer.PhaseChanged(rec)
	return nil
}

// classifyDiagnosis maps diagnosis text to a repair action by keyword,
// first match in priority order wins.
func classifyDiagnosis(diagnosis string) repairAction {
	upper := strings.ToUpper(diagnosis)

	for _, kw := range []string{"REBUILD", "CODE", "BUG", "LOGIC", "API_CHANGE"} {
		if strings.Contains(upper, kw) {
			return actionRebuild
		}
	}
	for _, kw := range []string{"CONFIG", "ENV", "SECRET"} {
		if strings.Contains(upper, kw) {
			return actionConfigFix
		}
	}
	// NETWORK, TIMEOUT, RATE_LIMIT, and anything unrecognized.
	return actionRetry
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
