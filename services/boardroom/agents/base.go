// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agents implements the five boardroom Role Agents (gm, cgo,
// coo, cro, cto) over the LLMClient interface. All reasoning calls go
// through a single boundary, think, which enforces the per-call
// deadline, retries transient failures with exponential backoff, and
// converts every failure mode into a typed OracleError. Nothing past
// this boundary ever sees a raw transport error or a silently empty
// result.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

var tracer = otel.Tracer("boardroom.agents")

// RoleAgent is the contract every seat at the table implements. The
// state machines call these and nothing else.
type RoleAgent interface {
	// Role returns the short role key ("gm", "cgo", "coo", "cro", "cto").
	Role() string

	// Propose drafts a new proposal for the session's strategic intent.
	Propose(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.Proposal, error)

	// Review critiques the latest proposal from this role's standpoint.
	Review(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.CritiqueEntry, error)

	// Debate contributes one transcript entry for the given round,
	// seeing only the transcript accumulated so far.
	Debate(ctx context.Context, rec *datatypes.SessionRecord, round int) (datatypes.TranscriptEntry, error)

	// Diagnose analyzes the session's error log and returns a free-text
	// diagnosis for the self-healing classifier.
	Diagnose(ctx context.Context, rec *datatypes.SessionRecord) (string, error)
}

// baseAgent carries the shared oracle plumbing. Role types embed it
// and supply their persona and stance prompts.
type baseAgent struct {
	role   string
	title  string
	client llm.LLMClient
	retry  RetryConfig
	oracle config.OracleConfig
	log    *logging.Logger
}

func newBaseAgent(role, title string, client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) baseAgent {
	return baseAgent{
		role:   role,
		title:  title,
		client: client,
		retry:  RetryConfigFromOracle(cfg),
		oracle: cfg,
		log:    log.With("agent", role),
	}
}

func (a *baseAgent) Role() string { return a.role }

// think is the single oracle boundary: one reasoning call with a
// deadline, retried on transient failure, classified into typed errors.
func (a *baseAgent) think(ctx context.Context, op, system, prompt string) (string, error) {
	return a.thinkValidated(ctx, op, system, prompt, nil)
}

// thinkValidated is think with a structure check: when validate rejects
// the completion, the attempt counts as a malformed response and is
// retried inside the same backoff loop as transport failures.
func (a *baseAgent) thinkValidated(ctx context.Context, op, system, prompt string, validate func(string) error) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.think", trace.WithAttributes(
		attribute.String("agent.role", a.role),
		attribute.String("agent.op", op),
	))
	defer span.End()

	var answer string
	result, err := Retry(ctx, a.retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			a.log.Debug("retrying oracle call", "op", op, "attempt", attempt)
		}

		callCtx, cancel := context.WithTimeout(ctx, a.oracle.Timeout())
		defer cancel()

		out, callErr := a.client.Generate(callCtx, prompt, llm.GenerationParams{System: system})
		if callErr != nil {
			if errors.Is(callErr, context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("%w: %v", ErrOracleTimeout, callErr)
			}
			return callErr
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("%w: empty completion", ErrOracleMalformed)
		}
		if validate != nil {
			if vErr := validate(out); vErr != nil {
				return fmt.Errorf("%w: %v", ErrOracleMalformed, vErr)
			}
		}
		answer = out
		return nil
	})
	span.SetAttributes(attribute.Int("agent.attempts", result.Attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Error("oracle call failed", "op", op, "attempts", result.Attempts, "error", err)
		return "", &OracleError{Role: a.role, Op: op, Attempts: result.Attempts, Err: err}
	}

	span.SetStatus(codes.Ok, "")
	return answer, nil
}

// ===== Shared prompt assembly =====

func (a *baseAgent) persona() string {
	return fmt.Sprintf("You are the %s (%s) on an autonomous executive board. "+
		"Stay strictly in role. Be concrete and concise.", a.title, strings.ToUpper(a.role))
}

func latestProposalText(rec *datatypes.SessionRecord) string {
	p, ok := rec.LatestProposal()
	if !ok {
		return "(no proposal drafted yet)"
	}
	return fmt.Sprintf("Proposal v%d by %s:\n%s", p.Version, p.Author, p.Content)
}

func transcriptText(entries []datatypes.TranscriptEntry) string {
	if len(entries) == 0 {
		return "(transcript empty)"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[round %d] %s: %s\n", e.Round, e.Speaker, e.Content)
	}
	return b.String()
}

// transcriptUpTo returns the entries strictly before round n, so a
// debate stance only sees what it is allowed to see.
func transcriptUpTo(entries []datatypes.TranscriptEntry, round int) []datatypes.TranscriptEntry {
	out := make([]datatypes.TranscriptEntry, 0, len(entries))
	for _, e := range entries {
		if e.Round < round {
			out = append(out, e)
		}
	}
	return out
}
