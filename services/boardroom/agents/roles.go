// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/guards"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// seatAgent is a non-coordinator seat at the table. All four seats
// share the same mechanics; only the persona, review focus, and debate
// stance differ.
type seatAgent struct {
	baseAgent
	reviewFocus  string
	debateStance string
}

// NewGrowthAgent returns the CGO seat: proposer in joint sessions,
// opportunity advocate in hearings.
func NewGrowthAgent(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) RoleAgent {
	return &seatAgent{
		baseAgent: newBaseAgent("cgo", "Chief Growth Officer", client, cfg, log),
		reviewFocus: "market opportunity, revenue upside, and speed to market. " +
			"Challenge timid plans.",
		debateStance: "Present the strongest case FOR this opportunity: market size, " +
			"expected upside, and why acting now beats waiting.",
	}
}

// NewRiskAgent returns the CRO seat: downside analysis and rebuttal.
func NewRiskAgent(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) RoleAgent {
	return &seatAgent{
		baseAgent: newBaseAgent("cro", "Chief Risk Officer", client, cfg, log),
		reviewFocus: "downside exposure, regulatory and counterparty risk, and failure " +
			"modes the draft ignores. Use VETO only for unacceptable risk.",
		debateStance: "Rebut the opportunity case point by point. For every claim made " +
			"so far, state the concrete risk that undercuts it.",
	}
}

// NewOperationsAgent returns the COO seat: execution cost and P&L.
func NewOperationsAgent(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) RoleAgent {
	return &seatAgent{
		baseAgent: newBaseAgent("coo", "Chief Operating Officer", client, cfg, log),
		reviewFocus: "operational feasibility, staffing, logistics, and unit economics. " +
			"Flag anything the team cannot actually execute.",
		debateStance: "Arbitrate the dispute so far with numbers: build a simple " +
			"profit/loss model from the claims on both sides and state which side " +
			"the model favors.",
	}
}

// NewTechnologyAgent returns the CTO seat: feasibility ruling.
func NewTechnologyAgent(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) RoleAgent {
	return &seatAgent{
		baseAgent: newBaseAgent("cto", "Chief Technology Officer", client, cfg, log),
		reviewFocus: "technical feasibility, build vs buy, integration effort, and " +
			"platform risk.",
		debateStance: "Issue the final feasibility ruling: given everything said so " +
			"far, can the proposal be built and operated as described? State blockers " +
			"explicitly.",
	}
}

// ===== RoleAgent implementation =====

func (a *seatAgent) Propose(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.Proposal, error) {
	prompt := fmt.Sprintf("Strategic intent:\n%s\n\n", rec.StrategicIntent)
	if _, ok := rec.LatestProposal(); ok {
		prompt += fmt.Sprintf("Previous draft and board feedback follow. Produce a revised "+
			"proposal that addresses every objection.\n\n%s\n\nFeedback:\n%s\n",
			latestProposalText(rec), critiqueText(rec.CritiqueLogs))
	} else {
		prompt += "Draft the initial proposal: objective, plan of action, required " +
			"resources, and expected return.\n"
	}

	content, err := a.think(ctx, "propose", a.persona(), prompt)
	if err != nil {
		return datatypes.Proposal{}, err
	}
	return datatypes.Proposal{Author: a.role, Content: content}, nil
}

func (a *seatAgent) Review(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.CritiqueEntry, error) {
	prompt := fmt.Sprintf("Review the proposal below. Your focus: %s\n\n%s\n\n"+
		"End your analysis with exactly one line: VERDICT: APPROVE, VERDICT: REJECT, "+
		"or VERDICT: VETO.",
		a.reviewFocus, latestProposalText(rec))

	analysis, err := a.think(ctx, "review", a.persona(), prompt)
	if err != nil {
		return datatypes.CritiqueEntry{}, err
	}
	entry := datatypes.NewCritiqueEntry()
	entry.Verdict = guards.ResolveVerdict(analysis)
	entry.Analysis = analysis
	return entry, nil
}

func (a *seatAgent) Debate(ctx context.Context, rec *datatypes.SessionRecord, round int) (datatypes.TranscriptEntry, error) {
	visible := transcriptUpTo(rec.MeetingTranscript, round)
	prompt := fmt.Sprintf("Topic:\n%s\n\n%s\n\nTranscript so far:\n%s\n\nSpeak now, round %d.",
		rec.StrategicIntent, a.debateStance, transcriptText(visible), round)

	content, err := a.think(ctx, "debate", a.persona(), prompt)
	if err != nil {
		return datatypes.TranscriptEntry{}, err
	}
	return datatypes.TranscriptEntry{Round: round, Speaker: a.role, Role: a.title, Content: content}, nil
}

func (a *seatAgent) Diagnose(ctx context.Context, rec *datatypes.SessionRecord) (string, error) {
	if rec.ErrorLog == nil {
		return "", fmt.Errorf("agent %s: diagnose called without an error log", a.role)
	}
	prompt := fmt.Sprintf("A tool in production failed. Diagnose the root cause.\n\n"+
		"Tool: %s\nError: %s\nLocation: %s\n\nCurrent code:\n%s\n\n"+
		"Classify the failure in one word first (REBUILD, CONFIG, or NETWORK), then explain.",
		rec.ErrorLog.ToolName, rec.ErrorLog.Message, rec.ErrorLog.Location, rec.ErrorLog.CurrentCode)

	return a.think(ctx, "diagnose", a.persona(), prompt)
}

func critiqueText(logs map[string]datatypes.CritiqueEntry) string {
	out := ""
	for _, role := range datatypes.ReviewerRoles {
		entry, ok := logs[role]
		if !ok || entry.Verdict == datatypes.VerdictPending {
			continue
		}
		out += fmt.Sprintf("%s [%s]: %s\n", role, entry.Verdict, entry.Analysis)
	}
	if out == "" {
		return "(no feedback yet)"
	}
	return out
}
