// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// Coordinator is the GM seat. It never reviews or votes; it runs the
// synthesis calls the machines need between stages: aggregation into
// the decision matrix, hearing briefs, intent classification,
// convergence checks, speaker selection, and transcript-to-proposal
// drafting.
type Coordinator struct {
	baseAgent
}

// NewCoordinator returns the GM seat.
func NewCoordinator(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) *Coordinator {
	return &Coordinator{
		baseAgent: newBaseAgent("gm", "General Manager", client, cfg, log),
	}
}

// aggregateResponse is the structured block Aggregate demands from the
// oracle. Kept private; the machines only ever see the DecisionMatrix.
type aggregateResponse struct {
	ProfitPct float64 `json:"profit_pct"`
	RiskScore int     `json:"risk_score"`
	TechReady bool    `json:"tech_ready"`
	Consensus bool    `json:"consensus"`
	Summary   string  `json:"summary"`
}

// Aggregate synthesizes the three critiques into the decision matrix.
// It computes parameters only; it never decides — judging is the
// policy layer's job.
func (c *Coordinator) Aggregate(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.DecisionMatrix, error) {
	prompt := fmt.Sprintf("Synthesize the board's review round into decision parameters.\n\n"+
		"%s\n\nCritiques:\n%s\n\n"+
		"Respond with a single JSON object and nothing else:\n"+
		`{"profit_pct": <number>, "risk_score": <0-5>, "tech_ready": <bool>, `+
		`"consensus": <bool>, "summary": "<one paragraph>"}`,
		latestProposalText(rec), critiqueText(rec.CritiqueLogs))

	var parsed aggregateResponse
	_, err := c.thinkValidated(ctx, "aggregate", c.persona(), prompt, func(out string) error {
		return decodeJSONBlock(out, &parsed)
	})
	if err != nil {
		return datatypes.DecisionMatrix{}, err
	}
	if parsed.RiskScore < 0 {
		parsed.RiskScore = 0
	}
	if parsed.RiskScore > 5 {
		parsed.RiskScore = 5
	}
	return datatypes.DecisionMatrix{
		ProfitPct: parsed.ProfitPct,
		RiskScore: parsed.RiskScore,
		TechReady: parsed.TechReady,
		Consensus: parsed.Consensus,
		Summary:   parsed.Summary,
	}, nil
}

// Summarize condenses a finished four-round hearing cycle into the
// decision brief shown to the human principal.
func (c *Coordinator) Summarize(ctx context.Context, rec *datatypes.SessionRecord) (string, error) {
	prompt := fmt.Sprintf("The board held an adversarial hearing on:\n%s\n\n"+
		"Full transcript:\n%s\n\n"+
		"Write the decision brief for the principal: the opportunity case, the risk "+
		"case, the P&L arbitration, the feasibility ruling, and your recommendation.",
		rec.StrategicIntent, transcriptText(rec.MeetingTranscript))

	return c.think(ctx, "summarize", c.persona(), prompt)
}

// ParseIntent classifies the raw request into an intent category. The
// oracle call is non-deterministic; callers own the fallback when it
// fails or returns an unknown label.
func (c *Coordinator) ParseIntent(ctx context.Context, intent string) (datatypes.IntentCategory, error) {
	prompt := fmt.Sprintf("Classify this request into exactly one category:\n"+
		"NEW_CATEGORY (enter an unfamiliar market), PRODUCT_LAUNCH, SOURCING, "+
		"TECH_FIX (a tool or system is broken), COMPLEX_STRATEGY (open-ended, multi-quarter).\n\n"+
		"Request:\n%s\n\nRespond with the category name only.", intent)

	known := map[string]datatypes.IntentCategory{
		"NEW_CATEGORY":     datatypes.IntentNewCategory,
		"PRODUCT_LAUNCH":   datatypes.IntentProductLaunch,
		"SOURCING":         datatypes.IntentSourcing,
		"TECH_FIX":         datatypes.IntentTechFix,
		"COMPLEX_STRATEGY": datatypes.IntentComplexStrategy,
	}

	out, err := c.thinkValidated(ctx, "parse_intent", c.persona(), prompt, func(out string) error {
		if _, ok := known[normalizeLabel(out)]; !ok {
			return fmt.Errorf("unknown category %q", strings.TrimSpace(out))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return known[normalizeLabel(out)], nil
}

// CheckConvergence asks whether an exploration discussion has resolved
// into a clear direction.
func (c *Coordinator) CheckConvergence(ctx context.Context, rec *datatypes.SessionRecord) (bool, error) {
	prompt := fmt.Sprintf("The board is exploring:\n%s\n\nTranscript:\n%s\n\n"+
		"Has the discussion converged on a clear direction the board could draft as a "+
		"proposal? Answer YES or NO on the first line, then one sentence of reasoning.",
		rec.StrategicIntent, transcriptText(rec.MeetingTranscript))

	out, err := c.think(ctx, "check_convergence", c.persona(), prompt)
	if err != nil {
		return false, err
	}
	first := strings.ToUpper(strings.TrimSpace(strings.SplitN(out, "\n", 2)[0]))
	return strings.HasPrefix(first, "YES"), nil
}

// PickSpeaker names the next speaker in a free discussion, or "nobody"
// to close the floor. Callers fall back to the deterministic picker
// when this errors.
func (c *Coordinator) PickSpeaker(ctx context.Context, rec *datatypes.SessionRecord, candidates []string) (string, error) {
	prompt := fmt.Sprintf("Open floor discussion on:\n%s\n\nTranscript:\n%s\n\n"+
		"Who should speak next? Favor whoever the discussion needs: roles addressed by "+
		"name, roles that have spoken least, never the previous speaker. "+
		"Candidates: %s. Answer with one candidate name, or \"nobody\" if the "+
		"discussion is finished.",
		rec.StrategicIntent, transcriptText(rec.MeetingTranscript), strings.Join(candidates, ", "))

	valid := map[string]bool{"nobody": true}
	for _, cand := range candidates {
		valid[cand] = true
	}
	out, err := c.thinkValidated(ctx, "pick_speaker", c.persona(), prompt, func(out string) error {
		if !valid[normalizeName(out)] {
			return fmt.Errorf("not a candidate: %q", strings.TrimSpace(out))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return normalizeName(out), nil
}

// DraftProposal synthesizes a full exploration transcript into a
// proposal draft for the session buffer.
func (c *Coordinator) DraftProposal(ctx context.Context, rec *datatypes.SessionRecord) (datatypes.Proposal, error) {
	prompt := fmt.Sprintf("The exploration below has ended. Synthesize the transcript "+
		"into one concrete proposal: objective, plan, resources, expected return.\n\n"+
		"Topic:\n%s\n\nTranscript:\n%s", rec.StrategicIntent, transcriptText(rec.MeetingTranscript))

	content, err := c.think(ctx, "draft_proposal", c.persona(), prompt)
	if err != nil {
		return datatypes.Proposal{}, err
	}
	return datatypes.Proposal{Author: c.role, Content: content}, nil
}

// ===== Parsing helpers =====

// decodeJSONBlock unmarshals the first top-level JSON object found in
// the completion, tolerating markdown fences and surrounding prose.
func decodeJSONBlock(out string, v any) error {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in completion")
	}
	return json.Unmarshal([]byte(out[start:end+1]), v)
}

func normalizeLabel(out string) string {
	s := strings.ToUpper(strings.TrimSpace(out))
	s = strings.Trim(s, "`*\".")
	// Take the first token; some backends answer "TECH_FIX — the ..."
	if i := strings.IndexAny(s, " \n\t"); i > 0 {
		s = s[:i]
	}
	return s
}

func normalizeName(out string) string {
	s := strings.ToLower(strings.TrimSpace(out))
	s = strings.Trim(s, "`*\".")
	if i := strings.IndexAny(s, " \n\t"); i > 0 {
		s = s[:i]
	}
	return s
}
