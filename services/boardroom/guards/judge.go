// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package guards holds the pure decision functions of the deliberation
// core: the auto-judge policy and verdict extraction. Nothing in this
// package performs I/O, reads a clock, or keeps state — every function
// is deterministic and idempotent for identical inputs, which the tests
// rely on.
package guards

import (
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// Decision is the auto-judge outcome for an aggregated review round.
type Decision string

const (
	// DecisionAutoApprove executes the proposal without human input.
	DecisionAutoApprove Decision = "auto_approve"

	// DecisionRevise sends the proposal back for another draft.
	DecisionRevise Decision = "revise"

	// DecisionEscalate hands the session to an adversarial hearing.
	DecisionEscalate Decision = "escalate"
)

// vetoEscalationCount is fixed policy, not configuration: two of the
// three reviewers vetoing always forces a hearing.
const vetoEscalationCount = 2

// Judge applies the auto-approval policy to an aggregated review round.
//
// Rules, evaluated in order:
//  1. auto_approve when all four matrix gates pass (profit above the
//     threshold, risk at or below the threshold, tech ready, consensus).
//  2. escalate when at least two reviewers hold a VETO.
//  3. escalate when the revision cycle has exhausted max iterations.
//  4. revise otherwise.
func Judge(matrix datatypes.DecisionMatrix, critiques map[string]datatypes.CritiqueEntry,
	iterationCount int, thresholds config.ThresholdConfig) Decision {

	if matrix.ProfitPct > thresholds.ProfitPct &&
		matrix.RiskScore <= thresholds.RiskScore &&
		matrix.TechReady &&
		matrix.Consensus {
		return DecisionAutoApprove
	}

	vetoes := 0
	for _, entry := range critiques {
		if entry.Verdict == datatypes.VerdictVeto {
			vetoes++
		}
	}
	if vetoes >= vetoEscalationCount {
		return DecisionEscalate
	}

	if iterationCount >= thresholds.MaxIterations {
		return DecisionEscalate
	}

	return DecisionRevise
}
