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
	"strings"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// RepairCandidate is one rebuild attempt: the root-cause analysis, the
// replacement code, and the test that must pass in the sandbox before
// the candidate can be deployed.
type RepairCandidate struct {
	Analysis string
	Code     string
	TestCode string
}

// RepairBuilder is the code-generation collaborator of the
// self-healing loop. One Build is three oracle calls in sequence:
// analyze the failure, generate the fix, generate its test.
type RepairBuilder struct {
	baseAgent
}

// NewRepairBuilder returns a builder over the shared oracle client.
func NewRepairBuilder(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) *RepairBuilder {
	return &RepairBuilder{
		baseAgent: newBaseAgent("builder", "Staff Engineer", client, cfg, log),
	}
}

// Build produces one repair candidate for the session's error log.
func (b *RepairBuilder) Build(ctx context.Context, rec *datatypes.SessionRecord) (RepairCandidate, error) {
	if rec.ErrorLog == nil {
		return RepairCandidate{}, fmt.Errorf("builder: no error log on session %s", rec.TraceID)
	}
	errLog := rec.ErrorLog

	analysis, err := b.think(ctx, "analyze", b.persona(), fmt.Sprintf(
		"Tool %q failed with:\n%s\nLocation: %s\n\nCurrent code:\n%s\n\n"+
			"Analyze the root cause and state what must change.",
		errLog.ToolName, errLog.Message, errLog.Location, errLog.CurrentCode))
	if err != nil {
		return RepairCandidate{}, err
	}

	code, err := b.thinkValidated(ctx, "generate_fix", b.persona(), fmt.Sprintf(
		"Based on this analysis:\n%s\n\nRewrite the tool code with the fix applied. "+
			"Respond with a single fenced code block and nothing else.", analysis),
		requireCodeBlock)
	if err != nil {
		return RepairCandidate{}, err
	}

	testCode, err := b.thinkValidated(ctx, "generate_test", b.persona(), fmt.Sprintf(
		"Write a self-contained test script for the fixed code below. It must exit "+
			"non-zero on failure. Respond with a single fenced code block and nothing else.\n\n%s",
		extractCodeBlock(code)),
		requireCodeBlock)
	if err != nil {
		return RepairCandidate{}, err
	}

	return RepairCandidate{
		Analysis: analysis,
		Code:     extractCodeBlock(code),
		TestCode: extractCodeBlock(testCode),
	}, nil
}

// extractCodeBlock strips a markdown fence when present; otherwise the
// completion is taken verbatim.
func extractCodeBlock(out string) string {
	s := strings.TrimSpace(out)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	s = s[start+3:]
	// Drop the language tag line.
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func requireCodeBlock(out string) error {
	if !strings.Contains(out, "```") {
		return fmt.Errorf("no fenced code block in completion")
	}
	if extractCodeBlock(out) == "" {
		return fmt.Errorf("empty code block in completion")
	}
	return nil
}
