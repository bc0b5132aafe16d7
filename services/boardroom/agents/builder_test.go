// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

func TestRepairBuilder_BuildExtractsFencedCode(t *testing.T) {
	client := llm.NewScriptedClient(
		"The scraper ignores HTTP 429 responses.",
		"```python\nimport time\n\ndef fetch(url):\n    time.sleep(1)\n```",
		"Here is the test:\n```python\nfetch(\"http://example.com\")\n```",
	)
	b := NewRepairBuilder(client, testOracleConfig(), testLogger(t))

	rec := newSession(t, "heal the failing tool")
	rec.ErrorLog = &datatypes.ErrorLog{
		ToolName: "pricing-scraper",
		Message:  "rate limited",
		Location: "tools/pricing.py",
	}

	candidate, err := b.Build(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "The scraper ignores HTTP 429 responses.", candidate.Analysis)
	assert.Equal(t, "import time\n\ndef fetch(url):\n    time.sleep(1)", candidate.Code)
	assert.Equal(t, "fetch(\"http://example.com\")", candidate.TestCode)
	assert.Equal(t, 3, client.CallCount())
}

func TestRepairBuilder_RetriesWhenNoCodeReturned(t *testing.T) {
	cfg := testOracleConfig()
	cfg.MaxRetries = 2
	client := llm.NewScriptedClient(
		"analysis",
		"I cannot produce code right now.", // rejected, retried
		"```sh\necho fixed\n```",
		"```sh\nexit 0\n```",
	)
	b := NewRepairBuilder(client, cfg, testLogger(t))

	rec := newSession(t, "heal the failing tool")
	rec.ErrorLog = &datatypes.ErrorLog{ToolName: "t", Message: "m"}

	candidate, err := b.Build(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "echo fixed", candidate.Code)
	assert.Equal(t, "exit 0", candidate.TestCode)
}

func TestRepairBuilder_RequiresErrorLog(t *testing.T) {
	b := NewRepairBuilder(llm.NewScriptedClient(), testOracleConfig(), testLogger(t))

	_, err := b.Build(context.Background(), newSession(t, "heal the failing tool"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no error log")
}

func TestRequireCodeBlock_RejectsUnfencedProse(t *testing.T) {
	assert.Error(t, requireCodeBlock("I cannot produce code right now."),
		"a refusal with no fence must not pass as code")
	assert.Error(t, requireCodeBlock("```sh\n\n```"), "an empty fence is not code")
	assert.NoError(t, requireCodeBlock("Sure:\n```sh\nls\n```"))
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced with language", "```python\nx = 1\n```", "x = 1"},
		{"fenced without language", "```\nx = 1\n```", "x = 1"},
		{"prose around the fence", "Sure:\n```sh\nls\n```\nDone.", "ls"},
		{"no fence", "x = 1", "x = 1"},
		{"unterminated fence", "```sh\nls", "ls"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCodeBlock(tt.in))
		})
	}
}
