// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides pluggable reasoning backends for Boardroom role
// agents. Every backend is an opaque text-in/text-out function: it gets a
// role persona plus a prompt and returns unstructured text. Nothing in
// this package guarantees a schema on the returned text; callers that
// need structure must parse and validate it themselves.
package llm

import "context"

// GenerationParams carries per-call generation settings. Nil pointer
// fields mean "use the backend default".
type GenerationParams struct {
	// System is the persona/system prompt for this call. Role agents set
	// this to their role identity; an empty value falls back to the
	// backend's generic assistant persona.
	System string `json:"system"`

	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any reasoning backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
