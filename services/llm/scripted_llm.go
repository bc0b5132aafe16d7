// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ScriptedClient is a deterministic LLMClient used in tests and offline
// demos. Responses are served from a queue in FIFO order; rules matched
// on prompt substrings take priority over the queue.
//
// Thread safety: safe for concurrent use, though deliberation pipelines
// call it sequentially per session.
type ScriptedClient struct {
	mu        sync.Mutex
	queue     []string
	rules     []scriptedRule
	calls     []ScriptedCall
	failNext  error
	exhausted string
}

type scriptedRule struct {
	substring string
	response  string
}

// ScriptedCall records one Generate invocation for assertions.
type ScriptedCall struct {
	System string
	Prompt string
}

// NewScriptedClient returns a client that replies with the given
// responses in order. When the queue runs dry it replies with a fixed
// placeholder instead of failing, so long loops terminate predictably.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{
		queue:     append([]string(nil), responses...),
		exhausted: "ACKNOWLEDGED.",
	}
}

// OnPrompt registers a canned response for any prompt containing the
// given substring. Rules are checked in registration order before the
// queue is consulted.
func (s *ScriptedClient) OnPrompt(substring, response string) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptedRule{substring: substring, response: response})
	return s
}

// Enqueue appends responses to the FIFO queue.
func (s *ScriptedClient) Enqueue(responses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, responses...)
}

// FailNext makes the next Generate call return err once.
func (s *ScriptedClient) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Calls returns a copy of every recorded invocation.
func (s *ScriptedClient) Calls() []ScriptedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScriptedCall(nil), s.calls...)
}

// CallCount returns how many times Generate has been invoked.
func (s *ScriptedClient) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Generate implements the LLMClient interface.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("scripted client: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ScriptedCall{System: params.System, Prompt: prompt})

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return "", err
	}

	for _, rule := range s.rules {
		if rule.substring != "" && strings.Contains(prompt, rule.substring) {
			return rule.response, nil
		}
	}

	if len(s.queue) > 0 {
		head := s.queue[0]
		s.queue = s.queue[1:]
		return head, nil
	}
	return s.exhausted, nil
}
