// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"fmt"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// Registry wires the five seats over one shared LLM client and hands
// them to the state machines by role.
type Registry struct {
	coordinator *Coordinator
	seats       map[string]RoleAgent
}

// NewRegistry builds the full board.
func NewRegistry(client llm.LLMClient, cfg config.OracleConfig, log *logging.Logger) *Registry {
	return &Registry{
		coordinator: NewCoordinator(client, cfg, log),
		seats: map[string]RoleAgent{
			"cgo": NewGrowthAgent(client, cfg, log),
			"coo": NewOperationsAgent(client, cfg, log),
			"cro": NewRiskAgent(client, cfg, log),
			"cto": NewTechnologyAgent(client, cfg, log),
		},
	}
}

// Coordinator returns the GM seat.
func (r *Registry) Coordinator() *Coordinator { return r.coordinator }

// Proposer returns the seat that drafts proposals in joint sessions.
func (r *Registry) Proposer() RoleAgent { return r.seats["cgo"] }

// Seat returns the agent for a role key.
func (r *Registry) Seat(role string) (RoleAgent, error) {
	agent, ok := r.seats[role]
	if !ok {
		return nil, fmt.Errorf("no agent registered for role %q", role)
	}
	return agent, nil
}

// DebateOrder returns the fixed hearing and exploration speaking
// order: growth, risk, operations, technology.
func (r *Registry) DebateOrder() []RoleAgent {
	return []RoleAgent{r.seats["cgo"], r.seats["cro"], r.seats["coo"], r.seats["cto"]}
}

// SeatRoles returns the non-coordinator role keys in debate order.
func (r *Registry) SeatRoles() []string {
	return []string{"cgo", "cro", "coo", "cto"}
}
