// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graphs implements the deliberation state machines (async
// joint session, adversarial hearing, exploration, open floor) and the
// self-healing loop, plus the intent router that dispatches between
// them. Each machine validates every phase change against an explicit
// transition table before mutating the session record.
package graphs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// ErrInvalidTransition indicates a phase change not present in the
// machine's transition table.
var ErrInvalidTransition = errors.New("invalid phase transition")

// StateMachine manages valid phase transitions for one deliberation
// graph. Each machine constructs its own table; the session record
// itself enforces terminal immutability underneath.
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	name string

	// transitions maps (from, to) pairs that are valid.
	transitions map[datatypes.Phase]map[datatypes.Phase]bool
}

func newStateMachine(name string) *StateMachine {
	return &StateMachine{
		name:        name,
		transitions: make(map[datatypes.Phase]map[datatypes.Phase]bool),
	}
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to datatypes.Phase) {
	if sm.transitions[from] == nil {
		sm.transitions[from] = make(map[datatypes.Phase]bool)
	}
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one phase to another is valid.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to datatypes.Phase) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition validates the phase change and applies it to the record.
// Returns ErrInvalidTransition (wrapped) when the table forbids it.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) Transition(rec *datatypes.SessionRecord, to datatypes.Phase) error {
	from := rec.Phase

	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, sm.name, from, to)
	}

	return rec.SetPhase(to)
}

// terminate validates the phase change and archives the outcome text
// on the record, making it immutable from here on.
func (sm *StateMachine) terminate(rec *datatypes.SessionRecord, to datatypes.Phase, outcome string) error {
	if !sm.CanTransition(rec.Phase, to) {
		return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, sm.name, rec.Phase, to)
	}
	return rec.Terminate(to, outcome)
}

// ValidTransitionsFrom returns all valid target phases from a given phase.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) ValidTransitionsFrom(from datatypes.Phase) []datatypes.Phase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var result []datatypes.Phase
	if toMap, ok := sm.transitions[from]; ok {
		for phase, valid := range toMap {
			if valid {
				result = append(result, phase)
			}
		}
	}
	return result
}
