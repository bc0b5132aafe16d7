// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the session record threaded through every
// deliberation stage, plus the small value types hanging off it.
//
// One SessionRecord exists per decision attempt. Exactly one pipeline
// goroutine mutates it at a time (single writer); concurrent sessions
// never share a record. Once the phase reaches a terminal value the
// record is archived and must not be mutated again — mutating methods
// enforce this with ErrSessionTerminal.
package datatypes

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Enumerations
// =============================================================================

// Mode is the operating mode a session runs in.
type Mode string

const (
	ModeExploration Mode = "EXPLORATION"
	ModeExecution   Mode = "EXECUTION"
)

// MeetingType names the deliberation machine driving a session.
type MeetingType string

const (
	MeetingAsyncJoint      MeetingType = "ASYNC_JOINT"
	MeetingAdversarial     MeetingType = "ADVERSARIAL_HEARING"
	MeetingExplorationChat MeetingType = "EXPLORATION_CHAT"
	MeetingOpenFloor       MeetingType = "OPEN_FLOOR"
	MeetingSelfHeal        MeetingType = "SELF_HEAL"
)

// Verdict is a single reviewer's judgment of the current proposal.
type Verdict string

const (
	VerdictPending Verdict = "PENDING"
	VerdictApprove Verdict = "APPROVE"
	VerdictReject  Verdict = "REJECT"
	VerdictVeto    Verdict = "VETO"
)

// L0Verdict is the human principal's decision on an escalated session.
// It is set only through the resume callback, never by a stage.
type L0Verdict string

const (
	L0Pending      L0Verdict = "PENDING"
	L0Approved     L0Verdict = "APPROVED"
	L0Rejected     L0Verdict = "REJECTED"
	L0Revise       L0Verdict = "REVISE"
	L0AutoApproved L0Verdict = "AUTO_APPROVED"
)

// IntentCategory is the router's classification of the original request.
type IntentCategory string

const (
	IntentNewCategory     IntentCategory = "NEW_CATEGORY"
	IntentProductLaunch   IntentCategory = "PRODUCT_LAUNCH"
	IntentSourcing        IntentCategory = "SOURCING"
	IntentTechFix         IntentCategory = "TECH_FIX"
	IntentComplexStrategy IntentCategory = "COMPLEX_STRATEGY"
)

// Phase is the free-form stage label each machine mutates as it runs.
// Terminal phases are a closed set per machine; IsTerminal covers the
// union.
type Phase string

const (
	PhaseInit Phase = "INIT"

	// Async joint session
	PhaseProposing  Phase = "PROPOSING"
	PhaseReviewing  Phase = "REVIEWING"
	PhaseAggregated Phase = "AGGREGATED"
	PhaseRevising   Phase = "REVISING"
	PhaseEscalated  Phase = "ESCALATED"

	// Adversarial hearing
	PhaseHearingOpened Phase = "HEARING_OPENED"
	PhaseDebating      Phase = "DEBATING"
	PhaseAwaitingL0    Phase = "AWAITING_L0"

	// Exploration / open floor
	PhaseExploring     Phase = "EXPLORING"
	PhaseChatting      Phase = "CHATTING"
	PhaseProposalReady Phase = "PROPOSAL_READY"
	PhaseFloorClosed   Phase = "FLOOR_CLOSED"

	// Self-heal
	PhaseDiagnosing Phase = "DIAGNOSING"
	PhaseRepairing  Phase = "REPAIRING"
	PhaseTesting    Phase = "TESTING"

	// Terminal phases
	PhaseApprovedExecuting     Phase = "APPROVED_EXECUTING"
	PhaseConservativeExecuting Phase = "CONSERVATIVE_EXECUTING"
	PhaseRejectedArchived      Phase = "REJECTED_ARCHIVED"
	PhaseHealed                Phase = "healed"
	PhaseBroken                Phase = "broken"
	PhaseNeedsHuman            Phase = "needs_human"
)

// terminalPhases is the closed set of phases after which a record is
// immutable and archived.
var terminalPhases = map[Phase]bool{
	PhaseApprovedExecuting:     true,
	PhaseConservativeExecuting: true,
	PhaseRejectedArchived:      true,
	PhaseProposalReady:         true,
	PhaseFloorClosed:           true,
	PhaseHealed:                true,
	PhaseBroken:                true,
	PhaseNeedsHuman:            true,
}

// IsTerminal reports whether the phase ends a session.
func (p Phase) IsTerminal() bool { return terminalPhases[p] }

// =============================================================================
// Sub-records
// =============================================================================

// CritiqueEntry is one reviewer's verdict and supporting analysis for
// the current proposal version.
type CritiqueEntry struct {
	Verdict  Verdict        `json:"verdict" validate:"required,oneof=PENDING APPROVE REJECT VETO"`
	Analysis string         `json:"analysis"`
	Data     map[string]any `json:"data,omitempty"`
}

// NewCritiqueEntry returns the pending placeholder every reviewer slot
// starts with.
func NewCritiqueEntry() CritiqueEntry {
	return CritiqueEntry{Verdict: VerdictPending, Data: map[string]any{}}
}

// DecisionMatrix holds the aggregated decision parameters computed by
// the coordinator after a review round. Computed once per aggregation.
type DecisionMatrix struct {
	ProfitPct float64 `json:"profit_pct"`
	RiskScore int     `json:"risk_score" validate:"gte=0,lte=5"`
	TechReady bool    `json:"tech_ready"`
	Consensus bool    `json:"consensus"`
	Summary   string  `json:"summary"`
}

// Proposal is one versioned entry in the proposal buffer. Version is
// the 1-based position; the buffer is append-only and never reordered.
type Proposal struct {
	Version   int       `json:"version" validate:"gte=1"`
	Author    string    `json:"author" validate:"required"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptEntry is one utterance in a meeting transcript.
type TranscriptEntry struct {
	Round     int       `json:"round"`
	Speaker   string    `json:"speaker" validate:"required"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	IsPass    bool      `json:"is_pass,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorLog describes the operational failure that triggered a
// self-healing session. Present only while that machine is active.
type ErrorLog struct {
	ToolName    string `json:"tool_name" validate:"required"`
	Message     string `json:"message"`
	Location    string `json:"location,omitempty"`
	CurrentCode string `json:"current_code,omitempty"`
}

// Artifact is a generated supporting document attached to the session,
// such as the hearing decision brief pushed to the human principal.
type Artifact struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// Session Record
// =============================================================================

// ReviewerRoles is the fixed set of critique_logs keys. Initialized at
// session creation and never added to or removed from afterwards.
var ReviewerRoles = []string{"coo", "cro", "cto"}

// ErrSessionTerminal is returned by mutating methods once the session
// has reached a terminal phase.
var ErrSessionTerminal = errors.New("session is terminal and immutable")

// ErrUnknownReviewer is returned when a critique is written for a role
// outside the fixed reviewer set.
var ErrUnknownReviewer = errors.New("unknown reviewer role")

// SessionRecord is the single mutable document for one decision
// attempt, threaded through every stage of its deliberation machine.
type SessionRecord struct {
	TraceID     string      `json:"trace_id" validate:"required,uuid4"`
	Mode        Mode        `json:"mode" validate:"required,oneof=EXPLORATION EXECUTION"`
	MeetingType MeetingType `json:"meeting_type,omitempty"`
	Phase       Phase       `json:"phase" validate:"required"`

	// Intent layer — set once by the router.
	StrategicIntent string         `json:"strategic_intent"`
	IntentCategory  IntentCategory `json:"intent_category,omitempty"`

	// Proposal layer — append-only.
	ProposalBuffer []Proposal `json:"proposal_buffer"`

	// Critique layer — fixed keys, values overwritten per round.
	CritiqueLogs map[string]CritiqueEntry `json:"critique_logs"`

	// Decision layer.
	DecisionMatrix DecisionMatrix `json:"decision_matrix"`
	L0VerdictValue L0Verdict      `json:"l0_verdict"`

	// Meeting transcript — append-only.
	MeetingTranscript []TranscriptEntry `json:"meeting_transcript"`
	Artifacts         []Artifact        `json:"artifacts,omitempty"`

	// System layer.
	IterationCount     int        `json:"iteration_count" validate:"gte=0"`
	ErrorLog           *ErrorLog  `json:"error_log,omitempty"`
	HealAttempts       int        `json:"heal_attempts"`
	CheckpointDeadline *time.Time `json:"checkpoint_deadline,omitempty"`

	// Outcome is the human-readable summary every terminal phase must
	// carry, sufficient to explain the result without the transcript.
	Outcome string `json:"outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var recordValidator = validator.New()

// NewSessionRecord creates a record in phase INIT with a fresh trace ID
// and the three reviewer slots initialized to PENDING.
func NewSessionRecord(mode Mode, strategicIntent string) *SessionRecord {
	now := time.Now().UTC()
	critiques := make(map[string]CritiqueEntry, len(ReviewerRoles))
	for _, role := range ReviewerRoles {
		critiques[role] = NewCritiqueEntry()
	}
	return &SessionRecord{
		TraceID:         uuid.NewString(),
		Mode:            mode,
		Phase:           PhaseInit,
		StrategicIntent: strategicIntent,
		ProposalBuffer:  []Proposal{},
		CritiqueLogs:    critiques,
		L0VerdictValue:  L0Pending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks structural invariants at a stage boundary. It fails
// when the reviewer set has drifted from the fixed three keys.
func (s *SessionRecord) Validate() error {
	if err := recordValidator.Struct(s); err != nil {
		return fmt.Errorf("session record validation: %w", err)
	}
	if len(s.CritiqueLogs) != len(ReviewerRoles) {
		return fmt.Errorf("critique_logs has %d keys, want %d", len(s.CritiqueLogs), len(ReviewerRoles))
	}
	for _, role := range ReviewerRoles {
		if _, ok := s.CritiqueLogs[role]; !ok {
			return fmt.Errorf("critique_logs missing fixed key %q", role)
		}
	}
	for i, p := range s.ProposalBuffer {
		if p.Version != i+1 {
			return fmt.Errorf("proposal_buffer[%d] has version %d, want %d", i, p.Version, i+1)
		}
	}
	return nil
}

// SetPhase moves the record to a new stage label and bumps UpdatedAt.
// Transition legality is the state machines' concern, not the record's;
// this only guards terminal immutability.
func (s *SessionRecord) SetPhase(p Phase) error {
	if s.Phase.IsTerminal() {
		return fmt.Errorf("cannot set phase %s: %w", p, ErrSessionTerminal)
	}
	s.Phase = p
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendProposal adds the next proposal version to the buffer and
// returns it. Versions are assigned here so callers cannot create gaps
// or collisions.
func (s *SessionRecord) AppendProposal(author, content string) (Proposal, error) {
	if s.Phase.IsTerminal() {
		return Proposal{}, ErrSessionTerminal
	}
	p := Proposal{
		Version:   len(s.ProposalBuffer) + 1,
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	s.ProposalBuffer = append(s.ProposalBuffer, p)
	s.UpdatedAt = p.Timestamp
	return p, nil
}

// LatestProposal returns the newest proposal version, or false when the
// buffer is still empty.
func (s *SessionRecord) LatestProposal() (Proposal, bool) {
	if len(s.ProposalBuffer) == 0 {
		return Proposal{}, false
	}
	return s.ProposalBuffer[len(s.ProposalBuffer)-1], true
}

// SetCritique overwrites one reviewer's entry. Only the fixed reviewer
// roles are accepted; the key set never changes after initialization.
func (s *SessionRecord) SetCritique(role string, entry CritiqueEntry) error {
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	if _, ok := s.CritiqueLogs[role]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReviewer, role)
	}
	s.CritiqueLogs[role] = entry
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendTranscript adds one utterance. Prior entries are never
// overwritten or removed.
func (s *SessionRecord) AppendTranscript(entry TranscriptEntry) error {
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.MeetingTranscript = append(s.MeetingTranscript, entry)
	s.UpdatedAt = entry.Timestamp
	return nil
}

// AppendArtifact attaches a generated document to the session.
func (s *SessionRecord) AppendArtifact(artifactType, content string) error {
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	s.Artifacts = append(s.Artifacts, Artifact{
		Type:      artifactType,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementIteration advances the revision counter. The counter is
// monotonically non-decreasing for the life of the session.
func (s *SessionRecord) IncrementIteration() error {
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	s.IterationCount++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementHealAttempts advances the repair counter. Capped by the
// self-healing loop, not here; the cap is loop policy.
func (s *SessionRecord) IncrementHealAttempts() error {
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	s.HealAttempts++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Terminate moves the record into a terminal phase with its outcome
// summary. After this call every mutating method fails.
func (s *SessionRecord) Terminate(p Phase, outcome string) error {
	if !p.IsTerminal() {
		return fmt.Errorf("phase %s is not terminal", p)
	}
	if s.Phase.IsTerminal() {
		return ErrSessionTerminal
	}
	s.Phase = p
	s.Outcome = outcome
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// VetoCount returns how many reviewers currently hold a VETO.
func (s *SessionRecord) VetoCount() int {
	n := 0
	for _, entry := range s.CritiqueLogs {
		if entry.Verdict == VerdictVeto {
			n++
		}
	}
	return n
}
