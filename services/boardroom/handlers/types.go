// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"time"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// ServiceVersion is the boardroom service version.
const ServiceVersion = "0.1.0"

// StartSessionRequest starts a routed deliberation from a strategic
// intent. The router decides which meeting handles it.
type StartSessionRequest struct {
	Intent string `json:"intent" binding:"required"`
}

// StartFloorRequest opens a free-discussion session on a topic.
type StartFloorRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// HealRequest reports an operational tool failure for self-healing.
type HealRequest struct {
	ToolName    string `json:"tool_name" binding:"required"`
	Message     string `json:"message" binding:"required"`
	Location    string `json:"location,omitempty"`
	CurrentCode string `json:"current_code,omitempty"`
}

// ResumeRequest carries the human principal's verdict for a session
// suspended at the checkpoint.
type ResumeRequest struct {
	Verdict string `json:"verdict" binding:"required,oneof=APPROVED REJECTED REVISE"`
}

// SessionResponse is the session snapshot returned by the start,
// resume, and status endpoints.
type SessionResponse struct {
	TraceID            string                   `json:"trace_id"`
	Mode               datatypes.Mode           `json:"mode"`
	MeetingType        datatypes.MeetingType    `json:"meeting_type,omitempty"`
	Phase              datatypes.Phase          `json:"phase"`
	IntentCategory     datatypes.IntentCategory `json:"intent_category,omitempty"`
	L0Verdict          datatypes.L0Verdict      `json:"l0_verdict"`
	IterationCount     int                      `json:"iteration_count"`
	ProposalVersions   int                      `json:"proposal_versions"`
	TranscriptTurns    int                      `json:"transcript_turns"`
	CheckpointDeadline *time.Time               `json:"checkpoint_deadline,omitempty"`
	Outcome            string                   `json:"outcome,omitempty"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// TranscriptResponse is the full meeting transcript plus any attached
// artifacts, such as the hearing decision brief.
type TranscriptResponse struct {
	TraceID    string                      `json:"trace_id"`
	Phase      datatypes.Phase             `json:"phase"`
	Transcript []datatypes.TranscriptEntry `json:"transcript"`
	Artifacts  []datatypes.Artifact        `json:"artifacts,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func sessionResponse(rec *datatypes.SessionRecord) SessionResponse {
	return SessionResponse{
		TraceID:            rec.TraceID,
		Mode:               rec.Mode,
		MeetingType:        rec.MeetingType,
		Phase:              rec.Phase,
		IntentCategory:     rec.IntentCategory,
		L0Verdict:          rec.L0VerdictValue,
		IterationCount:     rec.IterationCount,
		ProposalVersions:   len(rec.ProposalBuffer),
		TranscriptTurns:    len(rec.MeetingTranscript),
		CheckpointDeadline: rec.CheckpointDeadline,
		Outcome:            rec.Outcome,
		UpdatedAt:          rec.UpdatedAt,
	}
}
