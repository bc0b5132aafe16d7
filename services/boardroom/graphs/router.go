// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// Route is the pure routing table: intent category to deliberation
// machine. Tested independently of the classification call.
func Route(category datatypes.IntentCategory) datatypes.MeetingType {
	switch category {
	case datatypes.IntentNewCategory, datatypes.IntentComplexStrategy:
		return datatypes.MeetingExplorationChat
	case datatypes.IntentTechFix:
		return datatypes.MeetingSelfHeal
	default:
		return datatypes.MeetingAsyncJoint
	}
}

// modeFor maps a meeting type to the session operating mode.
func modeFor(meeting datatypes.MeetingType) datatypes.Mode {
	switch meeting {
	case datatypes.MeetingExplorationChat, datatypes.MeetingOpenFloor:
		return datatypes.ModeExploration
	default:
		return datatypes.ModeExecution
	}
}

// Router classifies incoming requests and creates the session record
// each machine will drive. The classification itself is an oracle call
// and therefore non-deterministic; when it fails the router falls back
// to the execution path rather than refusing the request.
type Router struct {
	reg *agents.Registry
	log *logging.Logger
}

// NewRouter wires the intent router.
func NewRouter(reg *agents.Registry, log *logging.Logger) *Router {
	return &Router{reg: reg, log: log.With("component", "router")}
}

// Dispatch classifies the intent and returns a fresh record routed to
// its machine. The record is created in INIT; running it is the
// pipeline's job.
func (r *Router) Dispatch(ctx context.Context, intent string) (*datatypes.SessionRecord, datatypes.MeetingType, error) {
	category, err := r.reg.Coordinator().ParseIntent(ctx, intent)
	if err != nil {
		r.log.Warn("intent classification failed, routing to joint session", "error", err)
		category = ""
	}

	meeting := Route(category)
	rec := datatypes.NewSessionRecord(modeFor(meeting), intent)
	rec.IntentCategory = category
	rec.MeetingType = meeting
	if meeting == datatypes.MeetingSelfHeal {
		// A TECH_FIX arriving as a plain intent carries no structured
		// error report; the intent text is the best account we have,
		// so the loop can diagnose instead of refusing to start.
		rec.ErrorLog = &datatypes.ErrorLog{ToolName: "unreported", Message: intent}
	}

	r.log.Info("session routed", "trace_id", rec.TraceID,
		"category", category, "meeting", meeting)
	return rec, meeting, nil
}
