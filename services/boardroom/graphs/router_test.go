// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// The routing table is pure and tested independently of the
// classification call.
func TestRoute(t *testing.T) {
	tests := []struct {
		category datatypes.IntentCategory
		want     datatypes.MeetingType
	}{
		{datatypes.IntentNewCategory, datatypes.MeetingExplorationChat},
		{datatypes.IntentComplexStrategy, datatypes.MeetingExplorationChat},
		{datatypes.IntentTechFix, datatypes.MeetingSelfHeal},
		{datatypes.IntentProductLaunch, datatypes.MeetingAsyncJoint},
		{datatypes.IntentSourcing, datatypes.MeetingAsyncJoint},
		{datatypes.IntentCategory(""), datatypes.MeetingAsyncJoint},
		{datatypes.IntentCategory("SOMETHING_NEW"), datatypes.MeetingAsyncJoint},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.category))
		})
	}
}

func TestDispatch_RoutesClassifiedIntent(t *testing.T) {
	client := llm.NewScriptedClient("COMPLEX_STRATEGY")
	r := NewRouter(testRegistry(t, client), testLogger(t))

	rec, meeting, err := r.Dispatch(context.Background(), "rethink our five-year positioning")
	require.NoError(t, err)

	assert.Equal(t, datatypes.MeetingExplorationChat, meeting)
	assert.Equal(t, datatypes.IntentComplexStrategy, rec.IntentCategory)
	assert.Equal(t, datatypes.ModeExploration, rec.Mode)
	assert.Equal(t, datatypes.PhaseInit, rec.Phase)
	assert.Equal(t, "rethink our five-year positioning", rec.StrategicIntent)
	assert.NotEmpty(t, rec.TraceID)
}

func TestDispatch_ClassificationFailureFallsBackToJointSession(t *testing.T) {
	// The oracle never returns a known category; the router still
	// creates a runnable session rather than refusing the request.
	client := llm.NewScriptedClient("UNHELPFUL ANSWER")
	r := NewRouter(testRegistry(t, client), testLogger(t))

	rec, meeting, err := r.Dispatch(context.Background(), "do the thing")
	require.NoError(t, err)

	assert.Equal(t, datatypes.MeetingAsyncJoint, meeting)
	assert.Equal(t, datatypes.ModeExecution, rec.Mode)
	assert.Empty(t, rec.IntentCategory)
}

func TestDispatch_TechFixIntentCarriesAnErrorLog(t *testing.T) {
	// A TECH_FIX routed from a plain intent has no structured error
	// report; the router synthesizes one so the repair loop can run.
	client := llm.NewScriptedClient("TECH_FIX")
	r := NewRouter(testRegistry(t, client), testLogger(t))

	rec, meeting, err := r.Dispatch(context.Background(), "the pricing scraper keeps timing out")
	require.NoError(t, err)

	assert.Equal(t, datatypes.MeetingSelfHeal, meeting)
	require.NotNil(t, rec.ErrorLog)
	assert.Equal(t, "unreported", rec.ErrorLog.ToolName)
	assert.Equal(t, "the pricing scraper keeps timing out", rec.ErrorLog.Message)
}

func TestDispatch_DistinctTraceIDs(t *testing.T) {
	client := llm.NewScriptedClient("SOURCING", "SOURCING")
	r := NewRouter(testRegistry(t, client), testLogger(t))

	a, _, err := r.Dispatch(context.Background(), "find a supplier")
	require.NoError(t, err)
	b, _, err := r.Dispatch(context.Background(), "find a supplier")
	require.NoError(t, err)
	assert.NotEqual(t, a.TraceID, b.TraceID)
}
