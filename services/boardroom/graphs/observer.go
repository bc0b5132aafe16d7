// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphs

import (
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// TransitionObserver receives machine progress events. The pipeline
// uses it to stream transcript frames to websocket subscribers and to
// bump metrics; machines call it synchronously, so implementations
// must not block.
type TransitionObserver interface {
	// PhaseChanged fires after every successful phase transition,
	// including terminal ones.
	PhaseChanged(rec *datatypes.SessionRecord)

	// TranscriptAppended fires after a debate or discussion turn has
	// been recorded on the session.
	TranscriptAppended(rec *datatypes.SessionRecord, entry datatypes.TranscriptEntry)
}

// Option configures a machine at construction time.
type Option func(*TransitionObserver)

// WithObserver attaches a progress observer to a machine.
func WithObserver(o TransitionObserver) Option {
	return func(target *TransitionObserver) {
		if o != nil {
			*target = o
		}
	}
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(*datatypes.SessionRecord) {}

func (nopObserver) TranscriptAppended(*datatypes.SessionRecord, datatypes.TranscriptEntry) {}
