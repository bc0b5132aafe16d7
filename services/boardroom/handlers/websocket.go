// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/graphs"
	"github.com/boardroom-ai/boardroom/services/boardroom/storage"
)

// Frame is one live transcript event pushed to websocket subscribers.
type Frame struct {
	Type      string          `json:"type"` // "phase" or "turn"
	TraceID   string          `json:"trace_id"`
	Phase     datatypes.Phase `json:"phase"`
	Terminal  bool            `json:"terminal,omitempty"`
	Round     int             `json:"round,omitempty"`
	Speaker   string          `json:"speaker,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsPass    bool            `json:"is_pass,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

const subscriberBuffer = 64

// Hub fans machine progress events out to websocket subscribers, keyed
// by trace ID. It implements graphs.TransitionObserver; machines call
// it synchronously, so slow subscribers are dropped rather than waited
// on.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Frame]struct{}
	log  *logging.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[chan Frame]struct{}),
		log:  log.With("component", "transcript_hub"),
	}
}

// PhaseChanged implements graphs.TransitionObserver.
func (h *Hub) PhaseChanged(rec *datatypes.SessionRecord) {
	h.broadcast(rec.TraceID, Frame{
		Type:      "phase",
		TraceID:   rec.TraceID,
		Phase:     rec.Phase,
		Terminal:  rec.Phase.IsTerminal(),
		Timestamp: time.Now().UTC(),
	})
}

// TranscriptAppended implements graphs.TransitionObserver.
func (h *Hub) TranscriptAppended(rec *datatypes.SessionRecord, entry datatypes.TranscriptEntry) {
	h.broadcast(rec.TraceID, Frame{
		Type:      "turn",
		TraceID:   rec.TraceID,
		Phase:     rec.Phase,
		Round:     entry.Round,
		Speaker:   entry.Speaker,
		Role:      entry.Role,
		Content:   entry.Content,
		IsPass:    entry.IsPass,
		Timestamp: entry.Timestamp,
	})
}

// Subscribe registers a listener for one session's frames.
func (h *Hub) Subscribe(traceID string) chan Frame {
	ch := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[traceID] == nil {
		h.subs[traceID] = make(map[chan Frame]struct{})
	}
	h.subs[traceID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(traceID string, ch chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[traceID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.subs, traceID)
	}
	close(ch)
}

func (h *Hub) broadcast(traceID string, frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[traceID] {
		select {
		case ch <- frame:
		default:
			h.log.Warn("dropping frame for slow subscriber", "trace_id", traceID, "type", frame.Type)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
}

// StreamTranscript handles GET /v1/sessions/:id/transcript/ws.
//
// Replays the transcript recorded so far, then streams live frames
// until the session reaches a terminal phase or the client leaves.
func StreamTranscript(p *graphs.Pipeline, hub *Hub, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Param("id")
		logger := log.With("handler", "StreamTranscript", "trace_id", traceID)

		rec, err := p.Status(c.Request.Context(), traceID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
				return
			}
			logger.Error("status lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STREAM_FAILED"})
			return
		}

		// Subscribe before the replay so frames arriving during it are
		// buffered, not lost.
		sub := hub.Subscribe(traceID)
		defer hub.Unsubscribe(traceID, sub)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()
		logger.Info("transcript subscriber connected")

		for _, entry := range rec.MeetingTranscript {
			frame := Frame{
				Type:      "turn",
				TraceID:   rec.TraceID,
				Phase:     rec.Phase,
				Round:     entry.Round,
				Speaker:   entry.Speaker,
				Role:      entry.Role,
				Content:   entry.Content,
				IsPass:    entry.IsPass,
				Timestamp: entry.Timestamp,
			}
			if err := ws.WriteJSON(frame); err != nil {
				logger.Info("subscriber left during replay", "error", err)
				return
			}
		}
		if rec.Phase.IsTerminal() {
			_ = ws.WriteJSON(Frame{
				Type:      "phase",
				TraceID:   rec.TraceID,
				Phase:     rec.Phase,
				Terminal:  true,
				Timestamp: time.Now().UTC(),
			})
			return
		}

		// Read pump, only to detect disconnects.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case frame, ok := <-sub:
				if !ok {
					return
				}
				if err := ws.WriteJSON(frame); err != nil {
					logger.Info("transcript subscriber disconnected", "error", err)
					return
				}
				if frame.Type == "phase" && frame.Terminal {
					logger.Info("session terminal, closing stream", "phase", frame.Phase)
					return
				}
			case <-gone:
				logger.Info("transcript subscriber disconnected")
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}
