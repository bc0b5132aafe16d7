// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the deliberation pipeline over HTTP. Every
// handler is a constructor closing over its collaborators so routes
// stay free of globals.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
	"github.com/boardroom-ai/boardroom/services/boardroom/graphs"
	"github.com/boardroom-ai/boardroom/services/boardroom/storage"
)

// StartSession handles POST /v1/sessions.
//
// Classifies the intent, persists the routed record, and drives the
// meeting in the background. Returns 202 with the trace ID so the
// caller can poll status or attach to the transcript stream.
func StartSession(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		logger := log.With("request_id", requestID, "handler", "StartSession")

		var req StartSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
			return
		}

		rec, err := p.Start(c.Request.Context(), req.Intent)
		if err != nil {
			logger.Error("session start failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "START_FAILED"})
			return
		}

		logger.Info("session started", "trace_id", rec.TraceID,
			"meeting", rec.MeetingType, "category", rec.IntentCategory)
		resp := sessionResponse(rec)
		driveInBackground(c, p, rec, logger)
		c.JSON(http.StatusAccepted, resp)
	}
}

// StartOpenFloor handles POST /v1/sessions/floor.
func StartOpenFloor(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		logger := log.With("request_id", requestID, "handler", "StartOpenFloor")

		var req StartFloorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
			return
		}

		rec, err := p.StartOpenFloor(c.Request.Context(), req.Topic)
		if err != nil {
			logger.Error("open floor start failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "START_FAILED"})
			return
		}

		logger.Info("open floor started", "trace_id", rec.TraceID)
		resp := sessionResponse(rec)
		driveInBackground(c, p, rec, logger)
		c.JSON(http.StatusAccepted, resp)
	}
}

// StartHeal handles POST /v1/sessions/heal.
func StartHeal(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		logger := log.With("request_id", requestID, "handler", "StartHeal")

		var req HealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
			return
		}

		rec, err := p.StartHeal(c.Request.Context(), datatypes.ErrorLog{
			ToolName:    req.ToolName,
			Message:     req.Message,
			Location:    req.Location,
			CurrentCode: req.CurrentCode,
		})
		if err != nil {
			logger.Error("heal start failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "START_FAILED"})
			return
		}

		logger.Info("self-heal started", "trace_id", rec.TraceID, "tool", req.ToolName)
		resp := sessionResponse(rec)
		driveInBackground(c, p, rec, logger)
		c.JSON(http.StatusAccepted, resp)
	}
}

// ResumeSession handles POST /v1/sessions/:id/resume.
//
// Applies the human principal's verdict to a session suspended at the
// checkpoint and runs the hearing to its next stopping point before
// responding, so the returned phase reflects the verdict.
func ResumeSession(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		traceID := c.Param("id")
		logger := log.With("request_id", requestID, "handler", "ResumeSession", "trace_id", traceID)

		var req ResumeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
			return
		}

		rec, err := p.Resume(c.Request.Context(), traceID, datatypes.L0Verdict(req.Verdict))
		if err != nil {
			status, code := resumeError(err)
			logger.Error("resume failed", "error", err)
			c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
			return
		}

		logger.Info("session resumed", "verdict", req.Verdict, "phase", rec.Phase)
		c.JSON(http.StatusOK, sessionResponse(rec))
	}
}

// GetStatus handles GET /v1/sessions/:id.
func GetStatus(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		traceID := c.Param("id")

		rec, err := p.Status(c.Request.Context(), traceID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
				return
			}
			log.With("request_id", requestID).Error("status lookup failed", "trace_id", traceID, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STATUS_FAILED"})
			return
		}

		c.JSON(http.StatusOK, sessionResponse(rec))
	}
}

// GetTranscript handles GET /v1/sessions/:id/transcript.
func GetTranscript(p *graphs.Pipeline, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := getOrCreateRequestID(c)
		traceID := c.Param("id")

		rec, err := p.Status(c.Request.Context(), traceID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
				return
			}
			log.With("request_id", requestID).Error("transcript lookup failed", "trace_id", traceID, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "TRANSCRIPT_FAILED"})
			return
		}

		c.JSON(http.StatusOK, TranscriptResponse{
			TraceID:    rec.TraceID,
			Phase:      rec.Phase,
			Transcript: rec.MeetingTranscript,
			Artifacts:  rec.Artifacts,
		})
	}
}

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "boardroom",
		"version": ServiceVersion,
	})
}

// driveInBackground hands the record to the pipeline on a detached
// context so the client disconnecting does not abort the deliberation.
// The record belongs to the driver goroutine from this point on:
// callers must take their response snapshot before calling.
func driveInBackground(c *gin.Context, p *graphs.Pipeline, rec *datatypes.SessionRecord, logger *logging.Logger) {
	ctx := context.WithoutCancel(c.Request.Context())
	traceID := rec.TraceID
	go func() {
		if err := p.Drive(ctx, rec); err != nil {
			logger.Error("background drive failed", "trace_id", traceID, "error", err)
		}
	}()
}

func resumeError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, graphs.ErrNotAwaitingVerdict):
		return http.StatusConflict, "NOT_AWAITING_VERDICT"
	case errors.Is(err, graphs.ErrSessionBusy):
		return http.StatusConflict, "SESSION_BUSY"
	default:
		return http.StatusInternalServerError, "RESUME_FAILED"
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
