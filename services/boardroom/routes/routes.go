// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes registers the boardroom HTTP surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/graphs"
	"github.com/boardroom-ai/boardroom/services/boardroom/handlers"
)

// SetupRoutes registers all boardroom endpoints with the router.
//
// Endpoints:
//
//	GET  /health - Liveness probe
//	GET  /metrics - Prometheus metrics
//
//	POST /v1/sessions - Start a routed deliberation from an intent
//	POST /v1/sessions/floor - Start a free-discussion session
//	POST /v1/sessions/heal - Start a self-healing session
//	GET  /v1/sessions/:id - Session status snapshot
//	POST /v1/sessions/:id/resume - Apply the human verdict at the checkpoint
//	GET  /v1/sessions/:id/transcript - Full transcript and artifacts
//	GET  /v1/sessions/:id/transcript/ws - Live transcript stream
func SetupRoutes(router *gin.Engine, p *graphs.Pipeline, hub *handlers.Hub, log *logging.Logger) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.StartSession(p, log))
			sessions.POST("/floor", handlers.StartOpenFloor(p, log))
			sessions.POST("/heal", handlers.StartHeal(p, log))
			sessions.GET("/:id", handlers.GetStatus(p, log))
			sessions.POST("/:id/resume", handlers.ResumeSession(p, log))
			sessions.GET("/:id/transcript", handlers.GetTranscript(p, log))
			sessions.GET("/:id/transcript/ws", handlers.StreamTranscript(p, hub, log))
		}
	}
}
