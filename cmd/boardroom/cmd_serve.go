// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/agents"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/graphs"
	"github.com/boardroom-ai/boardroom/services/boardroom/handlers"
	"github.com/boardroom-ai/boardroom/services/boardroom/routes"
	"github.com/boardroom-ai/boardroom/services/boardroom/sandbox"
	"github.com/boardroom-ai/boardroom/services/boardroom/storage"
	"github.com/boardroom-ai/boardroom/services/llm"
)

// expireSweepInterval is how often suspended hearings are checked for
// a passed verdict deadline.
const expireSweepInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the boardroom HTTP service",
	Long: `Starts the deliberation service: the session API, the live
transcript stream, the Prometheus metrics endpoint, the config
watcher, and the checkpoint expiry sweeper.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Snapshot()

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  "~/.boardroom/logs",
		Service: "boardroom",
	})
	defer logger.Close()
	logger.SetAsDefault()

	shutdownTracer, err := initTracer()
	if err != nil {
		return fmt.Errorf("tracer setup: %w", err)
	}
	defer shutdownTracer(context.Background())

	client, err := newLLMClient(cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	store, err := storage.Open(storage.Config{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: true,
		Logger:     logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer store.Close()

	reg := agents.NewRegistry(client, cfg.Oracle, logger)
	builder := agents.NewRepairBuilder(client, cfg.Oracle, logger)
	executor := sandbox.NewExecutor(cfg.Sandbox, logger)
	hub := handlers.NewHub(logger)
	pipeline := graphs.NewPipeline(reg, store, builder, executor, store, &cfg, logger, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sessions whose verdict deadline passed while the service was down
	// are completed before new traffic arrives.
	if n, err := pipeline.ExpireCheckpoints(ctx); err != nil {
		logger.Warn("startup checkpoint sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("expired overdue checkpoints on startup", "count", n)
	}

	watcherDone := make(chan struct{})
	if err := config.Watch(watcherDone); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer close(watcherDone)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, pipeline, hub, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("boardroom service listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(expireSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := pipeline.ExpireCheckpoints(gctx); err != nil {
					logger.Warn("checkpoint sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("expired overdue checkpoints", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newLLMClient selects the reasoning backend from configuration.
func newLLMClient(cfg config.OracleConfig, logger *logging.Logger) (llm.LLMClient, error) {
	switch cfg.Backend {
	case "openai":
		logger.Info("using the OpenAI oracle backend")
		return llm.NewOpenAIClient()
	case "ollama", "":
		logger.Info("using the Ollama oracle backend")
		return llm.NewOllamaClient()
	case "scripted":
		logger.Warn("using the scripted oracle backend; answers are canned")
		return llm.NewScriptedClient(), nil
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}

// initTracer wires span export. Export is off unless BOARDROOM_TRACE
// asks for it; spans still propagate through the process either way.
func initTracer() (func(context.Context) error, error) {
	if os.Getenv("BOARDROOM_TRACE") != "stdout" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("boardroom"),
		semconv.ServiceVersionKey.String(handlers.ServiceVersion),
	))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
