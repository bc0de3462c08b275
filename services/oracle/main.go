// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/crystalball/pkg/logging"
	"github.com/AleutianAI/crystalball/pkg/secrets"
	"github.com/AleutianAI/crystalball/services/analyzer"
	"github.com/AleutianAI/crystalball/services/github"
	"github.com/AleutianAI/crystalball/services/oracle/config"
	"github.com/AleutianAI/crystalball/services/oracle/engine"
	"github.com/AleutianAI/crystalball/services/oracle/handlers"
	"github.com/AleutianAI/crystalball/services/oracle/hub"
	"github.com/AleutianAI/crystalball/services/oracle/observability"
	"github.com/AleutianAI/crystalball/services/oracle/routes"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("oracle-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func buildLLMClient(cfg *config.Config) (analyzer.LLMClient, error) {
	switch cfg.LLMBackend {
	case "openai":
		key, err := secrets.FromString(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		slog.Info("Using OpenAI LLM backend")
		return analyzer.NewOpenAIClient(key, cfg.Model)
	default:
		key, err := secrets.FromString(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Anthropic (Claude) LLM backend")
		return analyzer.NewAnthropicClient(key, cfg.Model)
	}
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "oracle",
		JSON:    true,
	})
	slog.SetDefault(logger.Slog())

	secrets.Init()
	defer secrets.Purge()

	cfg, err := config.Load(os.Getenv("ORACLE_CONFIG"))
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	// --- Init the tracer ---
	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTLP endpoint not set, tracing disabled")
	}

	githubToken, err := secrets.FromString(cfg.GitHubToken)
	if err != nil {
		log.Fatalf("FATAL: invalid GitHub token: %v", err)
	}
	webhookSecret, err := secrets.FromString(cfg.WebhookSecret)
	if err != nil {
		log.Fatalf("FATAL: invalid webhook secret: %v", err)
	}

	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	store := engine.NewHistoryStore()
	broadcastHub := hub.New()
	githubClient := github.NewClient(githubToken)
	metrics := observability.InitMetrics()

	diffAnalyzer := analyzer.New(llmClient)
	diffAnalyzer.OnFallback = metrics.RecordFallback

	pipeline := &handlers.Pipeline{
		Fetcher:   githubClient,
		Analyzer:  diffAnalyzer,
		Store:     store,
		Enhancer:  engine.NewEnhancer(store),
		Commenter: githubClient,
		Hub:       broadcastHub,
		Metrics:   metrics,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("oracle-service"))

	routes.SetupRoutes(router, pipeline, broadcastHub, webhookSecret)

	slog.Info("Starting the oracle server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
