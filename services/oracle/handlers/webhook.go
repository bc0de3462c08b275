// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the oracle's HTTP handlers. The webhook handler
// runs the full pipeline: parse, fetch diff, analyze, enhance, store,
// comment, broadcast. Signature verification happens in middleware before
// any of this runs.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/crystalball/services/analyzer"
	"github.com/AleutianAI/crystalball/services/github"
	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/AleutianAI/crystalball/services/oracle/engine"
	"github.com/AleutianAI/crystalball/services/oracle/middleware"
	"github.com/AleutianAI/crystalball/services/oracle/observability"
)

var webhookTracer = otel.Tracer("crystalball.oracle.handlers")

// DiffFetcher retrieves a PR's diff text with its change statistics.
type DiffFetcher interface {
	FetchDiff(ctx context.Context, diffURL string) (*github.DiffResult, error)
}

// CommentPoster posts a rendered prediction back to the PR conversation.
type CommentPoster interface {
	PostComment(ctx context.Context, commentsURL string, p *datatypes.Prediction) error
}

// PredictionAnalyzer maps a diff and its context to a raw prediction.
type PredictionAnalyzer interface {
	Analyze(ctx context.Context, diff string, actx analyzer.Context) *datatypes.Prediction
}

// Broadcaster fans one message out to all live subscribers.
type Broadcaster interface {
	Broadcast(message any) (delivered, failed int)
	Count() int
}

// Pipeline bundles the collaborators the webhook handler sequences.
type Pipeline struct {
	Fetcher   DiffFetcher
	Analyzer  PredictionAnalyzer
	Store     *engine.HistoryStore
	Enhancer  *engine.Enhancer
	Commenter CommentPoster
	Hub       Broadcaster
	Metrics   *observability.OracleMetrics
}

// HandleWebhook processes an authenticated GitHub pull request webhook.
//
// Non-actionable events return 200 with status "ignored". Malformed
// payloads return 400. A diff that cannot be fetched returns 502. Analysis
// failures are masked by the fallback prediction and never surface as an
// HTTP error.
func HandleWebhook(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := webhookTracer.Start(c.Request.Context(), "HandleWebhook")
		defer span.End()
		start := time.Now()

		body := middleware.RawBody(c)
		event, err := github.ParseEvent(body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.Metrics.RecordWebhook(observability.OutcomeMalformed)
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
			return
		}
		if event == nil {
			p.Metrics.RecordWebhook(observability.OutcomeIgnored)
			c.JSON(http.StatusOK, gin.H{
				"status":  "ignored",
				"message": "Event type not processed",
			})
			return
		}

		slog.Info("processing pull request webhook",
			"repo", event.Repo, "pr", event.PRNumber, "action", event.Action)

		diff, err := p.Fetcher.FetchDiff(ctx, event.DiffURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("diff fetch failed", "repo", event.Repo, "pr", event.PRNumber, "error", err)
			p.Metrics.RecordFetch(observability.FetchError)
			p.Metrics.RecordWebhook(observability.OutcomeFetchFailed)
			p.Metrics.RecordPipelineDuration(observability.OutcomeFetchFailed, time.Since(start).Seconds())
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch PR diff"})
			return
		}
		p.Metrics.RecordFetch(observability.FetchSuccess)

		raw := p.Analyzer.Analyze(ctx, diff.Diff, analyzer.Context{
			PredictionContext: diff.Stats,
			Repo:              event.Repo,
			PRNumber:          event.PRNumber,
		})

		enhanced := p.Enhancer.Enhance(raw)
		enhanced.PRURL = event.PRURL
		enhanced.PRNumber = event.PRNumber
		enhanced.Repo = event.Repo
		enhanced.Context = diff.Stats

		stored := p.Store.Store(enhanced)
		p.Metrics.RecordPredictionStored()

		// Comment failures are logged but never fail the pipeline.
		if err := p.Commenter.PostComment(ctx, event.CommentsURL, stored); err != nil {
			slog.Warn("failed to post PR comment, continuing",
				"repo", event.Repo, "pr", event.PRNumber, "error", err)
		}

		delivered, failed := p.Hub.Broadcast(stored.BroadcastView())
		p.Metrics.RecordBroadcast(delivered, failed)

		slog.Info("pull request processed",
			"repo", event.Repo, "pr", event.PRNumber,
			"score", stored.PredictionScore, "omens", len(stored.Omens))
		p.Metrics.RecordWebhook(observability.OutcomeProcessed)
		p.Metrics.RecordPipelineDuration(observability.OutcomeProcessed, time.Since(start).Seconds())

		c.JSON(http.StatusOK, gin.H{
			"status":           "success",
			"prediction_id":    stored.ID,
			"prediction_score": stored.PredictionScore,
			"omens_count":      len(stored.Omens),
		})
	}
}
