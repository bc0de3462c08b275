// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the oracle service.
//
// The webhook signature middleware authenticates inbound GitHub webhook
// deliveries before any payload parsing happens. Requests that fail
// authentication are rejected with 401 and never reach the handlers.
//
//	Request
//	   │
//	   ▼
//	WebhookSignatureMiddleware
//	   │
//	   ├─► Read raw body (restored for the handler)
//	   │
//	   ├─► Verify X-Hub-Signature-256 against the shared secret
//	   │
//	   └─► 401 on mismatch, otherwise continue
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/crystalball/pkg/secrets"
	"github.com/AleutianAI/crystalball/services/github"
	"github.com/AleutianAI/crystalball/services/oracle/observability"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

// rawBodyKey is the context key for the verified raw request body.
const rawBodyKey = "crystalball_raw_body"

// =============================================================================
// Context Helpers
// =============================================================================

// RawBody returns the request body bytes the signature was verified
// against. Handlers must parse these bytes rather than re-reading the
// request so that the parsed payload is exactly what was authenticated.
func RawBody(c *gin.Context) []byte {
	if v, exists := c.Get(rawBodyKey); exists {
		if body, ok := v.([]byte); ok {
			return body
		}
	}
	return nil
}

// =============================================================================
// Signature Middleware
// =============================================================================

// WebhookSignatureMiddleware creates a Gin middleware that authenticates
// webhook deliveries.
//
// # Description
//
// Reads the full request body, verifies the X-Hub-Signature-256 header
// against the shared webhook secret, and stores the verified bytes in the
// context for downstream handlers. The body reader is restored so handlers
// that bind the request directly keep working.
//
// # Inputs
//
//   - secret: Shared webhook secret. Must not be nil.
//   - metrics: Pipeline metrics; rejected deliveries are counted as
//     unauthorized webhooks. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Limitations
//
//   - Only supports the sha256= signature scheme
//   - Buffers the entire body in memory (webhook payloads are small)
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func WebhookSignatureMiddleware(secret *secrets.Secret, metrics *observability.OracleMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			slog.Error("failed to read webhook body", "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "could not read request body",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		header := c.GetHeader("X-Hub-Signature-256")
		verified := false
		if err := secret.Use(func(value string) error {
			verified = github.VerifySignature(body, header, value)
			return nil
		}); err != nil {
			slog.Error("webhook secret unavailable", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "signature verification unavailable",
			})
			return
		}

		if !verified {
			slog.Warn("webhook signature rejected", "remote_addr", c.ClientIP())
			metrics.RecordWebhook(observability.OutcomeUnauthorized)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid signature",
			})
			return
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}
