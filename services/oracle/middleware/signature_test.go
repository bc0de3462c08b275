// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/crystalball/pkg/secrets"
	"github.com/AleutianAI/crystalball/services/github"
	"github.com/AleutianAI/crystalball/services/oracle/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "webhook-secret-for-tests"

func setupRouter(t *testing.T) (*gin.Engine, *[][]byte, *observability.OracleMetrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	secret, err := secrets.FromString(testSecret)
	require.NoError(t, err)

	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	var seenBodies [][]byte
	router := gin.New()
	router.POST("/webhook/github",
		WebhookSignatureMiddleware(secret, metrics),
		func(c *gin.Context) {
			seenBodies = append(seenBodies, RawBody(c))
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	return router, &seenBodies, metrics
}

func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidSignaturePasses(t *testing.T) {
	router, seen, metrics := setupRouter(t)
	body := []byte(`{"action":"opened"}`)

	w := postWebhook(router, body, github.SignBody(body, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, *seen, 1)
	assert.Equal(t, body, (*seen)[0])
	unauthorized := metrics.WebhooksTotal.WithLabelValues(string(observability.OutcomeUnauthorized))
	assert.Equal(t, 0.0, testutil.ToFloat64(unauthorized))
}

func TestMissingSignatureRejected(t *testing.T) {
	router, seen, metrics := setupRouter(t)

	w := postWebhook(router, []byte(`{"action":"opened"}`), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid signature")
	assert.Empty(t, *seen)
	unauthorized := metrics.WebhooksTotal.WithLabelValues(string(observability.OutcomeUnauthorized))
	assert.Equal(t, 1.0, testutil.ToFloat64(unauthorized))
}

func TestWrongSecretRejected(t *testing.T) {
	router, seen, _ := setupRouter(t)
	body := []byte(`{"action":"opened"}`)

	w := postWebhook(router, body, github.SignBody(body, "some-other-secret"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, *seen)
}

func TestTamperedBodyRejected(t *testing.T) {
	router, seen, _ := setupRouter(t)
	body := []byte(`{"action":"opened"}`)
	signature := github.SignBody(body, testSecret)

	w := postWebhook(router, []byte(`{"action":"closed"}`), signature)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, *seen)
}

func TestRawBodyWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, RawBody(c))
}
