// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/AleutianAI/crystalball/services/oracle/engine"
)

func statusRouter(store *engine.HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HandleHealth(store, &mockBroadcaster{}))
	router.GET("/v1/predictions", HandlePredictions(store))
	router.POST("/v1/predictions/:id/outcome", HandleOutcome(store))
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	store := engine.NewHistoryStore()
	router := statusRouter(store)

	a := store.Store(&datatypes.Prediction{PredictionScore: 85})
	store.Store(&datatypes.Prediction{PredictionScore: 40})
	_, err := store.RecordOutcome(a.ID, true)
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, float64(100), body["accuracy_rate"])
	assert.Equal(t, float64(2), body["predictions_made"])
	assert.Equal(t, float64(1), body["active_connections"])
}

func TestPredictionsEndpoint(t *testing.T) {
	store := engine.NewHistoryStore()
	router := statusRouter(store)
	store.Store(&datatypes.Prediction{PredictionScore: 30, Repo: "a/b"})
	store.Store(&datatypes.Prediction{PredictionScore: 90, Repo: "c/d"})

	w := doRequest(router, http.MethodGet, "/v1/predictions", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
	predictions := body["predictions"].([]any)
	require.Len(t, predictions, 2)
	first := predictions[0].(map[string]any)
	assert.Equal(t, "a/b", first["repo"])
}

func TestOutcomeEndpoint(t *testing.T) {
	store := engine.NewHistoryStore()
	router := statusRouter(store)
	stored := store.Store(&datatypes.Prediction{PredictionScore: 85})

	w := doRequest(router, http.MethodPost,
		"/v1/predictions/"+stored.ID+"/outcome", `{"actual_result": true}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "recorded", body["status"])
	assert.Equal(t, true, body["accurate"])
}

func TestOutcomeEndpointUnknownID(t *testing.T) {
	router := statusRouter(engine.NewHistoryStore())

	w := doRequest(router, http.MethodPost,
		"/v1/predictions/no-such-id/outcome", `{"actual_result": true}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOutcomeEndpointDuplicate(t *testing.T) {
	store := engine.NewHistoryStore()
	router := statusRouter(store)
	stored := store.Store(&datatypes.Prediction{PredictionScore: 85})

	first := doRequest(router, http.MethodPost,
		"/v1/predictions/"+stored.ID+"/outcome", `{"actual_result": false}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodPost,
		"/v1/predictions/"+stored.ID+"/outcome", `{"actual_result": false}`)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestOutcomeEndpointMissingField(t *testing.T) {
	store := engine.NewHistoryStore()
	router := statusRouter(store)
	stored := store.Store(&datatypes.Prediction{PredictionScore: 85})

	w := doRequest(router, http.MethodPost,
		"/v1/predictions/"+stored.ID+"/outcome", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Wrong field name is the same as missing.
	w = doRequest(router, http.MethodPost,
		"/v1/predictions/"+stored.ID+"/outcome", `{"result": true}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "actual_result")
}
