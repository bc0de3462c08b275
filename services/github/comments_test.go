// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrediction(score int) *datatypes.Prediction {
	return &datatypes.Prediction{
		PRNumber:        7,
		Repo:            "octo/hello",
		PredictionScore: score,
		MysticalMessage: "The spirits stir",
		Omens: []datatypes.Omen{
			{Type: datatypes.OmenDark, Title: "Hardcoded secret", File: "src/config.py", Severity: 9, Description: "A secret lies bare."},
		},
		Recommendations: []string{"Rotate the credential"},
	}
}

func TestPostCommentSendsRenderedBody(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewClient(nil)
	err := c.PostComment(context.Background(), server.URL, samplePrediction(25))
	require.NoError(t, err)

	body := received["body"]
	assert.Contains(t, body, "Crystal Ball Prediction")
	assert.Contains(t, body, "**Prediction Score:** 25%")
	assert.Contains(t, body, "Hardcoded secret")
	assert.Contains(t, body, "Rotate the credential")
}

func TestPostCommentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := NewClient(nil)
	err := c.PostComment(context.Background(), server.URL, samplePrediction(50))
	assert.ErrorIs(t, err, ErrCommentPost)
}

func TestFormatPredictionCommentVerdicts(t *testing.T) {
	tests := []struct {
		score   int
		verdict string
	}{
		{95, "The stars align favorably!"},
		{80, "The stars align favorably!"},
		{60, "The spirits whisper caution..."},
		{59, "Dark omens cloud the path ahead!"},
		{0, "Dark omens cloud the path ahead!"},
	}
	for _, tt := range tests {
		body := FormatPredictionComment(samplePrediction(tt.score))
		assert.Contains(t, body, tt.verdict, "score %d", tt.score)
	}
}

func TestFormatPredictionCommentNoOmens(t *testing.T) {
	p := samplePrediction(90)
	p.Omens = nil
	p.Recommendations = nil

	body := FormatPredictionComment(p)
	assert.Contains(t, body, "No Omens Detected")
	assert.NotContains(t, body, "Mystical Guidance")
	assert.Contains(t, body, "Powered by Crystal Ball CI/CD")
}

func TestFormatPredictionCommentOmenIcons(t *testing.T) {
	p := samplePrediction(40)
	p.Omens = []datatypes.Omen{
		{Type: datatypes.OmenMinor, Title: "Sloppy naming", File: "a.go", Severity: 2},
		{Type: datatypes.OmenMajor, Title: "Missing error check", File: "b.go", Severity: 5},
		{Type: datatypes.OmenDark, Title: "SQL injection", File: "c.go", Severity: 10},
	}

	body := FormatPredictionComment(p)
	assert.Contains(t, body, "⚠️ Sloppy naming")
	assert.Contains(t, body, "🔥 Missing error check")
	assert.Contains(t, body, "☠️ SQL injection")
}
