// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLLM returns a canned response or error for every Generate call.
type mockLLM struct {
	response string
	err      error
	prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testContext() Context {
	return Context{
		PredictionContext: datatypes.PredictionContext{
			FilesChanged: 2,
			LinesAdded:   10,
			LinesRemoved: 4,
		},
		Repo:     "octocat/hello-world",
		PRNumber: 42,
	}
}

const validResponse = `{
  "prediction_score": 35,
  "omens": [
    {"title": "SQL injection risk", "description": "Unsanitized input reaches a query", "file": "db/query.go", "severity": 9},
    {"title": "Missing error check", "description": "Return value ignored", "file": "main.go", "severity": 2}
  ],
  "mystical_message": "Dark clouds gather over this changeset.",
  "recommendations": ["Parameterize the query", "Check the error"]
}`

func assertFallback(t *testing.T, p *datatypes.Prediction) {
	t.Helper()
	require.NotNil(t, p)
	assert.Equal(t, 50, p.PredictionScore)
	require.Len(t, p.Omens, 1)
	assert.Equal(t, datatypes.OmenMajor, p.Omens[0].Type)
	assert.Equal(t, "Analysis Unavailable", p.Omens[0].Title)
	assert.Equal(t, "unknown", p.Omens[0].File)
	assert.Equal(t, 5, p.Omens[0].Severity)
	assert.Equal(t, "The spirits are silent... Proceed with caution.", p.MysticalMessage)
	assert.Equal(t, []string{"Review changes carefully", "Run tests locally"}, p.Recommendations)
}

func TestAnalyzeValidResponse(t *testing.T) {
	llm := &mockLLM{response: validResponse}
	a := New(llm)

	p := a.Analyze(context.Background(), "diff --git a/main.go b/main.go", testContext())

	require.NotNil(t, p)
	assert.Equal(t, 35, p.PredictionScore)
	require.Len(t, p.Omens, 2)
	assert.Equal(t, datatypes.OmenDark, p.Omens[0].Type)
	assert.Equal(t, "SQL injection risk", p.Omens[0].Title)
	assert.Equal(t, datatypes.OmenMinor, p.Omens[1].Type)
	assert.Equal(t, "Dark clouds gather over this changeset.", p.MysticalMessage)
	assert.Equal(t, []string{"Parameterize the query", "Check the error"}, p.Recommendations)
}

func TestAnalyzeStripsMarkdownFences(t *testing.T) {
	llm := &mockLLM{response: "```json\n" + validResponse + "\n```"}
	a := New(llm)

	p := a.Analyze(context.Background(), "diff --git a/main.go b/main.go", testContext())

	require.NotNil(t, p)
	assert.Equal(t, 35, p.PredictionScore)
	require.Len(t, p.Omens, 2)
}

func TestAnalyzePromptIncludesContext(t *testing.T) {
	llm := &mockLLM{response: validResponse}
	a := New(llm)

	a.Analyze(context.Background(), "diff --git a/x b/x\n+added", testContext())

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "octocat/hello-world")
	assert.Contains(t, prompt, "diff --git a/x b/x")
	assert.Contains(t, prompt, "Files changed: 2")
}

func TestAnalyzeOmenTypeFollowsSeverity(t *testing.T) {
	tests := []struct {
		severity int
		want     datatypes.OmenType
	}{
		{1, datatypes.OmenMinor},
		{3, datatypes.OmenMinor},
		{4, datatypes.OmenMajor},
		{7, datatypes.OmenMajor},
		{8, datatypes.OmenDark},
		{10, datatypes.OmenDark},
	}
	for _, tt := range tests {
		resp := fmt.Sprintf(
			`{"prediction_score": 60, "omens": [{"title": "t", "description": "d", "file": "f.go", "severity": %d}], "mystical_message": "m"}`,
			tt.severity)
		a := New(&mockLLM{response: resp})

		p := a.Analyze(context.Background(), "diff", testContext())

		require.Len(t, p.Omens, 1, "severity %d", tt.severity)
		assert.Equal(t, tt.want, p.Omens[0].Type, "severity %d", tt.severity)
	}
}

func TestAnalyzeEmptyOmensListIsValid(t *testing.T) {
	llm := &mockLLM{response: `{"prediction_score": 85, "omens": [], "mystical_message": "Clear skies ahead.", "recommendations": []}`}
	a := New(llm)

	p := a.Analyze(context.Background(), "diff", testContext())

	assert.Equal(t, 85, p.PredictionScore)
	assert.Empty(t, p.Omens)
	assert.Equal(t, "Clear skies ahead.", p.MysticalMessage)
}

func TestAnalyzeMissingRecommendationsDefaultsEmpty(t *testing.T) {
	llm := &mockLLM{response: `{"prediction_score": 70, "omens": [], "mystical_message": "m"}`}
	a := New(llm)

	p := a.Analyze(context.Background(), "diff", testContext())

	assert.Equal(t, 70, p.PredictionScore)
	assert.NotNil(t, p.Recommendations)
	assert.Empty(t, p.Recommendations)
}

func TestAnalyzeBackendErrorFallsBack(t *testing.T) {
	llm := &mockLLM{err: errors.New("connection refused")}
	a := New(llm)

	assertFallback(t, a.Analyze(context.Background(), "diff", testContext()))
}

func TestAnalyzeMalformedJSONFallsBack(t *testing.T) {
	llm := &mockLLM{response: "I think this PR looks risky because..."}
	a := New(llm)

	assertFallback(t, a.Analyze(context.Background(), "diff", testContext()))
}

func TestAnalyzeSchemaViolationsFallBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing score", `{"omens": [], "mystical_message": "m"}`},
		{"missing message", `{"prediction_score": 50, "omens": []}`},
		{"missing omens key", `{"prediction_score": 50, "mystical_message": "m"}`},
		{"score above range", `{"prediction_score": 101, "omens": [], "mystical_message": "m"}`},
		{"score below range", `{"prediction_score": -1, "omens": [], "mystical_message": "m"}`},
		{"severity above range", `{"prediction_score": 50, "omens": [{"title": "t", "description": "d", "file": "f", "severity": 11}], "mystical_message": "m"}`},
		{"severity below range", `{"prediction_score": 50, "omens": [{"title": "t", "description": "d", "file": "f", "severity": 0}], "mystical_message": "m"}`},
		{"omen missing title", `{"prediction_score": 50, "omens": [{"description": "d", "file": "f", "severity": 5}], "mystical_message": "m"}`},
		{"omen missing file", `{"prediction_score": 50, "omens": [{"title": "t", "description": "d", "severity": 5}], "mystical_message": "m"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&mockLLM{response: tt.response})
			assertFallback(t, a.Analyze(context.Background(), "diff", testContext()))
		})
	}
}

func TestFallbackPrediction(t *testing.T) {
	assertFallback(t, FallbackPrediction())
}

func TestOnFallbackHook(t *testing.T) {
	fallbacks := 0
	a := New(&mockLLM{err: errors.New("down")})
	a.OnFallback = func() { fallbacks++ }

	a.Analyze(context.Background(), "diff", testContext())
	a.Analyze(context.Background(), "diff", testContext())

	assert.Equal(t, 2, fallbacks)

	// A valid response never triggers the hook.
	ok := New(&mockLLM{response: validResponse})
	ok.OnFallback = func() { t.Fatal("hook fired on success") }
	ok.Analyze(context.Background(), "diff", testContext())
}
