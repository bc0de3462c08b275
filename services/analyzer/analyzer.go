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
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/go-playground/validator/v10"
)

// Fixed fallback content, substituted whenever the LLM fails in any way.
const (
	fallbackOmenTitle       = "Analysis Unavailable"
	fallbackOmenDescription = "The mystical oracle is temporarily unavailable. Please review changes manually."
	fallbackMessage         = "The spirits are silent... Proceed with caution."
)

var fallbackRecommendations = []string{"Review changes carefully", "Run tests locally"}

// llmResponse is the untyped model output. Fields are pointers so a missing
// key is distinguishable from a zero value; anything that fails validation
// is replaced wholesale by the fallback, never propagated partially typed.
type llmResponse struct {
	PredictionScore *int      `json:"prediction_score" validate:"required,gte=0,lte=100"`
	Omens           []llmOmen `json:"omens" validate:"omitempty,dive"`
	MysticalMessage *string   `json:"mystical_message" validate:"required"`
	Recommendations []string  `json:"recommendations"`
}

type llmOmen struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
	File        *string `json:"file" validate:"required"`
	Severity    *int    `json:"severity" validate:"required,gte=1,lte=10"`
}

// responseValidate is the validator instance for LLM output.
var responseValidate = validator.New()

// Analyzer maps (diff, context) to a structured prediction via an LLM
// backend. It never fails: every failure mode degrades to the fixed
// fallback prediction.
type Analyzer struct {
	llm LLMClient

	// OnFallback, when set, is invoked each time a fallback prediction
	// is substituted. Used to feed metrics.
	OnFallback func()
}

// New creates an Analyzer over the given backend.
func New(llm LLMClient) *Analyzer {
	return &Analyzer{llm: llm}
}

func (a *Analyzer) fallback() *datatypes.Prediction {
	if a.OnFallback != nil {
		a.OnFallback()
	}
	return FallbackPrediction()
}

// stripFences removes a surrounding markdown code fence from model output.
// Models frequently wrap JSON in ```json ... ``` despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Analyze runs the LLM over the diff and returns a validated prediction
// carrying score, omens, message and recommendations. PR metadata is left
// for the orchestrator to attach.
func (a *Analyzer) Analyze(ctx context.Context, diff string, actx Context) *datatypes.Prediction {
	prompt := buildPrompt(diff, actx)
	slog.Info("analyzing diff", "repo", actx.Repo, "pr", actx.PRNumber)

	raw, err := a.llm.Generate(ctx, prompt, GenerationParams{})
	if err != nil {
		slog.Error("LLM analysis call failed", "error", err)
		return a.fallback()
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		slog.Error("failed to parse LLM response as JSON", "error", err)
		return a.fallback()
	}
	// A missing omens key is a schema violation; an empty list is fine.
	if resp.Omens == nil {
		slog.Error("LLM response missing omens list")
		return a.fallback()
	}
	if err := responseValidate.Struct(&resp); err != nil {
		slog.Error("LLM response failed schema validation", "error", err)
		return a.fallback()
	}

	omens := make([]datatypes.Omen, len(resp.Omens))
	for i, o := range resp.Omens {
		omens[i] = datatypes.Omen{
			Type:        datatypes.ClassifyOmenType(*o.Severity),
			Title:       *o.Title,
			Description: *o.Description,
			File:        *o.File,
			Severity:    *o.Severity,
		}
	}

	recommendations := resp.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	slog.Info("analysis complete", "score", *resp.PredictionScore, "omens", len(omens))
	return &datatypes.Prediction{
		PredictionScore: *resp.PredictionScore,
		Omens:           omens,
		MysticalMessage: *resp.MysticalMessage,
		Recommendations: recommendations,
	}
}

// FallbackPrediction returns the fixed safe default used when analysis is
// unavailable: score 50 and a single major severity-5 omen.
func FallbackPrediction() *datatypes.Prediction {
	slog.Warn("substituting fallback prediction")
	return &datatypes.Prediction{
		PredictionScore: 50,
		Omens: []datatypes.Omen{{
			Type:        datatypes.OmenMajor,
			Title:       fallbackOmenTitle,
			Description: fallbackOmenDescription,
			File:        "unknown",
			Severity:    5,
		}},
		MysticalMessage: fallbackMessage,
		Recommendations: fallbackRecommendations,
	}
}
