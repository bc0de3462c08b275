// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the data structures for the oracle service.
//
// This file contains the prediction model: omens, prediction context, and
// the full prediction record that flows through the pipeline and into the
// history store.
package datatypes

import "time"

// OmenType is the severity category of an omen.
type OmenType string

const (
	OmenMinor OmenType = "minor"
	OmenMajor OmenType = "major"
	OmenDark  OmenType = "dark"
)

// ClassifyOmenType maps a numeric severity to its omen type.
// Out-of-range severities default to major so downstream rendering
// always has a usable category.
func ClassifyOmenType(severity int) OmenType {
	switch {
	case severity >= 1 && severity <= 3:
		return OmenMinor
	case severity >= 4 && severity <= 7:
		return OmenMajor
	case severity >= 8 && severity <= 10:
		return OmenDark
	default:
		return OmenMajor
	}
}

// Omen is a single flagged risk finding attached to a file.
//
// Invariant: Type is always ClassifyOmenType(Severity). The analyzer sets it
// when the finding is constructed and the enhancer re-derives it whenever it
// raises Severity.
type Omen struct {
	Type        OmenType `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	File        string   `json:"file"`
	Severity    int      `json:"severity"`

	// HistoricalFailures is set by the enhancer when the (type, file)
	// pattern has failed more than three times before.
	HistoricalFailures int `json:"historical_failures,omitempty"`
}

// PredictionContext carries the change statistics derived from a diff.
// Immutable once computed.
type PredictionContext struct {
	FilesChanged int `json:"files_changed"`
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// Prediction is the full risk assessment for one pull request.
//
// ID and Timestamp are assigned by the history store if absent.
// ActualResult and Accurate stay nil until an outcome is recorded;
// Accurate is derived by the store, never set by callers.
type Prediction struct {
	ID              string            `json:"id,omitempty"`
	Timestamp       time.Time         `json:"timestamp,omitzero"`
	PRURL           string            `json:"pr_url"`
	PRNumber        int               `json:"pr_number"`
	Repo            string            `json:"repo"`
	PredictionScore int               `json:"prediction_score"`
	Omens           []Omen            `json:"omens"`
	MysticalMessage string            `json:"mystical_message"`
	Recommendations []string          `json:"recommendations"`
	Context         PredictionContext `json:"context"`
	ActualResult    *bool             `json:"actual_result,omitempty"`
	Accurate        *bool             `json:"accurate,omitempty"`
}

// Clone returns a deep copy. Predictions are value objects: the pipeline,
// the store, and the hub each work on their own copy so no component can
// mutate another's view.
func (p *Prediction) Clone() *Prediction {
	out := *p
	out.Omens = make([]Omen, len(p.Omens))
	copy(out.Omens, p.Omens)
	out.Recommendations = make([]string, len(p.Recommendations))
	copy(out.Recommendations, p.Recommendations)
	if p.ActualResult != nil {
		v := *p.ActualResult
		out.ActualResult = &v
	}
	if p.Accurate != nil {
		v := *p.Accurate
		out.Accurate = &v
	}
	return &out
}

// BroadcastMessage is the trimmed view pushed to websocket subscribers.
// Backend-only fields (pr_url, outcome bookkeeping) are excluded.
type BroadcastMessage struct {
	PredictionScore int      `json:"prediction_score"`
	Omens           []Omen   `json:"omens"`
	MysticalMessage string   `json:"mystical_message"`
	Recommendations []string `json:"recommendations"`
	Timestamp       string   `json:"timestamp"`
	PRNumber        int      `json:"pr_number"`
	Repo            string   `json:"repo"`
}

// BroadcastView converts a prediction into its subscriber-facing message.
func (p *Prediction) BroadcastView() BroadcastMessage {
	ts := ""
	if !p.Timestamp.IsZero() {
		ts = p.Timestamp.Format(time.RFC3339)
	}
	return BroadcastMessage{
		PredictionScore: p.PredictionScore,
		Omens:           p.Omens,
		MysticalMessage: p.MysticalMessage,
		Recommendations: p.Recommendations,
		Timestamp:       ts,
		PRNumber:        p.PRNumber,
		Repo:            p.Repo,
	}
}
