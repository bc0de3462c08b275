// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
)

// annotationThreshold is the failure count above which an omen carries an
// explicit historical_failures annotation.
const annotationThreshold = 3

// maxSeverityBump caps how much a recurring pattern can raise an omen's
// severity in a single enhancement.
const maxSeverityBump = 2

// Enhancer adjusts raw predictions using the store's accumulated failure
// patterns.
type Enhancer struct {
	store *HistoryStore
}

// NewEnhancer creates an Enhancer backed by the given store.
func NewEnhancer(store *HistoryStore) *Enhancer {
	return &Enhancer{store: store}
}

// Enhance returns a copy of the prediction with omen severities bumped for
// recurring failure patterns and the score adjusted to match. With no
// matching patterns the returned prediction is identical to the input.
func (e *Enhancer) Enhance(p *datatypes.Prediction) *datatypes.Prediction {
	enhanced := p.Clone()
	if len(enhanced.Omens) == 0 {
		return enhanced
	}

	changed := false
	sumOriginal, sumEnhanced := 0, 0

	for i := range enhanced.Omens {
		omen := &enhanced.Omens[i]
		original := omen.Severity
		sumOriginal += original

		failures := e.store.PatternFailures(omen.Type, omen.File)
		if failures > 0 {
			bump := failures
			if bump > maxSeverityBump {
				bump = maxSeverityBump
			}
			newSeverity := original + bump
			if newSeverity > 10 {
				newSeverity = 10
			}
			if newSeverity != original {
				changed = true
				omen.Severity = newSeverity
				// Severity determines the type, so a bump can promote an
				// omen into a darker category.
				omen.Type = datatypes.ClassifyOmenType(newSeverity)
				slog.Debug("omen severity raised",
					"file", omen.File, "from", original, "to", newSeverity, "failures", failures)
			}
			if failures > annotationThreshold {
				omen.HistoricalFailures = failures
				omen.Description = fmt.Sprintf(
					"%s (⚠️ This pattern has failed %d times previously)",
					omen.Description, failures)
			}
		}
		sumEnhanced += omen.Severity
	}

	if changed {
		avgOriginal := float64(sumOriginal) / float64(len(enhanced.Omens))
		avgEnhanced := float64(sumEnhanced) / float64(len(enhanced.Omens))
		ratio := 1.0
		if avgOriginal > 0 {
			ratio = avgEnhanced / avgOriginal
		}
		reduction := int((ratio - 1.0) * 20)
		newScore := enhanced.PredictionScore - reduction
		if newScore < 0 {
			newScore = 0
		}
		slog.Info("prediction enhanced from history",
			"score_before", enhanced.PredictionScore, "score_after", newScore,
			"avg_severity_before", avgOriginal, "avg_severity_after", avgEnhanced)
		enhanced.PredictionScore = newScore
	}

	return enhanced
}
