// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine holds the prediction history and the learning loop built
// on top of it. The store is append-only: predictions are recorded as they
// are made, outcomes arrive later and are folded into accuracy stats and
// per-(omen type, file) failure counts that the enhancer feeds on.
package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an outcome references an unknown prediction.
	ErrNotFound = errors.New("prediction not found")
	// ErrOutcomeRecorded is returned when an outcome arrives for a
	// prediction that already has one.
	ErrOutcomeRecorded = errors.New("outcome already recorded")
)

// patternKey identifies a recurring failure signature.
type patternKey struct {
	OmenType datatypes.OmenType
	File     string
}

// HistoryStore is the in-memory prediction history. All methods are safe
// for concurrent use.
type HistoryStore struct {
	mu              sync.RWMutex
	predictions     []*datatypes.Prediction
	byID            map[string]*datatypes.Prediction
	patternFailures map[patternKey]int
	now             func() time.Time
}

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		byID:            make(map[string]*datatypes.Prediction),
		patternFailures: make(map[patternKey]int),
		now:             time.Now,
	}
}

// Store appends a prediction to the history, assigning an ID and timestamp
// if the caller did not. The stored copy is independent of the argument.
func (s *HistoryStore) Store(p *datatypes.Prediction) *datatypes.Prediction {
	stored := p.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now().UTC()
	}

	s.mu.Lock()
	s.predictions = append(s.predictions, stored)
	s.byID[stored.ID] = stored
	s.mu.Unlock()

	slog.Info("prediction stored", "prediction_id", stored.ID, "repo", stored.Repo, "pr", stored.PRNumber)
	return stored.Clone()
}

// RecordOutcome attaches the actual build result to a prediction, derives
// accuracy and, on failure, bumps the failure count for each omen's
// (type, file) pattern. A second outcome for the same prediction is
// rejected so patterns are never double counted.
func (s *HistoryStore) RecordOutcome(id string, passed bool) (*datatypes.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		slog.Warn("outcome for unknown prediction", "prediction_id", id)
		return nil, ErrNotFound
	}
	if p.ActualResult != nil {
		slog.Warn("duplicate outcome ignored", "prediction_id", id)
		return nil, ErrOutcomeRecorded
	}

	actual := passed
	accurate := (p.PredictionScore >= 70 && passed) || (p.PredictionScore < 70 && !passed)
	p.ActualResult = &actual
	p.Accurate = &accurate

	if !passed {
		for _, omen := range p.Omens {
			key := patternKey{OmenType: omen.Type, File: omen.File}
			s.patternFailures[key]++
		}
	}

	slog.Info("outcome recorded",
		"prediction_id", id, "passed", passed, "accurate", accurate)
	return p.Clone(), nil
}

// Get returns a copy of the prediction with the given ID.
func (s *HistoryStore) Get(id string) (*datatypes.Prediction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Snapshot returns copies of all predictions in insertion order.
func (s *HistoryStore) Snapshot() []*datatypes.Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*datatypes.Prediction, len(s.predictions))
	for i, p := range s.predictions {
		out[i] = p.Clone()
	}
	return out
}

// Count reports how many predictions the store holds.
func (s *HistoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions)
}

// PatternFailures reports how many failed builds carried an omen of the
// given type against the given file.
func (s *HistoryStore) PatternFailures(omenType datatypes.OmenType, file string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patternFailures[patternKey{OmenType: omenType, File: file}]
}

// AccuracyRate returns the percentage of resolved predictions that were
// accurate, or 0 when no outcomes have been recorded yet.
func (s *HistoryStore) AccuracyRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolved, accurate := 0, 0
	for _, p := range s.predictions {
		if p.ActualResult == nil {
			continue
		}
		resolved++
		if p.Accurate != nil && *p.Accurate {
			accurate++
		}
	}
	if resolved == 0 {
		return 0.0
	}
	return 100 * float64(accurate) / float64(resolved)
}
