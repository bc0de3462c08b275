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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/crystalball/services/oracle/engine"
)

// outcomeRequest is the body of POST /v1/predictions/:id/outcome. The
// field name mirrors the actual_result field on the stored prediction.
type outcomeRequest struct {
	ActualResult *bool `json:"actual_result" binding:"required"`
}

// HandleOutcome records whether the build behind a prediction actually
// passed. A prediction accepts exactly one outcome; repeats return 409.
func HandleOutcome(store *engine.HistoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outcomeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must include boolean field 'actual_result'"})
			return
		}

		resolved, err := store.RecordOutcome(c.Param("id"), *req.ActualResult)
		switch {
		case errors.Is(err, engine.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
		case errors.Is(err, engine.ErrOutcomeRecorded):
			c.JSON(http.StatusConflict, gin.H{"error": "outcome already recorded"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record outcome"})
		default:
			c.JSON(http.StatusOK, gin.H{
				"status":        "recorded",
				"prediction_id": resolved.ID,
				"accurate":      *resolved.Accurate,
			})
		}
	}
}
