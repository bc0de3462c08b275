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
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/crystalball/services/oracle/engine"
)

// HandleHealth reports liveness plus a small set of pipeline statistics.
func HandleHealth(store *engine.HistoryStore, h Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		rate := math.Round(store.AccuracyRate()*100) / 100
		c.JSON(http.StatusOK, gin.H{
			"status":             "alive",
			"accuracy_rate":      rate,
			"predictions_made":   store.Count(),
			"active_connections": h.Count(),
		})
	}
}
