// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/crystalball/pkg/secrets"
	"github.com/AleutianAI/crystalball/services/oracle/handlers"
	"github.com/AleutianAI/crystalball/services/oracle/hub"
	"github.com/AleutianAI/crystalball/services/oracle/middleware"
)

func SetupRoutes(router *gin.Engine, pipeline *handlers.Pipeline,
	broadcastHub *hub.Hub, webhookSecret *secrets.Secret) {

	router.POST("/webhook/github",
		middleware.WebhookSignatureMiddleware(webhookSecret, pipeline.Metrics),
		handlers.HandleWebhook(pipeline))

	router.GET("/ws", handlers.HandleWebSocket(broadcastHub, pipeline.Metrics))
	router.GET("/health", handlers.HandleHealth(pipeline.Store, pipeline.Hub))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/predictions", handlers.HandlePredictions(pipeline.Store))
		v1.POST("/predictions/:id/outcome", handlers.HandleOutcome(pipeline.Store))
	}
}
