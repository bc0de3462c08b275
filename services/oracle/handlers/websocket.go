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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/crystalball/services/oracle/hub"
	"github.com/AleutianAI/crystalball/services/oracle/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsAck is sent in reply to any non-empty client message.
type wsAck struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleWebSocket upgrades the request and keeps the connection registered
// with the hub until the client goes away. Clients only ever receive
// server pushes; anything they send is acknowledged and otherwise ignored.
func HandleWebSocket(h *hub.Hub, metrics *observability.OracleMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}

		conn := h.Register(ws)
		metrics.ClientConnected()
		defer func() {
			h.Unregister(conn)
			metrics.ClientDisconnected()
			_ = conn.Close()
		}()

		for {
			_, message, err := ws.ReadMessage()
			if err != nil {
				slog.Info("websocket client disconnected", "error", err.Error())
				return
			}
			if len(message) == 0 {
				continue
			}
			if err := conn.WriteJSON(wsAck{Type: "ack", Message: "Connection active"}); err != nil {
				slog.Warn("failed to send websocket ack", "error", err)
				return
			}
		}
	}
}
