// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hub fans enhanced predictions out to live websocket subscribers.
// A subscriber that fails a send is evicted after the broadcast pass
// completes, so one dead connection never blocks delivery to the rest.
package hub

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is a registered subscriber. Writes are serialized per connection
// because gorilla/websocket permits at most one concurrent writer.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// WriteJSON sends v to the subscriber.
func (c *Conn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// Close tears down the underlying websocket.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// Hub owns the subscriber set. All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[*Conn]struct{})}
}

// Register wraps ws as a subscriber and adds it to the set.
func (h *Hub) Register(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()

	slog.Info("websocket client connected", "active_connections", total)
	return c
}

// Unregister removes c from the set. Removing an absent connection is a
// no-op.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	total := len(h.conns)
	h.mu.Unlock()

	if present {
		slog.Info("websocket client disconnected", "active_connections", total)
	}
}

// Count reports the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers message to every subscriber registered at the start
// of the call. Subscribers whose send fails are collected during the pass
// and evicted afterwards, so every healthy subscriber receives the message
// exactly once. Returns the delivered and failed counts.
func (h *Hub) Broadcast(message any) (delivered, failed int) {
	h.mu.RLock()
	snapshot := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	var dead []*Conn
	for _, c := range snapshot {
		if err := c.WriteJSON(message); err != nil {
			slog.Warn("broadcast delivery failed", "error", err)
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		h.Unregister(c)
		_ = c.Close()
	}

	delivered = len(snapshot) - len(dead)
	failed = len(dead)
	slog.Info("broadcast complete", "delivered", delivered, "failed", failed)
	return delivered, failed
}
