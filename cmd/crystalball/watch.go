// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
)

// watchMessage covers both predictions and ack frames on the wire.
type watchMessage struct {
	Type string `json:"type"`
	datatypes.BroadcastMessage
}

func runWatch(cmd *cobra.Command, args []string) error {
	wsURL := strings.Replace(serverURL, "http", "ws", 1) + "/ws"
	fancy := isatty.IsTerminal(os.Stdout.Fd())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	fmt.Printf("Watching predictions on %s (ctrl-c to stop)\n", wsURL)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	for {
		var msg watchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}
		if msg.Type == "ack" {
			continue
		}
		printPrediction(msg.BroadcastMessage, fancy)
	}
}

func printPrediction(p datatypes.BroadcastMessage, fancy bool) {
	if fancy {
		fmt.Printf("\n🔮 %s PR #%d — score %d\n", p.Repo, p.PRNumber, p.PredictionScore)
	} else {
		fmt.Printf("\n%s PR #%d score=%d\n", p.Repo, p.PRNumber, p.PredictionScore)
	}
	fmt.Printf("  %s\n", p.MysticalMessage)

	for _, omen := range p.Omens {
		marker := string(omen.Type)
		if fancy {
			switch omen.Type {
			case datatypes.OmenMinor:
				marker = "⚠️ "
			case datatypes.OmenMajor:
				marker = "🔥"
			case datatypes.OmenDark:
				marker = "☠️ "
			}
		}
		fmt.Printf("  [%s] %s (%s, severity %d)\n", marker, omen.Title, omen.File, omen.Severity)
	}

	if len(p.Recommendations) > 0 {
		fmt.Println("  Recommendations:")
		for _, rec := range p.Recommendations {
			fmt.Printf("   - %s\n", rec)
		}
	}
}
