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
	"github.com/spf13/cobra"
)

var (
	serverURL     string
	webhookSecret string

	rootCmd = &cobra.Command{
		Use:   "crystalball",
		Short: "A CLI to exercise and observe the Crystal Ball CI/CD oracle",
	}

	sendTestCmd = &cobra.Command{
		Use:   "send-test",
		Short: "Send a signed test pull request webhook to a running oracle",
		RunE:  runSendTest,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream live predictions from the oracle's websocket endpoint",
		RunE:  runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:8000", "Base URL of the oracle service")

	sendTestCmd.Flags().StringVar(&webhookSecret, "secret",
		"", "Webhook secret used to sign the test payload (or WEBHOOK_SECRET)")
	sendTestCmd.Flags().StringVar(&sendTestAction, "action",
		"opened", "Pull request action to send")
	sendTestCmd.Flags().IntVar(&sendTestPRNumber, "pr",
		123, "Pull request number for the test payload")

	rootCmd.AddCommand(sendTestCmd)
	rootCmd.AddCommand(watchCmd)
}
