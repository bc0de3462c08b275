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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/crystalball/services/github"
)

var (
	sendTestAction   string
	sendTestPRNumber int
)

// testPayload builds a complete pull request webhook body.
func testPayload(action string, prNumber int) ([]byte, error) {
	payload := map[string]any{
		"action": action,
		"pull_request": map[string]any{
			"number":       prNumber,
			"url":          fmt.Sprintf("https://api.github.com/repos/test/repo/pulls/%d", prNumber),
			"html_url":     fmt.Sprintf("https://github.com/test/repo/pull/%d", prNumber),
			"diff_url":     fmt.Sprintf("https://github.com/test/repo/pull/%d.diff", prNumber),
			"comments_url": fmt.Sprintf("https://api.github.com/repos/test/repo/issues/%d/comments", prNumber),
			"title":        "Test PR for Crystal Ball",
			"user":         map[string]any{"login": "crystal-tester"},
		},
		"repository": map[string]any{"full_name": "test/repo"},
	}
	return json.Marshal(payload)
}

func runSendTest(cmd *cobra.Command, args []string) error {
	secret := webhookSecret
	if secret == "" {
		secret = os.Getenv("WEBHOOK_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("no webhook secret: pass --secret or set WEBHOOK_SECRET")
	}

	body, err := testPayload(sendTestAction, sendTestPRNumber)
	if err != nil {
		return fmt.Errorf("failed to build test payload: %w", err)
	}

	url := serverURL + "/webhook/github"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", github.SignBody(body, secret))

	client := &http.Client{Timeout: 2 * time.Minute}
	fmt.Printf("Sending %q webhook for PR #%d to %s\n", sendTestAction, sendTestPRNumber, url)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\n", resp.Status)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		fmt.Println(string(respBody))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle returned %s", resp.Status)
	}
	return nil
}
