// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
)

// PostComment renders the prediction as a markdown comment and posts it to
// commentsURL. Failure here is non-fatal to the pipeline; the caller logs
// and continues.
func (c *Client) PostComment(ctx context.Context, commentsURL string, p *datatypes.Prediction) error {
	body, err := json.Marshal(map[string]string{"body": FormatPredictionComment(p)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommentPost, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, commentsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommentPost, err)
	}
	if err := c.authHeaders(req); err != nil {
		return fmt.Errorf("%w: %v", ErrCommentPost, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommentPost, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrCommentPost, resp.StatusCode)
	}

	slog.Info("posted prediction comment", "pr", p.PRNumber, "repo", p.Repo)
	return nil
}

// omenIcons map omen types to their comment icons.
var omenIcons = map[datatypes.OmenType]string{
	datatypes.OmenMinor: "⚠️",
	datatypes.OmenMajor: "🔥",
	datatypes.OmenDark:  "☠️",
}

// FormatPredictionComment renders the mystical-themed markdown comment
// posted to the pull request.
func FormatPredictionComment(p *datatypes.Prediction) string {
	var emoji, verdict string
	switch {
	case p.PredictionScore >= 80:
		emoji, verdict = "🔮✨", "The stars align favorably!"
	case p.PredictionScore >= 60:
		emoji, verdict = "🔮⚠️", "The spirits whisper caution..."
	default:
		emoji, verdict = "🔮☠️", "Dark omens cloud the path ahead!"
	}

	message := p.MysticalMessage
	if message == "" {
		message = "The spirits are silent..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Crystal Ball Prediction %s\n\n", emoji, emoji)
	fmt.Fprintf(&b, "**Prediction Score:** %d%% chance of successful deployment\n\n", p.PredictionScore)
	fmt.Fprintf(&b, "### %s\n\n", verdict)
	fmt.Fprintf(&b, "_%s_\n\n", message)

	if len(p.Omens) > 0 {
		b.WriteString("### 🌙 Omens Revealed\n\n")
		for _, omen := range p.Omens {
			icon, ok := omenIcons[omen.Type]
			if !ok {
				icon = omenIcons[datatypes.OmenMinor]
			}
			fmt.Fprintf(&b, "#### %s %s (Severity: %d/10)\n", icon, omen.Title, omen.Severity)
			fmt.Fprintf(&b, "**File:** `%s`\n", omen.File)
			fmt.Fprintf(&b, "%s\n\n", omen.Description)
		}
	} else {
		b.WriteString("### ✨ No Omens Detected\n")
		b.WriteString("_The path appears clear..._\n\n")
	}

	if len(p.Recommendations) > 0 {
		b.WriteString("### 📜 Mystical Guidance\n\n")
		for _, rec := range p.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	b.WriteString("_🔮 Powered by Crystal Ball CI/CD_")
	return b.String()
}
