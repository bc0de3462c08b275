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
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
)

// actionableActions are the pull request actions the pipeline reacts to.
// Everything else is valid but uninteresting.
var actionableActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
}

// ParseEvent validates a raw webhook payload and decides whether it is
// actionable.
//
// Returns:
//   - (*WebhookEvent, nil) for an actionable pull request event
//   - (nil, nil) for a valid event with a non-actionable action
//   - (nil, ErrMalformedPayload-wrapped) when the payload is not valid JSON
//     or is missing required fields
func ParseEvent(raw []byte) (*datatypes.WebhookEvent, error) {
	var payload datatypes.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	slog.Info("received webhook event",
		"action", payload.Action,
		"pr", payload.PullRequest.Number,
		"repo", payload.Repository.FullName,
	)

	if !actionableActions[payload.Action] {
		slog.Info("ignoring pull request event", "action", payload.Action)
		return nil, nil
	}

	return &datatypes.WebhookEvent{
		Action:      payload.Action,
		PRNumber:    payload.PullRequest.Number,
		PRURL:       payload.PullRequest.URL,
		DiffURL:     payload.PullRequest.DiffURL,
		CommentsURL: payload.PullRequest.CommentsURL,
		Repo:        payload.Repository.FullName,
		Title:       payload.PullRequest.Title,
		Author:      payload.PullRequest.User.Login,
	}, nil
}
