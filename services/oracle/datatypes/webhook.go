// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the inbound GitHub webhook payload shapes and the
// ephemeral event extracted from them. Validation runs through the shared
// validator instance; see services/github for the parsing entry point.
package datatypes

import "github.com/go-playground/validator/v10"

// webhookValidate is the validator instance for webhook payloads.
var webhookValidate = validator.New()

// GitHubUser is the PR author from the webhook payload.
type GitHubUser struct {
	Login string `json:"login" validate:"required"`
}

// GitHubPullRequest is the pull request block of the webhook payload.
type GitHubPullRequest struct {
	Number      int        `json:"number" validate:"required"`
	URL         string     `json:"url" validate:"required"`
	DiffURL     string     `json:"diff_url" validate:"required"`
	CommentsURL string     `json:"comments_url" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	User        GitHubUser `json:"user" validate:"required"`
}

// GitHubRepository is the repository block of the webhook payload.
type GitHubRepository struct {
	FullName string `json:"full_name" validate:"required"`
}

// WebhookPayload is a GitHub pull_request webhook event.
type WebhookPayload struct {
	Action      string            `json:"action" validate:"required"`
	PullRequest GitHubPullRequest `json:"pull_request" validate:"required"`
	Repository  GitHubRepository  `json:"repository" validate:"required"`
}

// Validate checks that every required payload field is present.
func (p *WebhookPayload) Validate() error {
	return webhookValidate.Struct(p)
}

// WebhookEvent is the ephemeral, consumed-once event the pipeline acts on.
// Produced by the event filter for actionable actions only.
type WebhookEvent struct {
	Action      string
	PRNumber    int
	PRURL       string
	DiffURL     string
	CommentsURL string
	Repo        string
	Title       string
	Author      string
}
