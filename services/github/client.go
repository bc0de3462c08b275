// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package github handles the GitHub boundary of the pipeline: webhook
// signature verification, pull request event filtering, diff retrieval with
// bounded retry, and prediction comment posting.
package github

import (
	"errors"
	"net/http"
	"time"

	"github.com/AleutianAI/crystalball/pkg/secrets"
)

const (
	// requestTimeout bounds each individual upstream call.
	requestTimeout = 30 * time.Second

	// defaultMaxRetries is the bounded attempt budget for diff retrieval.
	defaultMaxRetries = 3

	userAgent = "Crystal-Ball-CICD"
)

// defaultBackoff is the fixed wait between failed diff attempts.
// Attempt i sleeps defaultBackoff[i] before attempt i+1.
var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

var (
	// ErrMalformedPayload indicates a webhook payload that fails schema
	// validation. Surfaced to the caller as a bad request.
	ErrMalformedPayload = errors.New("github: malformed webhook payload")

	// ErrDiffFetch indicates diff retrieval failed after exhausting the
	// attempt budget (or hit a terminal upstream status).
	ErrDiffFetch = errors.New("github: diff fetch failed")

	// ErrCommentPost indicates the prediction comment could not be posted.
	// Non-fatal to the pipeline.
	ErrCommentPost = errors.New("github: comment post failed")
)

// Client talks to the GitHub API on behalf of the pipeline.
//
// The zero value is not usable; construct with NewClient. HTTPClient,
// MaxRetries and Backoff may be overridden before first use (tests shrink
// the backoff schedule).
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
	Backoff    []time.Duration

	token *secrets.Secret

	// now and sleep are indirected for deterministic tests.
	now   func() time.Time
	sleep sleepFunc
}

// NewClient creates a Client using token as the bearer credential for all
// outbound calls. The default HTTP client follows redirects and applies the
// 30 second per-call timeout.
func NewClient(token *secrets.Secret) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: requestTimeout},
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultBackoff,
		token:      token,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// authHeaders applies the standard GitHub headers to an outbound request.
func (c *Client) authHeaders(req *http.Request) error {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token == nil {
		return nil
	}
	return c.token.Use(func(v string) error {
		// The concatenation copies v off the locked buffer before Use
		// destroys it; the header must never alias the buffer directly.
		req.Header.Set("Authorization", "token "+v)
		return nil
	})
}
