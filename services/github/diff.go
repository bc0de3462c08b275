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
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/crystalball/services/oracle/datatypes"
)

// DiffResult is a retrieved pull request diff plus its change statistics.
type DiffResult struct {
	Diff  string
	Stats datatypes.PredictionContext
}

// fetchState models diff retrieval as an explicit state machine so the
// interaction between rate-limit waits and the bounded attempt budget is a
// documented policy rather than incidental control flow.
type fetchState int

const (
	stateAttempting fetchState = iota
	stateBackoff
	stateRateLimited
	stateSucceeded
	stateExhausted
)

// attemptKind classifies the outcome of one upstream attempt.
type attemptKind int

const (
	attemptOK attemptKind = iota
	attemptRateLimited
	attemptTransient // transport/network failure, retryable
	attemptTerminal  // non-rate-limit HTTP error status, not retried
)

type attemptOutcome struct {
	kind     attemptKind
	result   *DiffResult
	rateWait time.Duration
	err      error
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchDiff retrieves the diff at diffURL with bounded retry.
//
// Transition policy:
//   - Attempting → Succeeded on a 2xx response
//   - Attempting → RateLimited on 403 with X-RateLimit-Remaining: 0; the
//     machine sleeps until the advertised reset and the wait consumes one
//     attempt, so a persistently rate-limited upstream terminates instead
//     of pinning a webhook goroutine forever
//   - Attempting → Backoff on a transport error with attempts remaining;
//     attempt i sleeps Backoff[i] before the next attempt
//   - Attempting → Exhausted on a transport error with no attempts left,
//     or immediately on a non-rate-limit HTTP error status
func (c *Client) FetchDiff(ctx context.Context, diffURL string) (*DiffResult, error) {
	state := stateAttempting
	attempt := 0
	var (
		lastErr  error
		rateWait time.Duration
		result   *DiffResult
	)

	for {
		switch state {
		case stateAttempting:
			slog.Info("fetching PR diff", "attempt", attempt+1, "max_attempts", c.MaxRetries)
			out := c.attemptDiff(ctx, diffURL)
			switch out.kind {
			case attemptOK:
				result = out.result
				state = stateSucceeded
			case attemptRateLimited:
				rateWait = out.rateWait
				lastErr = out.err
				state = stateRateLimited
			case attemptTransient:
				lastErr = out.err
				slog.Warn("diff request failed",
					"attempt", attempt+1, "max_attempts", c.MaxRetries, "error", out.err)
				if attempt >= c.MaxRetries-1 {
					state = stateExhausted
				} else {
					state = stateBackoff
				}
			case attemptTerminal:
				lastErr = out.err
				state = stateExhausted
			}

		case stateBackoff:
			delay := c.Backoff[attempt]
			slog.Info("retrying diff fetch", "delay", delay.String())
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDiffFetch, err)
			}
			attempt++
			state = stateAttempting

		case stateRateLimited:
			slog.Warn("GitHub rate limit exceeded, waiting for reset",
				"wait", rateWait.String())
			if err := c.sleep(ctx, rateWait); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDiffFetch, err)
			}
			// The wait consumed one of the bounded attempts.
			attempt++
			if attempt >= c.MaxRetries {
				state = stateExhausted
			} else {
				state = stateAttempting
			}

		case stateSucceeded:
			slog.Info("fetched diff",
				"files_changed", result.Stats.FilesChanged,
				"lines_added", result.Stats.LinesAdded,
				"lines_removed", result.Stats.LinesRemoved,
			)
			return result, nil

		case stateExhausted:
			if lastErr == nil {
				lastErr = fmt.Errorf("no successful attempt in %d tries", c.MaxRetries)
			}
			slog.Error("diff fetch exhausted", "attempts", c.MaxRetries, "error", lastErr)
			return nil, fmt.Errorf("%w: %v", ErrDiffFetch, lastErr)
		}
	}
}

// attemptDiff performs one upstream GET and classifies the outcome.
func (c *Client) attemptDiff(ctx context.Context, diffURL string) attemptOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, diffURL, nil)
	if err != nil {
		return attemptOutcome{kind: attemptTerminal, err: err}
	}
	if err := c.authHeaders(req); err != nil {
		return attemptOutcome{kind: attemptTerminal, err: err}
	}
	// Request the diff rendering rather than the JSON resource.
	req.Header.Set("Accept", "application/vnd.github.v3.diff")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return attemptOutcome{kind: attemptTransient, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden &&
		resp.Header.Get("X-RateLimit-Remaining") == "0" {
		reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
		wait := time.Duration(reset-c.now().Unix()) * time.Second
		if wait < 0 {
			wait = 0
		}
		return attemptOutcome{
			kind:     attemptRateLimited,
			rateWait: wait,
			err:      fmt.Errorf("rate limited until epoch %d", reset),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return attemptOutcome{
			kind: attemptTerminal,
			err:  fmt.Errorf("unexpected status %d from %s", resp.StatusCode, diffURL),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptOutcome{kind: attemptTransient, err: err}
	}

	diff := string(body)
	return attemptOutcome{
		kind:   attemptOK,
		result: &DiffResult{Diff: diff, Stats: ParseDiffStats(diff)},
	}
}

// ParseDiffStats derives change statistics from raw diff text.
//
// A line beginning with "diff --git" counts one changed file; a line
// beginning with "+" but not "+++" counts one added line; a line beginning
// with "-" but not "---" counts one removed line.
func ParseDiffStats(diff string) datatypes.PredictionContext {
	var stats datatypes.PredictionContext
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			stats.FilesChanged++
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			stats.LinesAdded++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			stats.LinesRemoved++
		}
	}
	return stats
}
