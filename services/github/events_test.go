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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookJSON(action string) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"pull_request": {
			"number": 7,
			"url": "https://api.github.com/repos/octo/hello/pulls/7",
			"diff_url": "https://github.com/octo/hello/pull/7.diff",
			"comments_url": "https://api.github.com/repos/octo/hello/issues/7/comments",
			"title": "Add feature",
			"user": {"login": "octocat"}
		},
		"repository": {"full_name": "octo/hello"}
	}`, action))
}

func TestParseEventActionable(t *testing.T) {
	for _, action := range []string{"opened", "synchronize"} {
		event, err := ParseEvent(webhookJSON(action))
		require.NoError(t, err)
		require.NotNil(t, event, "action %q must be actionable", action)

		assert.Equal(t, action, event.Action)
		assert.Equal(t, 7, event.PRNumber)
		assert.Equal(t, "octo/hello", event.Repo)
		assert.Equal(t, "https://github.com/octo/hello/pull/7.diff", event.DiffURL)
		assert.Equal(t, "https://api.github.com/repos/octo/hello/issues/7/comments", event.CommentsURL)
		assert.Equal(t, "octocat", event.Author)
	}
}

func TestParseEventIgnoresOtherActions(t *testing.T) {
	for _, action := range []string{"closed", "reopened", "labeled", "review_requested"} {
		event, err := ParseEvent(webhookJSON(action))
		assert.NoError(t, err, "action %q is valid, just uninteresting", action)
		assert.Nil(t, event)
	}
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"empty action", `{"action":"","pull_request":{"number":1,"url":"u","diff_url":"d","comments_url":"c","title":"t","user":{"login":"l"}},"repository":{"full_name":"r"}}`},
		{"missing pull_request", `{"action":"opened","repository":{"full_name":"octo/hello"}}`},
		{"missing diff_url", `{"action":"opened","pull_request":{"number":1,"url":"u","comments_url":"c","title":"t","user":{"login":"l"}},"repository":{"full_name":"r"}}`},
		{"missing repository name", `{"action":"opened","pull_request":{"number":1,"url":"u","diff_url":"d","comments_url":"c","title":"t","user":{"login":"l"}},"repository":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.raw))
			assert.Nil(t, event)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
