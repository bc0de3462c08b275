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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	payloads := []string{
		`{"action":"opened"}`,
		"",
		"arbitrary bytes \x00\x01\x02",
	}
	secrets := []string{"s3cret", "another-secret", "🔮"}

	for _, payload := range payloads {
		for _, secret := range secrets {
			header := SignBody([]byte(payload), secret)
			assert.True(t, VerifySignature([]byte(payload), header, secret),
				"sign/verify must round-trip for payload %q", payload)
		}
	}
}

func TestVerifySignatureFailsClosed(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "s3cret"
	valid := SignBody(body, secret)

	t.Run("empty header", func(t *testing.T) {
		assert.False(t, VerifySignature(body, "", secret))
	})

	t.Run("wrong scheme prefix", func(t *testing.T) {
		assert.False(t, VerifySignature(body, "sha1="+strings.TrimPrefix(valid, "sha256="), secret))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature(body, valid, "not-the-secret"))
	})

	t.Run("any flipped character fails", func(t *testing.T) {
		digest := strings.TrimPrefix(valid, "sha256=")
		for i := range digest {
			flipped := []byte(digest)
			if flipped[i] == 'a' {
				flipped[i] = 'b'
			} else {
				flipped[i] = 'a'
			}
			assert.False(t, VerifySignature(body, "sha256="+string(flipped), secret),
				"flipping digest position %d must invalidate", i)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		assert.False(t, VerifySignature([]byte(`{"action":"closed"}`), valid, secret))
	})
}
