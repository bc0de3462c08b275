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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// signaturePrefix is the literal scheme prefix GitHub sends in
// X-Hub-Signature-256.
const signaturePrefix = "sha256="

// VerifySignature authenticates a raw webhook body against the shared
// secret. It fails closed: an empty header, a non-sha256 scheme, or a
// digest mismatch all return false and never an error.
//
// The digest comparison is constant-time to avoid timing side channels.
func VerifySignature(body []byte, header, secret string) bool {
	if header == "" {
		slog.Warn("webhook request carried no signature header")
		return false
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		slog.Warn("webhook signature has unexpected scheme", "prefix", truncate(header, 16))
		return false
	}

	received := strings.TrimPrefix(header, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is a constant-time compare.
	valid := hmac.Equal([]byte(expected), []byte(received))
	if !valid {
		slog.Warn("webhook signature validation failed")
	}
	return valid
}

// SignBody computes the header value GitHub would send for body under
// secret. Used by the CLI test sender and the tests.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
