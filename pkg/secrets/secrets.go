// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package secrets holds static credentials in memguard enclaves.
//
// The service carries three long-lived credentials: the GitHub API token,
// the webhook shared secret, and the LLM API key. Each is sealed into an
// encrypted enclave at startup so the plaintext is not resident in process
// memory between uses. Callers briefly open the enclave, use the value, and
// the locked buffer is destroyed again.
//
// Init must be called once before any Secret is created:
//
//	secrets.Init()
//	token := secrets.FromString(cfg.GitHubToken)
//	err := token.Use(func(v string) error {
//	    req.Header.Set("Authorization", "token "+v)
//	    return nil
//	})
package secrets

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// initOnce ensures memguard signal handling is installed exactly once.
var initOnce sync.Once

// ErrEmptySecret is returned when constructing a Secret from an empty string.
var ErrEmptySecret = errors.New("secrets: empty secret value")

// Init installs memguard's interrupt handler so enclaves are wiped on
// SIGINT/SIGTERM. Safe to call multiple times.
func Init() {
	initOnce.Do(func() {
		memguard.CatchInterrupt()
	})
}

// Purge wipes all enclaves and session keys. Call during shutdown.
func Purge() {
	memguard.Purge()
}

// Secret is an immutable credential sealed in an encrypted enclave.
type Secret struct {
	enclave *memguard.Enclave
}

// FromString seals value into a new Secret. Returns ErrEmptySecret for "".
func FromString(value string) (*Secret, error) {
	if value == "" {
		return nil, ErrEmptySecret
	}
	return &Secret{enclave: memguard.NewEnclave([]byte(value))}, nil
}

// Use opens the enclave, passes the plaintext to fn, and destroys the
// locked buffer when fn returns. The string passed to fn must not be
// retained beyond the call.
func (s *Secret) Use(fn func(value string) error) error {
	buf, err := s.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.String())
}

// Expose returns a heap copy of the plaintext. Prefer Use; Expose exists for
// client libraries whose constructors demand a plain string (e.g. the OpenAI
// client) and is called once at startup.
func (s *Secret) Expose() (string, error) {
	var out string
	err := s.Use(func(v string) error {
		out = string([]byte(v)) // force a copy off the locked buffer
		return nil
	})
	return out, err
}
