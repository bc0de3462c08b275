// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRejectsEmpty(t *testing.T) {
	Init()
	_, err := FromString("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestUseRoundTrip(t *testing.T) {
	Init()
	s, err := FromString("whsec_test_value")
	require.NoError(t, err)

	var seen string
	err = s.Use(func(v string) error {
		seen = string([]byte(v))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "whsec_test_value", seen)
}

func TestUsePropagatesCallbackError(t *testing.T) {
	Init()
	s, err := FromString("value")
	require.NoError(t, err)

	wantErr := errors.New("downstream failure")
	assert.ErrorIs(t, s.Use(func(string) error { return wantErr }), wantErr)
}

func TestUseIsRepeatable(t *testing.T) {
	Init()
	s, err := FromString("token")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		exposed, err := s.Expose()
		require.NoError(t, err)
		assert.Equal(t, "token", exposed)
	}
}
