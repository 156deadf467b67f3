// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncapsulateDecapsulateAgree(t *testing.T) {
	require := require.New(t)

	pub, priv, err := Generate()
	require.NoError(err)

	secret, ct, err := Encapsulate(pub)
	require.NoError(err)
	require.NotEmpty(ct)

	recovered, err := Decapsulate(priv, ct)
	require.NoError(err)
	require.Equal(secret, recovered)
}

func TestDecapsulateMismatchedKeyDiffers(t *testing.T) {
	require := require.New(t)

	pub, _, err := Generate()
	require.NoError(err)
	_, otherPriv, err := Generate()
	require.NoError(err)

	secret, ct, err := Encapsulate(pub)
	require.NoError(err)

	recovered, err := Decapsulate(otherPriv, ct)
	if err == nil {
		require.NotEqual(secret, recovered)
	}
}
