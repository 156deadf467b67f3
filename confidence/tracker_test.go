// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package confidence_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/confidence"
	"github.com/luxfi/pqconsensus/crypto/hash"
)

func TestFinalizesAfterBetaConsecutiveSuccesses(t *testing.T) {
	require := require.New(t)

	tr := confidence.New(confidence.Config{Alpha: 0.67, Beta: 3, MaxRounds: 3})
	id := hash.Sum([]byte("v1"))
	tr.Init(id)

	for i := 0; i < 2; i++ {
		require.NoError(tr.Update(id, 3, 3))
		finalized, err := tr.IsFinalized(id)
		require.NoError(err)
		require.False(finalized)
	}

	require.NoError(tr.Update(id, 3, 3))
	finalized, err := tr.IsFinalized(id)
	require.NoError(err)
	require.True(finalized)
}

func TestFailedRoundResetsConsecutiveSuccesses(t *testing.T) {
	require := require.New(t)

	tr := confidence.New(confidence.Config{Alpha: 0.67, Beta: 3, MaxRounds: 3})
	id := hash.Sum([]byte("v1"))
	tr.Init(id)

	require.NoError(tr.Update(id, 3, 3))
	require.NoError(tr.Update(id, 1, 3)) // below alpha, resets
	require.NoError(tr.Update(id, 3, 3))

	state, err := tr.GetState(id)
	require.NoError(err)
	require.Equal(1, state.ConsecutiveSuccesses)
	require.False(state.IsFinalized)
}

func TestLastChitDefaultsTrueForUninitialized(t *testing.T) {
	require := require.New(t)
	tr := confidence.New(confidence.DefaultConfig())
	require.True(tr.LastChit(hash.Sum([]byte("never-initialized"))))
}

func TestUpdateUnknownVertexErrors(t *testing.T) {
	require := require.New(t)
	tr := confidence.New(confidence.DefaultConfig())
	err := tr.Update(hash.Sum([]byte("unknown")), 1, 1)
	require.ErrorIs(err, confidence.ErrUnknownVertex)
}

func TestUpdateWithAlphaOverridesConfiguredAlpha(t *testing.T) {
	require := require.New(t)

	tr := confidence.New(confidence.Config{Alpha: 0.51, Beta: 2, MaxRounds: 2})
	id := hash.Sum([]byte("v1"))
	tr.Init(id)

	// 6/10 clears the tracker's configured 0.51 alpha but not a raised
	// adaptive alpha of 0.7.
	require.NoError(tr.UpdateWithAlpha(id, 6, 10, 0.7))
	state, err := tr.GetState(id)
	require.NoError(err)
	require.Equal(0, state.ConsecutiveSuccesses)

	require.NoError(tr.UpdateWithAlpha(id, 8, 10, 0.7))
	require.NoError(tr.UpdateWithAlpha(id, 8, 10, 0.7))
	finalized, err := tr.IsFinalized(id)
	require.NoError(err)
	require.True(finalized)
}
