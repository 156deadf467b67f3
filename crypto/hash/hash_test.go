// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hash

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	require := require.New(t)

	data := []byte("the quick brown fox jumps over the lazy dog")
	a := Sum(data)
	b := Sum(data)
	require.Equal(a, b)
	require.False(a.IsZero())
}

func TestSumDiffers(t *testing.T) {
	require := require.New(t)

	a := Sum([]byte("alpha"))
	b := Sum([]byte("beta"))
	require.NotEqual(a, b)
}

func TestSumTreeMatchesForLargeInput(t *testing.T) {
	require := require.New(t)

	data := bytes.Repeat([]byte{0x42}, treeThreshold+1)
	a := Sum(data)
	b := Sum(data)
	require.Equal(a, b)
}

func TestKeyedSum(t *testing.T) {
	require := require.New(t)

	var key [Size]byte
	for i := range key {
		key[i] = byte(i)
	}

	a, err := KeyedSum(key, []byte("message"))
	require.NoError(err)

	b, err := KeyedSum(key, []byte("message"))
	require.NoError(err)
	require.Equal(a, b)

	var otherKey [Size]byte
	c, err := KeyedSum(otherKey, []byte("message"))
	require.NoError(err)
	require.NotEqual(a, c)
}

func TestDigestString(t *testing.T) {
	require := require.New(t)

	d := Sum([]byte("x"))
	require.Len(d.String(), 2*Size)
}
