// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/vertex"
	"github.com/luxfi/pqconsensus/wire"
)

func buildVertex(t *testing.T) *vertex.Vertex {
	t.Helper()
	_, priv, err := sig.Generate()
	require.NoError(t, err)
	v, err := vertex.Genesis(vertex.ID{1}, []byte("seed"), priv, time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	return v
}

func TestEnvelopeRoundTrip(t *testing.T) {
	require := require.New(t)

	env := wire.Envelope{Version: wire.Version, Kind: wire.KindQueryVertex, Body: []byte("payload")}

	var buf bytes.Buffer
	require.NoError(env.WriteTo(&buf))

	got, err := wire.ReadEnvelope(&buf)
	require.NoError(err)
	require.Equal(env, got)
}

func TestReadEnvelopeRejectsWrongVersion(t *testing.T) {
	require := require.New(t)

	env := wire.Envelope{Version: 99, Kind: wire.KindQueryVertex, Body: []byte("x")}
	var buf bytes.Buffer
	require.NoError(env.WriteTo(&buf))

	_, err := wire.ReadEnvelope(&buf)
	require.ErrorIs(err, wire.ErrUnsupportedVersion)
}

func TestProposeVertexRoundTrip(t *testing.T) {
	require := require.New(t)

	v := buildVertex(t)
	env, err := wire.ProposeVertex{Vertex: v}.Encode()
	require.NoError(err)
	require.Equal(wire.KindProposeVertex, env.Kind)

	decoded, err := wire.DecodeProposeVertex(env)
	require.NoError(err)
	require.Equal(v.ID(), decoded.Vertex.ID())
}

func TestQueryVertexRoundTrip(t *testing.T) {
	require := require.New(t)

	q := wire.QueryVertex{QueryID: vertex.ID{1}, VertexID: vertex.ID{2}, RoundNumber: 7}
	env, err := q.Encode()
	require.NoError(err)

	decoded, err := wire.DecodeQueryVertex(env)
	require.NoError(err)
	require.Equal(q, decoded)
}

func TestVoteAcceptRoundTrip(t *testing.T) {
	require := require.New(t)

	vote := wire.VoteAccept{QueryID: vertex.ID{1}, VertexID: vertex.ID{2}, Voter: vertex.ID{3}, Signature: []byte("sig-bytes")}
	env, err := vote.Encode()
	require.NoError(err)
	require.Equal(wire.KindVoteAccept, env.Kind)

	decoded, err := wire.DecodeVoteAccept(env)
	require.NoError(err)
	require.Equal(vote, decoded)
}

func TestVoteRejectRoundTrip(t *testing.T) {
	require := require.New(t)

	vote := wire.VoteReject{QueryID: vertex.ID{4}, VertexID: vertex.ID{5}, Voter: vertex.ID{6}, Signature: []byte("rej-sig")}
	env, err := vote.Encode()
	require.NoError(err)

	decoded, err := wire.DecodeVoteReject(env)
	require.NoError(err)
	require.Equal(vote, decoded)
}

func TestDecodeRejectsMismatchedKind(t *testing.T) {
	require := require.New(t)

	env := wire.Envelope{Version: wire.Version, Kind: wire.KindVoteAccept, Body: []byte("x")}
	_, err := wire.DecodeQueryVertex(env)
	require.ErrorIs(err, wire.ErrUnknownKind)
}
