// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"fmt"

	"github.com/luxfi/pqconsensus/vertex"
)

// ProposeVertex broadcasts a newly built vertex to peers on the
// exchange/v1 topic.
type ProposeVertex struct {
	Vertex *vertex.Vertex
}

// Encode serializes p into an Envelope.
func (p ProposeVertex) Encode() (Envelope, error) {
	body := p.Vertex.Encode()
	return Envelope{Version: Version, Kind: KindProposeVertex, Body: body}, nil
}

// DecodeProposeVertex parses e's body as a ProposeVertex. It returns
// ErrUnknownKind if e is not tagged KindProposeVertex.
func DecodeProposeVertex(e Envelope) (ProposeVertex, error) {
	if e.Kind != KindProposeVertex {
		return ProposeVertex{}, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	v, err := vertex.Decode(e.Body)
	if err != nil {
		return ProposeVertex{}, err
	}
	return ProposeVertex{Vertex: v}, nil
}

// QueryVertex asks a sampled peer for its current opinion on VertexID, as
// part of sampling round RoundNumber identified by QueryID.
type QueryVertex struct {
	QueryID     vertex.ID
	VertexID    vertex.ID
	RoundNumber uint64
}

// Encode serializes q into an Envelope.
func (q QueryVertex) Encode() (Envelope, error) {
	var buf bytes.Buffer
	if err := writeID(&buf, q.QueryID); err != nil {
		return Envelope{}, err
	}
	if err := writeID(&buf, q.VertexID); err != nil {
		return Envelope{}, err
	}
	if err := writeUint64(&buf, q.RoundNumber); err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: Version, Kind: KindQueryVertex, Body: buf.Bytes()}, nil
}

// DecodeQueryVertex parses e's body as a QueryVertex.
func DecodeQueryVertex(e Envelope) (QueryVertex, error) {
	if e.Kind != KindQueryVertex {
		return QueryVertex{}, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	r := bytes.NewReader(e.Body)
	queryID, err := readID(r)
	if err != nil {
		return QueryVertex{}, err
	}
	vertexID, err := readID(r)
	if err != nil {
		return QueryVertex{}, err
	}
	round, err := readUint64(r)
	if err != nil {
		return QueryVertex{}, err
	}
	return QueryVertex{QueryID: queryID, VertexID: vertexID, RoundNumber: round}, nil
}

// VoteAccept is a peer's affirmative response to a QueryVertex.
type VoteAccept struct {
	QueryID   vertex.ID
	VertexID  vertex.ID
	Voter     vertex.ID
	Signature []byte
}

// Encode serializes v into an Envelope.
func (v VoteAccept) Encode() (Envelope, error) {
	var buf bytes.Buffer
	if err := writeVote(&buf, v.QueryID, v.VertexID, v.Voter, v.Signature); err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: Version, Kind: KindVoteAccept, Body: buf.Bytes()}, nil
}

// DecodeVoteAccept parses e's body as a VoteAccept.
func DecodeVoteAccept(e Envelope) (VoteAccept, error) {
	if e.Kind != KindVoteAccept {
		return VoteAccept{}, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	queryID, vertexID, voter, sig, err := readVote(e.Body)
	if err != nil {
		return VoteAccept{}, err
	}
	return VoteAccept{QueryID: queryID, VertexID: vertexID, Voter: voter, Signature: sig}, nil
}

// VoteReject is a peer's negative response to a QueryVertex.
type VoteReject struct {
	QueryID   vertex.ID
	VertexID  vertex.ID
	Voter     vertex.ID
	Signature []byte
}

// Encode serializes v into an Envelope.
func (v VoteReject) Encode() (Envelope, error) {
	var buf bytes.Buffer
	if err := writeVote(&buf, v.QueryID, v.VertexID, v.Voter, v.Signature); err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: Version, Kind: KindVoteReject, Body: buf.Bytes()}, nil
}

// DecodeVoteReject parses e's body as a VoteReject.
func DecodeVoteReject(e Envelope) (VoteReject, error) {
	if e.Kind != KindVoteReject {
		return VoteReject{}, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	queryID, vertexID, voter, sig, err := readVote(e.Body)
	if err != nil {
		return VoteReject{}, err
	}
	return VoteReject{QueryID: queryID, VertexID: vertexID, Voter: voter, Signature: sig}, nil
}
