// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vertex implements the immutable, content-addressed DAG vertex
// record and its canonical serialization, hashing, and signing.
package vertex

import (
	"encoding/binary"
	"time"

	"github.com/luxfi/pqconsensus/crypto/hash"
	"github.com/luxfi/pqconsensus/crypto/sig"
)

// ID is a vertex's content-addressed identifier: the BLAKE3 digest of its
// canonical serialization.
type ID = hash.Digest

// ParentRef is a parent vertex as seen by the builder: an id and the
// parent's already-known height, so Build never needs store access to
// compute the child's height.
type ParentRef struct {
	ID     ID
	Height uint64
}

// Vertex is an immutable, content-addressed unit of ordering. Once built,
// none of its exported fields change; mutable lifecycle state (pending,
// accepted, finalized; confidence) is tracked alongside it, never inside it.
type Vertex struct {
	id        ID
	parentIDs []ID
	payload   []byte
	creator   ID
	height    uint64
	timestamp time.Time
	signature sig.Signature
}

// ID returns the vertex's content-addressed identifier.
func (v *Vertex) ID() ID { return v.id }

// ParentIDs returns the vertex's parent ids in the order supplied to Build.
// The order is part of the hashed content: two semantically identical
// parent sets submitted in different orders legitimately produce distinct
// vertex ids. Callers that want order-independence must canonicalize their
// parent list before calling Build.
func (v *Vertex) ParentIDs() []ID {
	out := make([]ID, len(v.parentIDs))
	copy(out, v.parentIDs)
	return out
}

// Payload returns the opaque application payload.
func (v *Vertex) Payload() []byte { return v.payload }

// Creator returns the id of the peer that built and signed this vertex.
func (v *Vertex) Creator() ID { return v.creator }

// Height is 1 + the maximum height of this vertex's parents, or 0 for a
// genesis vertex with no parents.
func (v *Vertex) Height() uint64 { return v.height }

// Timestamp is the creator's wall-clock time of construction. It is
// informational only; consensus never depends on clock agreement.
func (v *Vertex) Timestamp() time.Time { return v.timestamp }

// Signature is the creator's detached ML-DSA-87 signature over the
// canonical serialization.
func (v *Vertex) Signature() sig.Signature { return v.signature }

// canonicalize produces the deterministic, platform-independent byte
// encoding that is both hashed (for id) and signed. Field order is fixed:
// creator, height, timestamp, payload (length-prefixed), parents
// (length-prefixed, in caller-supplied order).
func canonicalize(creator ID, height uint64, ts time.Time, payload []byte, parentIDs []ID) []byte {
	const version = 1

	size := 1 + hash.Size + 8 + 8 + 4 + len(payload) + 4 + len(parentIDs)*hash.Size
	buf := make([]byte, 0, size)

	buf = append(buf, version)
	buf = append(buf, creator[:]...)

	var tmp8 [8]byte
	binary.BigEndian.PutUint64(tmp8[:], height)
	buf = append(buf, tmp8[:]...)

	binary.BigEndian.PutUint64(tmp8[:], uint64(ts.UnixNano()))
	buf = append(buf, tmp8[:]...)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(payload)))
	buf = append(buf, tmp4[:]...)
	buf = append(buf, payload...)

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(parentIDs)))
	buf = append(buf, tmp4[:]...)
	for _, p := range parentIDs {
		buf = append(buf, p[:]...)
	}

	return buf
}

// Build constructs a new vertex referencing parents, computes its height,
// hashes its canonical serialization for the id, and signs that same
// serialization with priv. now is the wall-clock timestamp to record;
// callers pass it explicitly so the result is deterministic given fixed
// inputs.
func Build(creator ID, parents []ParentRef, payload []byte, priv *sig.PrivateKey, now time.Time) (*Vertex, error) {
	parentIDs := make([]ID, len(parents))
	var maxParentHeight uint64
	seen := make(map[ID]struct{}, len(parents))
	for i, p := range parents {
		if _, dup := seen[p.ID]; dup {
			return nil, ErrMalformedParents
		}
		seen[p.ID] = struct{}{}
		parentIDs[i] = p.ID
		if p.Height+1 > maxParentHeight {
			maxParentHeight = p.Height + 1
		}
	}

	var height uint64
	if len(parents) > 0 {
		height = maxParentHeight
	}

	canonical := canonicalize(creator, height, now, payload, parentIDs)
	id := hash.Sum(canonical)

	signature, err := sig.Sign(priv, canonical)
	if err != nil {
		return nil, err
	}

	return &Vertex{
		id:        id,
		parentIDs: parentIDs,
		payload:   append([]byte(nil), payload...),
		creator:   creator,
		height:    height,
		timestamp: now,
		signature: signature,
	}, nil
}

// Verify recomputes v's canonical serialization and hash and checks that
// both the content hash and the creator's signature are valid under pub.
func Verify(v *Vertex, pub *sig.PublicKey) error {
	canonical := canonicalize(v.creator, v.height, v.timestamp, v.payload, v.parentIDs)

	id := hash.Sum(canonical)
	if id != v.id {
		return ErrInvalidHash
	}

	if !sig.Verify(pub, canonical, v.signature) {
		return ErrInvalidSignature
	}

	return nil
}

// Genesis returns the well-known, parentless genesis vertex built
// deterministically from seed — every correct peer must construct the
// identical genesis vertex, so seed and now must be agreed out of band
// (e.g. baked into network configuration) rather than derived locally.
func Genesis(creator ID, seed []byte, priv *sig.PrivateKey, now time.Time) (*Vertex, error) {
	return Build(creator, nil, seed, priv, now)
}
