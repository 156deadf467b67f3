// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vertex

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/luxfi/pqconsensus/crypto/hash"
)

// Encode serializes v for durable storage: the canonical (hashed/signed)
// bytes followed by the length-prefixed detached signature. This is a
// strict superset of the canonical serialization, so Decode can recover an
// identical Vertex without any side channel.
func (v *Vertex) Encode() []byte {
	canonical := canonicalize(v.creator, v.height, v.timestamp, v.payload, v.parentIDs)

	out := make([]byte, 0, len(canonical)+4+len(v.signature))
	out = append(out, canonical...)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(v.signature)))
	out = append(out, tmp4[:]...)
	out = append(out, v.signature...)
	return out
}

// Decode reconstructs a Vertex previously produced by Encode. It does not
// verify the signature; call Verify with the creator's public key for that.
func Decode(data []byte) (*Vertex, error) {
	const minHeader = 1 + hash.Size + 8 + 8 + 4
	if len(data) < minHeader {
		return nil, fmt.Errorf("vertex: truncated record (%d bytes)", len(data))
	}

	off := 0
	version := data[off]
	off++
	if version != 1 {
		return nil, fmt.Errorf("vertex: unsupported encoding version %d", version)
	}

	var creator ID
	copy(creator[:], data[off:off+hash.Size])
	off += hash.Size

	height := binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	tsNanos := binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	ts := time.Unix(0, int64(tsNanos))

	payloadLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if off+payloadLen > len(data) {
		return nil, fmt.Errorf("vertex: truncated payload")
	}
	payload := append([]byte(nil), data[off:off+payloadLen]...)
	off += payloadLen

	if off+4 > len(data) {
		return nil, fmt.Errorf("vertex: truncated parent count")
	}
	parentCount := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4

	parentIDs := make([]ID, parentCount)
	for i := 0; i < parentCount; i++ {
		if off+hash.Size > len(data) {
			return nil, fmt.Errorf("vertex: truncated parent list")
		}
		copy(parentIDs[i][:], data[off:off+hash.Size])
		off += hash.Size
	}

	canonicalLen := off
	canonical := data[:canonicalLen]

	if off+4 > len(data) {
		return nil, fmt.Errorf("vertex: truncated signature length")
	}
	sigLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if off+sigLen != len(data) {
		return nil, fmt.Errorf("vertex: trailing or truncated signature bytes")
	}
	signature := append([]byte(nil), data[off:off+sigLen]...)

	id := hash.Sum(canonical)

	return &Vertex{
		id:        id,
		parentIDs: parentIDs,
		payload:   payload,
		creator:   creator,
		height:    height,
		timestamp: ts,
		signature: signature,
	}, nil
}
