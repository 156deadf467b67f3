// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash wraps BLAKE3 content hashing for vertex identifiers and
// keyed-stream derivation.
package hash

import (
	"github.com/zeebo/blake3"
)

// Size is the digest size in bytes used throughout the consensus core.
const Size = 32

// treeThreshold is the input length above which we drive blake3's internal
// chunked/tree mode instead of a single Write+Sum call. blake3 parallelizes
// internally past its chunk size (1024 bytes) but large vertex payloads
// benefit from writing in bounded slices rather than one giant buffer.
const treeThreshold = 1 << 20 // 1 MiB

// Digest is a fixed-size BLAKE3 output.
type Digest [Size]byte

// Sum returns the BLAKE3 digest of data.
func Sum(data []byte) Digest {
	if len(data) > treeThreshold {
		return sumTree(data)
	}
	var out Digest
	sum := blake3.Sum256(data)
	copy(out[:], sum[:])
	return out
}

// sumTree hashes large payloads in bounded writes so blake3's internal
// tree mode can parallelize across chunks instead of a single linear pass.
func sumTree(data []byte) Digest {
	h := blake3.New()
	const chunk = 64 * 1024
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		// Hash.Write never returns an error.
		_, _ = h.Write(data[off:end])
	}
	var out Digest
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}

// KeyedSum returns the BLAKE3 keyed-hash digest of data under key. Used by
// the vault collaborator to derive per-session MAC tags without a separate
// HMAC construction.
func KeyedSum(key [Size]byte, data []byte) (Digest, error) {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		return Digest{}, err
	}
	if _, err := h.Write(data); err != nil {
		return Digest{}, err
	}
	var out Digest
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out, nil
}

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 2*Size)
	for i, b := range d {
		buf[2*i] = hexDigits[b>>4]
		buf[2*i+1] = hexDigits[b&0x0f]
	}
	return string(buf)
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
