// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vertex

import "errors"

var (
	// ErrInvalidHash is returned by Verify when the recomputed content
	// hash does not match the vertex's claimed id.
	ErrInvalidHash = errors.New("vertex: recomputed hash does not match id")
	// ErrInvalidSignature is returned by Verify when the creator's
	// signature does not check out over the canonical serialization.
	ErrInvalidSignature = errors.New("vertex: signature verification failed")
	// ErrMalformedParents is returned by Build when the parent list names
	// the same parent id more than once.
	ErrMalformedParents = errors.New("vertex: malformed parent set")
)
