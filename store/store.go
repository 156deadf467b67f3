// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store defines the persistent vertex store contract. Callers
// depend only on this capability set — a production process wires
// store/pebblestore, tests and benchmarks wire store/memstore.
package store

import (
	"errors"
	"time"

	"github.com/luxfi/pqconsensus/vertex"
)

var (
	// ErrAlreadyExists is returned by StoreVertex when a different byte
	// representation is already stored under the same id. Storing the
	// identical bytes twice is not an error.
	ErrAlreadyExists = errors.New("store: vertex already exists with different content")
	// ErrNotFound is returned when an id referenced by an operation is
	// absent from the store.
	ErrNotFound = errors.New("store: not found")
	// ErrSequenceOutOfOrder is returned by MarkFinalized when seq is
	// already assigned to a different vertex. pebblestore also returns it
	// for a seq that AllocateSequence has not yet handed out.
	ErrSequenceOutOfOrder = errors.New("store: sequence out of order")
	// ErrAlreadyFinalized is returned by MarkFinalized when the vertex is
	// already finalized under a different sequence number. memstore
	// detects this case; pebblestore keeps no id-to-sequence index and
	// does not.
	ErrAlreadyFinalized = errors.New("store: already finalized")
	// ErrIO wraps underlying storage-engine failures.
	ErrIO = errors.New("store: io error")
)

// FinalizedEntry pairs a finalization sequence number with the vertex id
// assigned to it.
type FinalizedEntry struct {
	Sequence uint64
	ID       vertex.ID
}

// BackupManifest describes a completed backup archive.
type BackupManifest struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	DBSizeBytes     int64     `json:"db_size"`
	CompressedBytes int64     `json:"compressed_size"`
	SchemaVersion   uint32    `json:"schema_version"`
}

// VertexStore is the persistent vertex store's capability set (§4.3). A
// production implementation uses an embedded LSM engine; tests use an
// in-memory variant. Callers never type-switch on the concrete backend.
type VertexStore interface {
	// StoreVertex persists v durably. Storing the same id with
	// byte-identical content twice returns nil; storing different
	// content under an existing id returns ErrAlreadyExists.
	StoreVertex(v *vertex.Vertex) error

	// GetVertex returns the vertex stored under id, or ok=false if
	// absent.
	GetVertex(id vertex.ID) (v *vertex.Vertex, ok bool, err error)

	// AllocateSequence atomically reserves and returns the next
	// finalization sequence number without assigning it to any vertex.
	AllocateSequence() (uint64, error)

	// MarkFinalized records that id is finalized under sequence seq, a
	// number obtained from AllocateSequence. Marking id again under the
	// same seq returns nil.
	MarkFinalized(id vertex.ID, seq uint64) error

	// GetFinalizedRange returns finalized entries with sequence numbers
	// in [start, end), ordered by sequence.
	GetFinalizedRange(start, end uint64) ([]FinalizedEntry, error)

	// GetVerticesAtHeight returns all known vertex ids at height h, in
	// no particular order.
	GetVerticesAtHeight(h uint64) ([]vertex.ID, error)

	// GetDAGTip returns the ids of vertices with no recorded children —
	// the current frontier. Tip state is maintained durably, not
	// recomputed from volatile memory, so it survives restarts.
	GetDAGTip() ([]vertex.ID, error)

	// Flush makes all preceding writes durable.
	Flush() error

	// Compact reclaims space from superseded on-disk state.
	Compact() error

	// CreateBackup produces a compressed, self-contained archive at
	// destPath and returns its manifest.
	CreateBackup(destPath string) (BackupManifest, error)

	// Restore atomically replaces the store's on-disk state at dir with
	// the contents of the backup archive at archivePath. Restore either
	// fully succeeds or leaves the previous state at dir untouched.
	Restore(archivePath, dir string) error

	// Close releases the store's resources.
	Close() error
}
