// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memstore implements store.VertexStore entirely in memory, for
// tests and benchmarks (§9 "tests and benchmarks use an in-memory
// variant").
package memstore

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/luxfi/pqconsensus/store"
	"github.com/luxfi/pqconsensus/vertex"
)

const schemaVersion = 1

// Store is an in-memory VertexStore backed by mutex-protected maps,
// mirroring the teacher's serializer shape (engine/dag/state) rather than
// any concurrent lock-free structure — correctness over cleverness for a
// test/benchmark backend.
type Store struct {
	mu sync.RWMutex

	vertices   map[vertex.ID]*vertex.Vertex
	finalized  map[uint64]vertex.ID
	finalSeqOf map[vertex.ID]uint64
	byHeight   map[uint64]map[vertex.ID]struct{}
	tips       map[vertex.ID]struct{}
	nextSeq    uint64
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		vertices:   make(map[vertex.ID]*vertex.Vertex),
		finalized:  make(map[uint64]vertex.ID),
		finalSeqOf: make(map[vertex.ID]uint64),
		byHeight:   make(map[uint64]map[vertex.ID]struct{}),
		tips:       make(map[vertex.ID]struct{}),
	}
}

// StoreVertex implements store.VertexStore.
func (s *Store) StoreVertex(v *vertex.Vertex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := v.ID()
	if existing, ok := s.vertices[id]; ok {
		if !bytes.Equal(existing.Encode(), v.Encode()) {
			return store.ErrAlreadyExists
		}
		return nil
	}

	s.vertices[id] = v

	if s.byHeight[v.Height()] == nil {
		s.byHeight[v.Height()] = make(map[vertex.ID]struct{})
	}
	s.byHeight[v.Height()][id] = struct{}{}

	s.tips[id] = struct{}{}
	for _, p := range v.ParentIDs() {
		delete(s.tips, p)
	}

	return nil
}

// GetVertex implements store.VertexStore.
func (s *Store) GetVertex(id vertex.ID) (*vertex.Vertex, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[id]
	return v, ok, nil
}

// AllocateSequence implements store.VertexStore.
func (s *Store) AllocateSequence() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq
	s.nextSeq++
	return seq, nil
}

// MarkFinalized implements store.VertexStore.
func (s *Store) MarkFinalized(id vertex.ID, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[id]; !ok {
		return store.ErrNotFound
	}
	if existingSeq, ok := s.finalSeqOf[id]; ok {
		if existingSeq == seq {
			return nil
		}
		return store.ErrAlreadyFinalized
	}
	if _, taken := s.finalized[seq]; taken {
		return store.ErrSequenceOutOfOrder
	}

	s.finalized[seq] = id
	s.finalSeqOf[id] = seq
	return nil
}

// GetFinalizedRange implements store.VertexStore.
func (s *Store) GetFinalizedRange(start, end uint64) ([]store.FinalizedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.FinalizedEntry
	for seq := start; seq < end; seq++ {
		id, ok := s.finalized[seq]
		if !ok {
			continue
		}
		out = append(out, store.FinalizedEntry{Sequence: seq, ID: id})
	}
	return out, nil
}

// GetVerticesAtHeight implements store.VertexStore.
func (s *Store) GetVerticesAtHeight(h uint64) ([]vertex.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byHeight[h]
	out := make([]vertex.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

// GetDAGTip implements store.VertexStore.
func (s *Store) GetDAGTip() ([]vertex.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vertex.ID, 0, len(s.tips))
	for id := range s.tips {
		out = append(out, id)
	}
	return out, nil
}

// Flush is a no-op for the in-memory backend: everything is already
// "durable" in process memory.
func (s *Store) Flush() error { return nil }

// Compact is a no-op for the in-memory backend.
func (s *Store) Compact() error { return nil }

// CreateBackup serializes the entire store to a gzip-compressed tar
// archive at destPath. This mirrors pebblestore's manifest shape so test
// code can exercise the same backup/restore contract against either
// backend. Alongside the vertex bytes, it also serializes the finalized
// index and next-sequence counter, since pebblestore's checkpoint-based
// backup captures that metadata implicitly (it lives in the same KV
// space) and the in-memory backend must do so explicitly to match.
func (s *Store) CreateBackup(destPath string) (store.BackupManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw bytes.Buffer
	for id, v := range s.vertices {
		raw.Write(id[:])
		enc := v.Encode()
		if err := writeUint32(&raw, uint32(len(enc))); err != nil {
			return store.BackupManifest{}, err
		}
		raw.Write(enc)
	}
	dbSize := int64(raw.Len())

	var finalRaw bytes.Buffer
	if err := writeUint64(&finalRaw, s.nextSeq); err != nil {
		return store.BackupManifest{}, err
	}
	if err := writeUint32(&finalRaw, uint32(len(s.finalized))); err != nil {
		return store.BackupManifest{}, err
	}
	for seq, id := range s.finalized {
		if err := writeUint64(&finalRaw, seq); err != nil {
			return store.BackupManifest{}, err
		}
		finalRaw.Write(id[:])
	}

	f, err := os.Create(destPath)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{Name: "vertices.bin", Size: int64(raw.Len()), Mode: 0o600}
	if err := tw.WriteHeader(hdr); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if _, err := tw.Write(raw.Bytes()); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	finalHdr := &tar.Header{Name: "finalized.bin", Size: int64(finalRaw.Len()), Mode: 0o600}
	if err := tw.WriteHeader(finalHdr); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if _, err := tw.Write(finalRaw.Bytes()); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	if err := tw.Close(); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if err := gz.Close(); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	return store.BackupManifest{
		ID:              filepath.Base(destPath),
		CreatedAt:       nowManifestTime(),
		DBSizeBytes:     dbSize,
		CompressedBytes: info.Size(),
		SchemaVersion:   schemaVersion,
	}, nil
}

// Restore replaces this store's contents with the archive at archivePath.
// dir is accepted for interface parity with pebblestore but unused, since
// the in-memory backend has no on-disk directory of its own.
func (s *Store) Restore(archivePath, dir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if hdr.Name != "vertices.bin" {
		return fmt.Errorf("%w: unexpected archive entry %q", store.ErrIO, hdr.Name)
	}

	raw, err := io.ReadAll(tr)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	finalHdr, err := tr.Next()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if finalHdr.Name != "finalized.bin" {
		return fmt.Errorf("%w: unexpected archive entry %q", store.ErrIO, finalHdr.Name)
	}
	finalRaw, err := io.ReadAll(tr)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	restored := New()
	r := bytes.NewReader(raw)
	for r.Len() > 0 {
		var id vertex.ID
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		var length uint32
		if err := readUint32(r, &length); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		v, err := vertex.Decode(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		if err := restored.StoreVertex(v); err != nil {
			return err
		}
	}

	fr := bytes.NewReader(finalRaw)
	var nextSeq uint64
	if err := readUint64(fr, &nextSeq); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	var count uint32
	if err := readUint32(fr, &count); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	finalized := make(map[uint64]vertex.ID, count)
	finalSeqOf := make(map[vertex.ID]uint64, count)
	for i := uint32(0); i < count; i++ {
		var seq uint64
		if err := readUint64(fr, &seq); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		var id vertex.ID
		if _, err := io.ReadFull(fr, id[:]); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		finalized[seq] = id
		finalSeqOf[id] = seq
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices = restored.vertices
	s.byHeight = restored.byHeight
	s.tips = restored.tips
	s.finalized = finalized
	s.finalSeqOf = finalSeqOf
	s.nextSeq = nextSeq
	return nil
}

// Close implements store.VertexStore.
func (s *Store) Close() error { return nil }

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader, v *uint32) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	*v = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (56 - 8*i))
	}
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader, v *uint64) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	var out uint64
	for i := 0; i < 8; i++ {
		out |= uint64(buf[i]) << (56 - 8*i)
	}
	*v = out
	return nil
}

// nowManifestTime exists purely so backup manifests carry a real
// timestamp; isolated into its own function so tests can see exactly
// where wall-clock time enters this package.
func nowManifestTime() time.Time { return time.Now() }
