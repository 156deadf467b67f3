// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pebblestore implements store.VertexStore on top of
// github.com/cockroachdb/pebble, an embedded LSM-tree engine (§9:
// "a production implementation uses an embedded LSM engine"). Logical
// column families from §4.3 (vertices, finalized, height_index, metadata)
// are emulated with single-byte key prefixes, since pebble itself has no
// native column-family concept.
package pebblestore

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"github.com/luxfi/log"

	pqlog "github.com/luxfi/pqconsensus/log"
	"github.com/luxfi/pqconsensus/store"
	"github.com/luxfi/pqconsensus/vertex"
)

const schemaVersion = 1

// Key prefixes emulating §4.3's column families.
const (
	prefixVertex    byte = 'v'
	prefixFinalized byte = 'f'
	prefixHeight    byte = 'h'
	prefixTip       byte = 't'
	prefixMeta      byte = 'm'
)

var metaNextSeqKey = []byte{prefixMeta, 'n'}

// Config configures a Store.
type Config struct {
	// Dir is the on-disk directory the pebble instance owns.
	Dir string
	// BlockCacheBytes sizes pebble's shared block cache (§6
	// block_cache_bytes). Zero uses pebble's own default.
	BlockCacheBytes int64
	Log             log.Logger
}

// Store implements store.VertexStore over a single pebble.DB.
type Store struct {
	db  *pebble.DB
	dir string
	log log.Logger

	// seqMu serializes AllocateSequence/MarkFinalized so the metadata
	// counter and the finalized-index write stay consistent without
	// relying on pebble's (non-transactional, single-key) atomicity.
	seqMu sync.Mutex
}

// Open opens or creates a pebble store at cfg.Dir.
func Open(cfg Config) (*Store, error) {
	opts := &pebble.Options{}
	if cfg.BlockCacheBytes > 0 {
		opts.Cache = pebble.NewCache(cfg.BlockCacheBytes)
	}

	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble at %s: %v", store.ErrIO, cfg.Dir, err)
	}

	l := cfg.Log
	if l == nil {
		l = pqlog.NewNoOpLogger()
	}

	return &Store{db: db, dir: cfg.Dir, log: l}, nil
}

func vertexKey(id vertex.ID) []byte {
	key := make([]byte, 1+len(id))
	key[0] = prefixVertex
	copy(key[1:], id[:])
	return key
}

func finalizedKey(seq uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = prefixFinalized
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func heightKey(h uint64, id vertex.ID) []byte {
	key := make([]byte, 1+8+len(id))
	key[0] = prefixHeight
	binary.BigEndian.PutUint64(key[1:9], h)
	copy(key[9:], id[:])
	return key
}

func heightPrefix(h uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = prefixHeight
	binary.BigEndian.PutUint64(key[1:], h)
	return key
}

func tipKey(id vertex.ID) []byte {
	key := make([]byte, 1+len(id))
	key[0] = prefixTip
	copy(key[1:], id[:])
	return key
}

// StoreVertex implements store.VertexStore.
func (s *Store) StoreVertex(v *vertex.Vertex) error {
	id := v.ID()
	key := vertexKey(id)

	existing, closer, err := s.db.Get(key)
	if err == nil {
		defer closer.Close()
		enc := v.Encode()
		if !bytes.Equal(existing, enc) {
			return store.ErrAlreadyExists
		}
		return nil
	}
	if err != pebble.ErrNotFound {
		return fmt.Errorf("%w: get vertex: %v", store.ErrIO, err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(key, v.Encode(), nil); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if err := batch.Set(heightKey(v.Height(), id), nil, nil); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if err := batch.Set(tipKey(id), nil, nil); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	for _, p := range v.ParentIDs() {
		if err := batch.Delete(tipKey(p), nil); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: commit: %v", store.ErrIO, err)
	}
	return nil
}

// GetVertex implements store.VertexStore.
func (s *Store) GetVertex(id vertex.ID) (*vertex.Vertex, bool, error) {
	data, closer, err := s.db.Get(vertexKey(id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer closer.Close()

	v, err := vertex.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decode vertex %s: %v", store.ErrIO, id, err)
	}
	return v, true, nil
}

// AllocateSequence implements store.VertexStore.
func (s *Store) AllocateSequence() (uint64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	seq, err := s.readNextSeq()
	if err != nil {
		return 0, err
	}
	if err := s.writeNextSeq(seq + 1); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) readNextSeq() (uint64, error) {
	data, closer, err := s.db.Get(metaNextSeqKey)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(data), nil
}

func (s *Store) writeNextSeq(seq uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := s.db.Set(metaNextSeqKey, buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return nil
}

// MarkFinalized implements store.VertexStore.
func (s *Store) MarkFinalized(id vertex.ID, seq uint64) error {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	if _, _, err := s.db.Get(vertexKey(id)); err == pebble.ErrNotFound {
		return store.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	if existingID, closer, err := s.db.Get(finalizedKey(seq)); err == nil {
		defer closer.Close()
		if bytes.Equal(existingID, id[:]) {
			return nil
		}
		return store.ErrSequenceOutOfOrder
	} else if err != pebble.ErrNotFound {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	next, err := s.readNextSeq()
	if err != nil {
		return err
	}
	if seq >= next {
		return store.ErrSequenceOutOfOrder
	}

	if err := s.db.Set(finalizedKey(seq), id[:], pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return nil
}

// GetFinalizedRange implements store.VertexStore.
func (s *Store) GetFinalizedRange(start, end uint64) ([]store.FinalizedEntry, error) {
	lower := finalizedKey(start)
	upper := finalizedKey(end)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer iter.Close()

	var out []store.FinalizedEntry
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		seq := binary.BigEndian.Uint64(key[1:9])
		var id vertex.ID
		copy(id[:], iter.Value())
		out = append(out, store.FinalizedEntry{Sequence: seq, ID: id})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return out, nil
}

// GetVerticesAtHeight implements store.VertexStore.
func (s *Store) GetVerticesAtHeight(h uint64) ([]vertex.ID, error) {
	prefix := heightPrefix(h)
	upper := append(append([]byte{}, prefix...), 0xff)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer iter.Close()

	var out []vertex.ID
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		var id vertex.ID
		copy(id[:], key[9:])
		out = append(out, id)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return out, nil
}

// GetDAGTip implements store.VertexStore.
func (s *Store) GetDAGTip() ([]vertex.ID, error) {
	lower := []byte{prefixTip}
	upper := []byte{prefixTip + 1}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer iter.Close()

	var out []vertex.ID
	for iter.First(); iter.Valid(); iter.Next() {
		var id vertex.ID
		copy(id[:], iter.Key()[1:])
		out = append(out, id)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return out, nil
}

// Flush implements store.VertexStore.
func (s *Store) Flush() error {
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return nil
}

// Compact implements store.VertexStore.
func (s *Store) Compact() error {
	if err := s.db.Compact(nil, []byte{0xff}, true); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return nil
}

// backupManifestFile is the archive entry name for the JSON manifest
// described in §6's persisted-state layout.
const backupManifestFile = "manifest.json"

// CreateBackup takes a pebble checkpoint, tars it with klauspost/compress's
// zstd encoder, and writes the result to destPath alongside a JSON
// manifest entry, matching §6's `{id, created_at, db_size,
// compressed_size, schema_version}` contract.
func (s *Store) CreateBackup(destPath string) (store.BackupManifest, error) {
	checkpointDir, err := os.MkdirTemp("", "pqconsensus-checkpoint-*")
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer os.RemoveAll(checkpointDir)

	cpPath := filepath.Join(checkpointDir, "cp")
	if err := s.db.Checkpoint(cpPath); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: checkpoint: %v", store.ErrIO, err)
	}

	dbSize, err := dirSize(cpPath)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	manifest := store.BackupManifest{
		ID:            filepath.Base(destPath),
		CreatedAt:     time.Now(),
		DBSizeBytes:   dbSize,
		SchemaVersion: schemaVersion,
	}

	f, err := os.Create(destPath)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	tw := tar.NewWriter(zw)

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if err := tw.WriteHeader(&tar.Header{Name: backupManifestFile, Size: int64(len(manifestBytes)), Mode: 0o600}); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if _, err := tw.Write(manifestBytes); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	if err := tarDir(tw, cpPath, "data"); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	if err := tw.Close(); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	if err := zw.Close(); err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return store.BackupManifest{}, fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	manifest.CompressedBytes = info.Size()

	s.log.Info("created backup", "id", manifest.ID, "db_size", manifest.DBSizeBytes, "compressed_size", manifest.CompressedBytes)
	return manifest, nil
}

// Restore atomically replaces dir's contents with the archive at
// archivePath: it extracts into a sibling temp directory first and only
// renames it over dir once extraction has fully succeeded, so a failed
// restore leaves the previous state untouched.
func (s *Store) Restore(archivePath, dir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)

	stagingDir := dir + ".restore-staging"
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		if hdr.Name == backupManifestFile {
			continue
		}
		rel, err := filepath.Rel("data", hdr.Name)
		if err != nil || rel == "." || len(rel) >= 2 && rel[:2] == ".." {
			continue
		}
		target := filepath.Join(stagingDir, rel)
		if hdr.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return fmt.Errorf("%w: %v", store.ErrIO, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		out, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
		out.Close()
	}

	backupDir := dir + ".restore-previous"
	_ = os.RemoveAll(backupDir)
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, backupDir); err != nil {
			return fmt.Errorf("%w: %v", store.ErrIO, err)
		}
	}
	if err := os.Rename(stagingDir, dir); err != nil {
		// Best-effort roll back so a failed restore leaves the
		// previous state in place, per the restore contract.
		_ = os.Rename(backupDir, dir)
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	_ = os.RemoveAll(backupDir)
	return nil
}

// Close implements store.VertexStore.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrIO, err)
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func tarDir(tw *tar.Writer, srcDir, archivePrefix string) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := archivePrefix
		if rel != "." {
			name = filepath.Join(archivePrefix, rel)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
