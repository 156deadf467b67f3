// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebblestore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/store"
	"github.com/luxfi/pqconsensus/store/pebblestore"
	"github.com/luxfi/pqconsensus/vertex"
)

func openStore(t *testing.T) (*pebblestore.Store, string) {
	t.Helper()
	dir := t.TempDir() + "/db"
	s, err := pebblestore.Open(pebblestore.Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func buildVertex(t *testing.T, creator vertex.ID, priv *sig.PrivateKey, parents []vertex.ParentRef, payload []byte) *vertex.Vertex {
	t.Helper()
	v, err := vertex.Build(creator, parents, payload, priv, time.Now())
	require.NoError(t, err)
	return v
}

func TestStoreAndGetVertex(t *testing.T) {
	require := require.New(t)

	s, _ := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	v := buildVertex(t, vertex.ID{1}, priv, nil, []byte("genesis"))
	require.NoError(s.StoreVertex(v))

	got, ok, err := s.GetVertex(v.ID())
	require.NoError(err)
	require.True(ok)
	require.Equal(v.Payload(), got.Payload())

	_, ok, err = s.GetVertex(vertex.ID{42})
	require.NoError(err)
	require.False(ok)
}

func TestStoreVertexIdempotentOnIdenticalResubmission(t *testing.T) {
	require := require.New(t)

	s, _ := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	v := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	require.NoError(s.StoreVertex(v))
	require.NoError(s.StoreVertex(v))
}

func TestDAGTipTracksFrontier(t *testing.T) {
	require := require.New(t)

	s, _ := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	root := buildVertex(t, vertex.ID{1}, priv, nil, []byte("root"))
	require.NoError(s.StoreVertex(root))

	tips, err := s.GetDAGTip()
	require.NoError(err)
	require.ElementsMatch([]vertex.ID{root.ID()}, tips)

	child := buildVertex(t, vertex.ID{1}, priv, []vertex.ParentRef{{ID: root.ID(), Height: root.Height()}}, []byte("child"))
	require.NoError(s.StoreVertex(child))

	tips, err = s.GetDAGTip()
	require.NoError(err)
	require.ElementsMatch([]vertex.ID{child.ID()}, tips)
}

func TestGetVerticesAtHeight(t *testing.T) {
	require := require.New(t)

	s, _ := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	b := buildVertex(t, vertex.ID{2}, priv, nil, []byte("b"))
	require.NoError(s.StoreVertex(a))
	require.NoError(s.StoreVertex(b))

	ids, err := s.GetVerticesAtHeight(0)
	require.NoError(err)
	require.ElementsMatch([]vertex.ID{a.ID(), b.ID()}, ids)
}

func TestAllocateAndMarkFinalizedSequencing(t *testing.T) {
	require := require.New(t)

	s, _ := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	b := buildVertex(t, vertex.ID{1}, priv, nil, []byte("b"))
	require.NoError(s.StoreVertex(a))
	require.NoError(s.StoreVertex(b))

	seq0, err := s.AllocateSequence()
	require.NoError(err)
	require.Equal(uint64(0), seq0)

	require.NoError(s.MarkFinalized(a.ID(), seq0))

	err = s.MarkFinalized(b.ID(), seq0)
	require.ErrorIs(err, store.ErrSequenceOutOfOrder)

	seq1, err := s.AllocateSequence()
	require.NoError(err)
	require.Equal(uint64(1), seq1)
	require.NoError(s.MarkFinalized(b.ID(), seq1))

	entries, err := s.GetFinalizedRange(0, 2)
	require.NoError(err)
	require.Len(entries, 2)
	require.Equal(a.ID(), entries[0].ID)
	require.Equal(b.ID(), entries[1].ID)
}

func TestMarkFinalizedUnknownVertex(t *testing.T) {
	s, _ := openStore(t)
	err := s.MarkFinalized(vertex.ID{9}, 0)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFlushAndCompact(t *testing.T) {
	require := require.New(t)
	s, _ := openStore(t)
	require.NoError(s.Flush())
	require.NoError(s.Compact())
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	require := require.New(t)

	s, dir := openStore(t)
	_, priv, err := sig.Generate()
	require.NoError(err)

	v := buildVertex(t, vertex.ID{1}, priv, nil, []byte("payload"))
	require.NoError(s.StoreVertex(v))

	archive := t.TempDir() + "/backup.tar.zst"
	manifest, err := s.CreateBackup(archive)
	require.NoError(err)
	require.Positive(manifest.DBSizeBytes)
	require.Positive(manifest.CompressedBytes)
	require.NoError(s.Close())

	require.NoError(s.Restore(archive, dir))

	reopened, err := pebblestore.Open(pebblestore.Config{Dir: dir})
	require.NoError(err)
	defer reopened.Close()

	got, ok, err := reopened.GetVertex(v.ID())
	require.NoError(err)
	require.True(ok)
	require.Equal(v.Payload(), got.Payload())
}
