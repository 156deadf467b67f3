// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/crypto/sig"
	"github.com/luxfi/pqconsensus/store"
	"github.com/luxfi/pqconsensus/store/memstore"
	"github.com/luxfi/pqconsensus/vertex"
)

func buildVertex(t *testing.T, creator vertex.ID, priv *sig.PrivateKey, parents []vertex.ParentRef, payload []byte) *vertex.Vertex {
	t.Helper()
	v, err := vertex.Build(creator, parents, payload, priv, time.Now())
	require.NoError(t, err)
	return v
}

func TestStoreAndGetVertex(t *testing.T) {
	require := require.New(t)

	pub, priv, err := sig.Generate()
	require.NoError(err)
	creator := vertex.ID{1}
	_ = pub

	s := memstore.New()
	v := buildVertex(t, creator, priv, nil, []byte("genesis"))

	require.NoError(s.StoreVertex(v))

	got, ok, err := s.GetVertex(v.ID())
	require.NoError(err)
	require.True(ok)
	require.Equal(v.ID(), got.ID())

	_, ok, err = s.GetVertex(vertex.ID{99})
	require.NoError(err)
	require.False(ok)
}

func TestStoreVertexIdempotentOnIdenticalResubmission(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
	v := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))

	require.NoError(s.StoreVertex(v))
	require.NoError(s.StoreVertex(v))
}

func TestGetDAGTipTracksFrontierIncrementally(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
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

func TestAllocateSequenceMonotonic(t *testing.T) {
	require := require.New(t)

	s := memstore.New()
	first, err := s.AllocateSequence()
	require.NoError(err)
	second, err := s.AllocateSequence()
	require.NoError(err)
	require.Equal(first+1, second)
}

func TestMarkFinalizedRequiresKnownVertex(t *testing.T) {
	s := memstore.New()
	err := s.MarkFinalized(vertex.ID{7}, 0)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkFinalizedRejectsSequenceCollision(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	b := buildVertex(t, vertex.ID{1}, priv, nil, []byte("b"))
	require.NoError(s.StoreVertex(a))
	require.NoError(s.StoreVertex(b))

	require.NoError(s.MarkFinalized(a.ID(), 0))
	err = s.MarkFinalized(b.ID(), 0)
	require.ErrorIs(err, store.ErrSequenceOutOfOrder)
}

func TestMarkFinalizedTwiceSameSequenceIsNoop(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	require.NoError(s.StoreVertex(a))

	require.NoError(s.MarkFinalized(a.ID(), 3))
	require.NoError(s.MarkFinalized(a.ID(), 3))

	err = s.MarkFinalized(a.ID(), 4)
	require.ErrorIs(err, store.ErrAlreadyFinalized)
}

func TestGetFinalizedRange(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	b := buildVertex(t, vertex.ID{1}, priv, nil, []byte("b"))
	require.NoError(s.StoreVertex(a))
	require.NoError(s.StoreVertex(b))
	require.NoError(s.MarkFinalized(a.ID(), 0))
	require.NoError(s.MarkFinalized(b.ID(), 1))

	entries, err := s.GetFinalizedRange(0, 2)
	require.NoError(err)
	require.Len(entries, 2)
	require.Equal(a.ID(), entries[0].ID)
	require.Equal(b.ID(), entries[1].ID)
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	require := require.New(t)

	_, priv, err := sig.Generate()
	require.NoError(err)

	s := memstore.New()
	a := buildVertex(t, vertex.ID{1}, priv, nil, []byte("a"))
	b := buildVertex(t, vertex.ID{1}, priv, []vertex.ParentRef{{ID: a.ID(), Height: a.Height()}}, []byte("b"))
	require.NoError(s.StoreVertex(a))
	require.NoError(s.StoreVertex(b))

	seq, err := s.AllocateSequence()
	require.NoError(err)
	require.NoError(s.MarkFinalized(a.ID(), seq))

	archive := t.TempDir() + "/backup.tar.gz"
	manifest, err := s.CreateBackup(archive)
	require.NoError(err)
	require.Positive(manifest.DBSizeBytes)
	require.Positive(manifest.CompressedBytes)

	restored := memstore.New()
	require.NoError(restored.Restore(archive, ""))

	got, ok, err := restored.GetVertex(b.ID())
	require.NoError(err)
	require.True(ok)
	require.Equal(b.Payload(), got.Payload())

	tips, err := restored.GetDAGTip()
	require.NoError(err)
	require.ElementsMatch([]vertex.ID{b.ID()}, tips)

	entries, err := restored.GetFinalizedRange(0, 10)
	require.NoError(err)
	require.Len(entries, 1)
	require.Equal(seq, entries[0].Sequence)
	require.Equal(a.ID(), entries[0].ID)

	nextSeq, err := restored.AllocateSequence()
	require.NoError(err)
	require.Equal(seq+1, nextSeq)

	err = restored.MarkFinalized(b.ID(), seq)
	require.ErrorIs(err, store.ErrSequenceOutOfOrder)
}

func TestFlushCompactCloseAreNoops(t *testing.T) {
	require := require.New(t)
	s := memstore.New()
	require.NoError(s.Flush())
	require.NoError(s.Compact())
	require.NoError(s.Close())
}
