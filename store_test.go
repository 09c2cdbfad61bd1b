package indexedtree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinprotocol/indexed-merkle-store/db/memory"
)

// failingWriteBackend wraps a memory.Backend so its write transaction's
// Commit always fails, for exercising S5 (write failure rollback).
type failingWriteBackend struct {
	*memory.Backend
}

type failingWriteTx struct {
	WriteTransaction
}

func (failingWriteTx) Commit(_ context.Context) error {
	return errors.New("injected commit failure")
}

func (b failingWriteBackend) NewWriteTransaction(ctx context.Context) (WriteTransaction, error) {
	inner, err := b.Backend.NewWriteTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return failingWriteTx{WriteTransaction: inner}, nil
}

func newStore(t *testing.T) (*Store[testValue], Backend) {
	t.Helper()
	backend := memory.New()
	s, err := NewStore[testValue](context.Background(), "accts", 20, backend)
	require.NoError(t, err)
	return s, backend
}

func mustRead(t *testing.T, backend Backend) ReadTransaction {
	t.Helper()
	tx, err := backend.NewReadTransaction(context.Background())
	require.NoError(t, err)
	t.Cleanup(tx.Close)
	return tx
}

// S1 — empty store bootstrap.
func TestS1EmptyStoreBootstrap(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	m, err := s.GetFullMeta(ctx, mustRead(t, backend), false)
	require.NoError(t, err)
	assert.Equal(t, "accts", m.Name)
	assert.Equal(t, uint32(20), m.Depth)
	assert.Equal(t, Index(0), m.Size)
	assert.True(t, m.Root.IsZero())
}

// S2 — set, read, commit.
func TestS2SetReadCommit(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	leaf := IndexedLeaf[testValue]{Value: testValue{K: 42}}
	require.NoError(t, s.SetAtIndex(7, leaf, true))
	require.NoError(t, s.PutMeta(1, NewFrFromUint64(0xdead)))

	_, found, err := s.GetLeaf(ctx, 7, mustRead(t, backend), true)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s.GetLeaf(ctx, 7, mustRead(t, backend), false)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Commit(ctx))

	got, found, err := s.GetLeaf(ctx, 7, mustRead(t, backend), false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(42), got.Value.K)

	assert.Equal(t, 0, s.indices.Len())
	assert.Empty(t, s.leaves)
	for _, lvl := range s.nodes {
		assert.Empty(t, lvl)
	}
}

// S3 — low-value across cache and db.
func TestS3LowValueAcrossCacheAndDB(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	leaf := IndexedLeaf[testValue]{Value: testValue{K: 42}}
	require.NoError(t, s.SetAtIndex(7, leaf, true))
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.UpdateIndex(100, NewFrFromUint64(30)))
	require.NoError(t, s.UpdateIndex(200, NewFrFromUint64(50)))

	exact, idx, err := s.FindLowValue(ctx, NewFrFromUint64(40), true, mustRead(t, backend))
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, Index(7), idx)

	exact, idx, err = s.FindLowValue(ctx, NewFrFromUint64(45), true, mustRead(t, backend))
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, Index(7), idx)

	exact, idx, err = s.FindLowValue(ctx, NewFrFromUint64(42), true, mustRead(t, backend))
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, Index(7), idx)
}

// S4 — IndexList merge across a reopened store.
func TestS4IndexListMerge(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	s1, err := NewStore[testValue](ctx, "accts", 20, backend)
	require.NoError(t, err)
	require.NoError(t, s1.UpdateIndex(2, NewFrFromUint64(99)))
	require.NoError(t, s1.UpdateIndex(5, NewFrFromUint64(99)))
	require.NoError(t, s1.Commit(ctx))

	s2, err := NewStore[testValue](ctx, "accts", 20, backend)
	require.NoError(t, err)
	require.NoError(t, s2.UpdateIndex(8, NewFrFromUint64(99)))
	require.NoError(t, s2.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	data, found, err := rtx.GetValueByFr(ctx, NewFrFromUint64(99))
	require.NoError(t, err)
	require.True(t, found)
	list, err := DecodeIndexList(data)
	require.NoError(t, err)
	assert.Equal(t, []Index{2, 5, 8}, list.Indices)

	idx, found, err := s2.FindLeafIndexFrom(ctx, testValue{K: 99}, 3, rtx, false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Index(5), idx)
}

// S5 — write failure leaves overlays untouched.
func TestS5WriteFailureRollback(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s, err := NewStore[testValue](ctx, "accts", 20, backend)
	require.NoError(t, err)
	s.backend = failingWriteBackend{Backend: backend}

	leaf := IndexedLeaf[testValue]{Value: testValue{K: 1}}
	require.NoError(t, s.SetAtIndex(1, leaf, false))

	err = s.Commit(ctx)
	require.Error(t, err)

	_, found, err := s.GetLeaf(ctx, 1, mustRead(t, backend), true)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s.GetLeaf(ctx, 1, mustRead(t, backend), false)
	require.NoError(t, err)
	assert.False(t, found)
}

// S6 — meta mismatch leaves the backend unchanged.
func TestS6MetaMismatch(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	s1, err := NewStore[testValue](ctx, "accts", 20, backend)
	require.NoError(t, err)
	leaf := IndexedLeaf[testValue]{Value: testValue{K: 1}}
	require.NoError(t, s1.SetAtIndex(1, leaf, true))
	require.NoError(t, s1.Commit(ctx))

	_, err = NewStore[testValue](ctx, "accts", 21, backend)
	require.Error(t, err)
	var mismatch *MetaMismatchError
	require.ErrorAs(t, err, &mismatch)

	m, found, err := s1.readPersistedMeta(ctx, mustRead(t, backend))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(20), m.Depth)
}

// Rollback idempotence.
func TestRollbackIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	leaf := IndexedLeaf[testValue]{Value: testValue{K: 1}}
	require.NoError(t, s.SetAtIndex(1, leaf, true))

	require.NoError(t, s.Rollback(ctx))
	metaAfterFirst := s.meta
	require.NoError(t, s.Rollback(ctx))

	assert.Equal(t, metaAfterFirst, s.meta)
	assert.Empty(t, s.leaves)
	assert.Equal(t, 0, s.indices.Len())
}

// Overlay isolation: uncommitted mutations never leak into a
// committed-only read.
func TestOverlayIsolation(t *testing.T) {
	s, backend := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutNode(3, 9, []byte("node-data")))
	_, found, err := s.GetNode(ctx, 3, 9, mustRead(t, backend), false)
	require.NoError(t, err)
	assert.False(t, found)

	data, found, err := s.GetNode(ctx, 3, 9, mustRead(t, backend), true)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("node-data"), data)
}

func TestDumpAndImportLeaves(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	s1, err := NewStore[testValue](ctx, "accts", 20, backend)
	require.NoError(t, err)
	require.NoError(t, s1.SetAtIndex(1, IndexedLeaf[testValue]{Value: testValue{K: 10}}, true))
	require.NoError(t, s1.SetAtIndex(2, IndexedLeaf[testValue]{Value: testValue{K: 20}}, true))
	require.NoError(t, s1.Commit(ctx))

	blob, err := s1.DumpLeaves(ctx, mustRead(t, backend))
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	otherBackend := memory.New()
	s2, err := NewStore[testValue](ctx, "accts", 20, otherBackend)
	require.NoError(t, err)
	require.NoError(t, s2.ImportLeaves(blob))
	require.NoError(t, s2.Commit(ctx))

	leaf, found, err := s2.GetLeaf(ctx, 1, mustRead(t, otherBackend), false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(10), leaf.Value.K)
}
