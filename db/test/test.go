// Package test is a backend-agnostic conformance suite for
// indexedtree.Backend implementations: every package implementing
// Backend runs this same suite against its own constructor.
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexedtree "github.com/marlinprotocol/indexed-merkle-store"
)

// Builder constructs a fresh, empty Backend for each subtest.
type Builder interface {
	NewBackend(t *testing.T) indexedtree.Backend
}

// TestAll runs the full conformance suite against b.
func TestAll(t *testing.T, b Builder) {
	t.Run("TestReturnNotFound", func(t *testing.T) {
		TestReturnNotFound(t, b.NewBackend(t))
	})
	t.Run("TestPutGetByIndex", func(t *testing.T) {
		TestPutGetByIndex(t, b.NewBackend(t))
	})
	t.Run("TestPutGetByFr", func(t *testing.T) {
		TestPutGetByFr(t, b.NewBackend(t))
	})
	t.Run("TestGetValueOrPrevious", func(t *testing.T) {
		TestGetValueOrPrevious(t, b.NewBackend(t))
	})
	t.Run("TestPutGetNode", func(t *testing.T) {
		TestPutGetNode(t, b.NewBackend(t))
	})
	t.Run("TestUncommittedWriteNotVisible", func(t *testing.T) {
		TestUncommittedWriteNotVisible(t, b.NewBackend(t))
	})
	t.Run("TestAbortedWriteNotVisible", func(t *testing.T) {
		TestAbortedWriteNotVisible(t, b.NewBackend(t))
	})
	t.Run("TestScanLeavesAscending", func(t *testing.T) {
		TestScanLeavesAscending(t, b.NewBackend(t))
	})
}

func TestReturnNotFound(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()
	tx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer tx.Close()

	_, found, err := tx.GetValueByIndex(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = tx.GetNode(ctx, 1, 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutGetByIndex(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.PutValueByIndex(ctx, 7, []byte("hello")))
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	v, found, err := rtx.GetValueByIndex(ctx, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("hello"), v)
}

func TestPutGetByFr(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()
	key := indexedtree.NewFrFromUint64(100)

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.PutValueByFr(ctx, key, []byte("world")))
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	v, found, err := rtx.GetValueByFr(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("world"), v)

	_, found, err = rtx.GetValueByFr(ctx, indexedtree.NewFrFromUint64(101))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetValueOrPrevious(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	for _, k := range []uint64{10, 20, 30} {
		require.NoError(t, wtx.PutValueByFr(ctx, indexedtree.NewFrFromUint64(k), []byte{byte(k)}))
	}
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	// exact match
	matched, v, found, err := rtx.GetValueOrPrevious(ctx, indexedtree.NewFrFromUint64(20))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, matched.Cmp(indexedtree.NewFrFromUint64(20)))
	assert.Equal(t, []byte{20}, v)

	// between entries falls back to the smaller one
	matched, v, found, err = rtx.GetValueOrPrevious(ctx, indexedtree.NewFrFromUint64(25))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, matched.Cmp(indexedtree.NewFrFromUint64(20)))
	assert.Equal(t, []byte{20}, v)

	// below every entry: nothing matches
	_, _, found, err = rtx.GetValueOrPrevious(ctx, indexedtree.NewFrFromUint64(5))
	require.NoError(t, err)
	assert.False(t, found)

	// above every entry: largest entry matches
	matched, _, found, err = rtx.GetValueOrPrevious(ctx, indexedtree.NewFrFromUint64(1000))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, matched.Cmp(indexedtree.NewFrFromUint64(30)))
}

func TestPutGetNode(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.PutNode(ctx, 3, 9, []byte("node-data")))
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	v, found, err := rtx.GetNode(ctx, 3, 9)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("node-data"), v)

	_, found, err = rtx.GetNode(ctx, 4, 9)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUncommittedWriteNotVisible(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.PutValueByIndex(ctx, 1, []byte("pending")))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	_, found, err := rtx.GetValueByIndex(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, wtx.Commit(ctx))
}

func TestAbortedWriteNotVisible(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, wtx.PutValueByIndex(ctx, 2, []byte("aborted")))
	wtx.TryAbort()

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	_, found, err := rtx.GetValueByIndex(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestScanLeavesAscending(t *testing.T, backend indexedtree.Backend) {
	ctx := context.Background()

	wtx, err := backend.NewWriteTransaction(ctx)
	require.NoError(t, err)
	for _, idx := range []uint64{30, 10, 20} {
		require.NoError(t, wtx.PutValueByIndex(ctx, indexedtree.Index(idx), []byte{byte(idx)}))
	}
	require.NoError(t, wtx.Commit(ctx))

	rtx, err := backend.NewReadTransaction(ctx)
	require.NoError(t, err)
	defer rtx.Close()

	var seen []indexedtree.Index
	require.NoError(t, rtx.ScanLeaves(ctx, func(index indexedtree.Index, data []byte) (bool, error) {
		seen = append(seen, index)
		assert.Equal(t, []byte{byte(index)}, data)
		return false, nil
	}))
	assert.Equal(t, []indexedtree.Index{10, 20, 30}, seen)

	var firstOnly []indexedtree.Index
	require.NoError(t, rtx.ScanLeaves(ctx, func(index indexedtree.Index, data []byte) (bool, error) {
		firstOnly = append(firstOnly, index)
		return true, nil
	}))
	assert.Equal(t, []indexedtree.Index{10}, firstOnly)
}
