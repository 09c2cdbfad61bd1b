package indexedtree

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u256(v uint64) uint256.Int {
	var x uint256.Int
	x.SetUint64(v)
	return x
}

func TestIndicesOverlayAppendAndGet(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(10), 1)
	o.Append(u256(10), 2)

	list, ok := o.Get(u256(10))
	require.True(t, ok)
	assert.Equal(t, []Index{1, 2}, list.Indices)
	assert.Equal(t, 1, o.Len())
}

func TestIndicesOverlayLowerBound(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(10), 1)
	o.Append(u256(30), 2)

	e, ok := o.LowerBound(u256(20))
	require.True(t, ok)
	assert.Equal(t, 0, e.key.Cmp(&[]uint256.Int{u256(30)}[0]))

	e, ok = o.LowerBound(u256(30))
	require.True(t, ok)
	assert.Equal(t, Index(2), e.list.First())

	_, ok = o.LowerBound(u256(31))
	assert.False(t, ok)
}

func TestIndicesOverlayPredecessor(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(10), 1)
	o.Append(u256(30), 2)

	e, ok := o.Predecessor(u256(20))
	require.True(t, ok)
	assert.Equal(t, Index(1), e.list.First())

	_, ok = o.Predecessor(u256(10))
	assert.False(t, ok)
}

func TestIndicesOverlayMax(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(10), 1)
	o.Append(u256(30), 2)
	o.Append(u256(20), 3)

	e, ok := o.Max()
	require.True(t, ok)
	assert.Equal(t, Index(2), e.list.First())
}

func TestIndicesOverlayEachAscending(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(30), 1)
	o.Append(u256(10), 2)
	o.Append(u256(20), 3)

	var seen []uint64
	o.Each(func(e indexEntry) {
		seen = append(seen, e.key.Uint64())
	})
	assert.Equal(t, []uint64{10, 20, 30}, seen)
}

func TestIndicesOverlaySetOverwrites(t *testing.T) {
	o := newIndicesOverlay()
	o.Append(u256(10), 1)
	o.Set(u256(10), NewIndexList(5, 6))

	list, ok := o.Get(u256(10))
	require.True(t, ok)
	assert.Equal(t, []Index{5, 6}, list.Indices)
}
