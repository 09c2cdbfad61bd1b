package indexedtree

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrRoundTripBytes(t *testing.T) {
	f := NewFrFromUint64(123456789)
	b := f.Bytes()
	f2, err := NewFrFromBytes(b[:])
	require.NoError(t, err)
	assert.Equal(t, 0, f.Cmp(f2))
}

func TestFrFromBigInt(t *testing.T) {
	f := NewFrFromBigInt(big.NewInt(42))
	assert.Equal(t, "42", f.BigInt().String())
}

func TestFrCmpOrdering(t *testing.T) {
	a := NewFrFromUint64(1)
	b := NewFrFromUint64(2)
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
}

func TestFrZeroIsZero(t *testing.T) {
	assert.True(t, FrZero.IsZero())
	assert.False(t, NewFrFromUint64(1).IsZero())
}

func TestFrBytesWrongLength(t *testing.T) {
	_, err := NewFrFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}
