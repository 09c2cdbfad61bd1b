package indexedtree

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// numCharPrint is the number of leading decimal digits shown before a
// wide field element's String form is truncated.
const numCharPrint = 8

// Fr is a prime-field scalar. It is orderable by its uint256 image, which
// is exactly what the indices overlay and the low-value search key on.
// Fr does not know its own modulus; callers are responsible for
// supplying values already reduced.
type Fr struct {
	v uint256.Int
}

// FrZero is the zero field element, used as the sentinel root/key value
// before a tree has any committed state.
var FrZero = Fr{}

// NewFrFromBigInt builds an Fr from a big.Int. Values are taken as-is; it
// is the caller's responsibility to ensure they are already reduced modulo
// the field in use.
func NewFrFromBigInt(v *big.Int) Fr {
	var f Fr
	f.v.SetFromBig(v)
	return f
}

// NewFrFromUint256 builds an Fr directly from its uint256 image, avoiding
// a detour through big.Int at the cache/backend boundary.
func NewFrFromUint256(v uint256.Int) Fr {
	return Fr{v: v}
}

// NewFrFromUint64 builds an Fr from a small non-negative integer.
func NewFrFromUint64(v uint64) Fr {
	var f Fr
	f.v.SetUint64(v)
	return f
}

// NewFrFromBytes decodes a 32-byte big-endian encoding into an Fr.
func NewFrFromBytes(b []byte) (Fr, error) {
	if len(b) != 32 {
		return Fr{}, fmt.Errorf("indexedtree: Fr must be 32 bytes, got %d", len(b))
	}
	var f Fr
	f.v.SetBytes(b)
	return f, nil
}

// BigInt returns the field element as a big.Int.
func (f Fr) BigInt() *big.Int {
	return f.v.ToBig()
}

// Uint256 returns the uint256 image used for ordering in the indices
// overlay.
func (f Fr) Uint256() uint256.Int {
	return f.v
}

// Bytes returns the 32-byte big-endian encoding of the field element.
func (f Fr) Bytes() [32]byte {
	return f.v.Bytes32()
}

// Cmp compares two field elements by their uint256 image: -1, 0, or 1.
func (f Fr) Cmp(o Fr) int {
	return f.v.Cmp(&o.v)
}

// IsZero reports whether f is the zero field element.
func (f Fr) IsZero() bool {
	return f.v.IsZero()
}

// Hex renders the field element as lowercase hex.
func (f Fr) Hex() string {
	b := f.v.Bytes32()
	return hex.EncodeToString(b[:])
}

// String prints the decimal value, truncated once it gets wide enough to
// be unreadable at a glance.
func (f Fr) String() string {
	s := f.v.ToBig().String()
	if len(s) > numCharPrint {
		return s[:numCharPrint] + "..."
	}
	return s
}
