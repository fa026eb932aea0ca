package types

import "github.com/holiman/uint256"

// Value is a 256-bit unsigned integer, the unit of storage for every slot
// in the KV store. It is backed by uint256.Int rather than math/big so
// that per-slot arithmetic in the toy interpreter (Add/Sub) stays
// allocation-free and wraps the way EVM words do.
type Value struct {
	inner uint256.Int
}

// ZeroValue is the zero word. An absent key reads as ZeroValue.
var ZeroValue = Value{}

// NewValueFromUint64 builds a Value from a small integer.
func NewValueFromUint64(v uint64) Value {
	var val Value
	val.inner.SetUint64(v)
	return val
}

// NewValueFromBytes32 builds a Value from a big-endian 32-byte word.
func NewValueFromBytes32(b [32]byte) Value {
	var val Value
	val.inner.SetBytes32(b[:])
	return val
}

// Bytes32 returns the big-endian 32-byte encoding of the value.
func (v Value) Bytes32() [32]byte {
	return v.inner.Bytes32()
}

// IsZero reports whether the value is the zero word.
func (v Value) IsZero() bool {
	return v.inner.IsZero()
}

// Add returns v + other, wrapping modulo 2^256.
func (v Value) Add(other Value) Value {
	var out Value
	out.inner.Add(&v.inner, &other.inner)
	return out
}

// Sub returns v - other, wrapping modulo 2^256.
func (v Value) Sub(other Value) Value {
	var out Value
	out.inner.Sub(&v.inner, &other.inner)
	return out
}

// Eq reports whether v and other encode the same integer.
func (v Value) Eq(other Value) bool {
	return v.inner.Eq(&other.inner)
}

func (v Value) String() string {
	return v.inner.Dec()
}
