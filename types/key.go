// Package types defines the data model shared by the scheduler, the
// executor, and the toy interpreter: storage keys and values, access
// sets, transactions, blocks, and execution results.
package types

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the byte width of an account address.
const AddressLength = 20

// HashLength is the byte width of a storage slot or block hash.
const HashLength = 32

// Address identifies an account in the storage machine.
type Address [AddressLength]byte

// BytesToAddress right-aligns b into an Address, truncating from the left
// if b is longer than AddressLength.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress decodes a hex string (with or without 0x prefix) into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(mustDecodeHex(s))
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Hash is a 32-byte value: a storage slot identifier or a block hash.
type Hash [HashLength]byte

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash decodes a hex string (with or without 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(mustDecodeHex(s))
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func mustDecodeHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("types: invalid hex string %q: %v", s, err))
	}
	return b
}

// Key identifies a single storage slot: an account address plus a slot
// within that account's storage. Keys are comparable and usable as map
// keys, which the conflict graph builder relies on for its inverted index.
type Key struct {
	Address Address
	Slot    Hash
}

func NewKey(addr Address, slot Hash) Key {
	return Key{Address: addr, Slot: slot}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Address, k.Slot)
}
