package interpreter

import "github.com/bchyl/pevm-opt-2/types"

// Gas costs are an opaque per-transaction scalar per spec.md §9; these
// numbers are carried over from the original gas table purely to give
// the toy interpreter something concrete to sum, not to model real EVM
// gas semantics (an explicit Non-goal).
const (
	coldSloadCost  = 2100
	warmSloadCost  = 100
	coldSstoreCost = 20000
	warmSstoreCost = 2900
	sstoreResetCost = 5000
	sstoreSetCost   = 20000
	addCost        = 3
	subCost        = 3
	keccakBaseCost = 30
	keccakWordCost = 6
	noopCost       = 1
)

func sloadGas(isCold bool) uint64 {
	if isCold {
		return coldSloadCost
	}
	return warmSloadCost
}

func sstoreGas(isCold bool, current, newValue types.Value) uint64 {
	isZero := current.IsZero()
	newIsZero := newValue.IsZero()

	switch {
	case isCold && newIsZero:
		return sstoreResetCost
	case isCold && !newIsZero:
		return coldSstoreCost
	case !isCold && isZero && !newIsZero:
		return sstoreSetCost
	case !isCold && !isZero && newIsZero:
		return sstoreResetCost
	default:
		return warmSstoreCost
	}
}

func keccakGas(dataLen int) uint64 {
	words := (dataLen + 31) / 32
	return keccakBaseCost + keccakWordCost*uint64(words)
}
