// Package storage defines the KVStore contract the scheduling core
// consumes as an external collaborator (spec.md §6) and the in-memory
// reference implementation used by tests, the CLI, and the executor.
package storage

import "github.com/bchyl/pevm-opt-2/types"

// KVStore is the storage contract the executor and interpreter depend
// on. get is total (a missing key reads as the zero Value); set is
// infallible for the in-memory reference implementation.
type KVStore interface {
	Get(key types.Key) types.Value
	Set(key types.Key, val types.Value)

	// Clone returns an independent handle observing the same logical
	// state at the moment of the call. Writes made to the clone or to
	// the original after Clone returns must not be visible on the other
	// side — callers (the executor's per-wave worker tasks) rely on this
	// for isolation.
	Clone() KVStore

	Keys() []types.Key
	Len() int
}
