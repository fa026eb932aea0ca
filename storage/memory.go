package storage

import (
	"sync"

	"github.com/bchyl/pevm-opt-2/types"
)

// MemoryStore is the in-memory reference KVStore: a flat map from Key to
// Value guarded by a mutex, adapted from the teacher's
// core/state/memory_statedb.go account/storage map pair down to this
// system's single-level (address,slot) -> Value model — there is no
// account object, nonce, or code in this spec's data model, only slots.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[types.Key]types.Value
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[types.Key]types.Value)}
}

func (s *MemoryStore) Get(key types.Key) types.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return types.ZeroValue
	}
	return v
}

func (s *MemoryStore) Set(key types.Key, val types.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
}

// Clone performs a true deep copy: the returned store shares no backing
// map with s, so writes on either side after Clone returns are invisible
// to the other. This follows the teacher's MemoryStateDB.Copy() rather
// than the Rust reference's MemoryStore::clone(), which derives Clone
// over an Arc<Mutex<_>> and so shares mutable state between "isolated"
// clones — a bug spec.md's isolation requirement (§5) rules out.
func (s *MemoryStore) Clone() KVStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := &MemoryStore{values: make(map[types.Key]types.Value, len(s.values))}
	for k, v := range s.values {
		cp.values[k] = v
	}
	return cp
}

func (s *MemoryStore) Keys() []types.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Key, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Merge copies every key/value from src into s, overwriting existing
// entries. The executor's commit step does not call it: it sets only the
// keys a committed transaction wrote, reading each from the task's clone.
func (s *MemoryStore) Merge(src KVStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range src.Keys() {
		s.values[k] = src.Get(k)
	}
}

var _ KVStore = (*MemoryStore)(nil)
