// Package interpreter implements the external collaborator spec.md §6
// names: a toy micro-op interpreter over SLoad/SStore/Add/Sub/Keccak/NoOp
// programs, with an opaque per-transaction gas scalar. Grounded on
// _examples/original_source/src/evm/{mod,context,gas,ops}.rs.
package interpreter

import (
	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

// Context is the per-transaction execution environment: a storage
// snapshot, a warm-keys set, a gas counter, and a value stack, matching
// spec.md §6's ctx contract verbatim. The interpreter updates Access,
// WarmKeys, and ColdKeys as it runs; the executor reads them afterward.
type Context struct {
	Storage  storage.KVStore
	WarmKeys map[types.Key]struct{}
	GasLimit uint64
	GasUsed  uint64
	Stack    []types.Value

	Access   types.AccessSets
	ColdKeys map[types.Key]struct{}
}

// NewContext builds a Context over the given storage snapshot, copying
// warm so the interpreter's own mutations never leak back into the
// caller's set (workers receive immutable copies of warm_keys per
// spec.md §5).
func NewContext(store storage.KVStore, warm map[types.Key]struct{}, gasLimit uint64) *Context {
	warmCopy := make(map[types.Key]struct{}, len(warm))
	for k := range warm {
		warmCopy[k] = struct{}{}
	}
	return &Context{
		Storage:  store,
		WarmKeys: warmCopy,
		GasLimit: gasLimit,
		Access:   types.NewAccessSets(),
		ColdKeys: make(map[types.Key]struct{}),
	}
}

// isWarm reports whether key was already touched earlier in the block.
func (c *Context) isWarm(key types.Key) bool {
	_, ok := c.WarmKeys[key]
	return ok
}

// touch marks key as accessed: warm if previously seen, cold otherwise,
// then adds it to WarmKeys for the remainder of this transaction.
func (c *Context) touch(key types.Key) {
	if !c.isWarm(key) {
		c.ColdKeys[key] = struct{}{}
	}
	c.WarmKeys[key] = struct{}{}
}

// checkGas reports whether consuming cost more gas would exceed GasLimit.
func (c *Context) checkGas(cost uint64) bool {
	return c.GasUsed+cost <= c.GasLimit
}

func (c *Context) consumeGas(cost uint64) {
	c.GasUsed += cost
}

func (c *Context) push(v types.Value) {
	c.Stack = append(c.Stack, v)
}

func (c *Context) pop() types.Value {
	if len(c.Stack) == 0 {
		return types.ZeroValue
	}
	v := c.Stack[len(c.Stack)-1]
	c.Stack = c.Stack[:len(c.Stack)-1]
	return v
}
