// Package oracle implements the Access Oracle (spec.md §4.1): pure,
// deterministic estimation of a transaction's read/write sets from its
// static metadata, before it is ever executed.
package oracle

import "github.com/bchyl/pevm-opt-2/types"

// Oracle is the estimation capability the scheduler depends on. Multiple
// implementations may coexist (deterministic, learning) and are
// swappable at executor-construction time (spec.md §9, "Dynamic
// dispatch").
type Oracle interface {
	Estimate(tx types.Transaction) types.AccessSets
}

// Deterministic is the reference oracle: the estimation rules of
// spec.md §4.1 applied in order and unioned into one AccessSets. It
// cannot fail; empty metadata yields empty sets.
type Deterministic struct{}

// NewDeterministic returns the reference, spec-mandated oracle.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (Deterministic) Estimate(tx types.Transaction) types.AccessSets {
	out := types.NewAccessSets()

	for _, k := range tx.Reads {
		out.AddRead(k)
	}
	for _, k := range tx.Writes {
		out.AddWrite(k)
	}
	for _, k := range tx.Metadata.AccessList {
		out.AddRead(k)
	}
	for _, op := range tx.Metadata.Program {
		switch op.Kind {
		case types.OpSLoad:
			out.AddRead(op.Key)
		case types.OpSStore:
			out.AddWrite(op.Key)
		}
	}

	return out
}

var _ Oracle = (*Deterministic)(nil)
