package oracle

import "github.com/bchyl/pevm-opt-2/types"

// Learning is the optional pluggable oracle variant spec.md §4.1
// mentions: it retains per-address slot histories across blocks to
// enrich estimates for Keccak-fed dynamic slots. Its contract is
// unchanged from Deterministic — learning only expands estimates, never
// shrinks them, so it remains sound-enough under the same definition.
//
// Grounded on _examples/original_source/pevm-opt-2/src/scheduler/access_oracle.rs's
// HeuristicOracle.address_patterns / learn_from_history.
type Learning struct {
	patterns map[types.Address]map[types.Hash]struct{}
}

// NewLearning returns a Learning oracle with no learned history yet; its
// estimates are identical to Deterministic's until LearnFromHistory is
// called.
func NewLearning() *Learning {
	return &Learning{patterns: make(map[types.Address]map[types.Hash]struct{})}
}

// LearnFromHistory folds the actual access sets of a completed block's
// results into the address->slot pattern table, so that future blocks'
// Keccak micro-ops touching the same address get their historically
// observed slots added as conservative reads.
func (l *Learning) LearnFromHistory(results []types.ExecutionResult) {
	for _, res := range results {
		for k := range res.Access.Reads {
			l.remember(k)
		}
		for k := range res.Access.Writes {
			l.remember(k)
		}
	}
}

func (l *Learning) remember(k types.Key) {
	slots, ok := l.patterns[k.Address]
	if !ok {
		slots = make(map[types.Hash]struct{})
		l.patterns[k.Address] = slots
	}
	slots[k.Slot] = struct{}{}
}

func (l *Learning) Estimate(tx types.Transaction) types.AccessSets {
	out := NewDeterministic().Estimate(tx)

	for _, op := range tx.Metadata.Program {
		if op.Kind != types.OpKeccak {
			continue
		}
		addr := extractAddress(op.Data)
		if addr == nil {
			continue
		}
		for slot := range l.patterns[*addr] {
			out.AddRead(types.NewKey(*addr, slot))
		}
	}

	return out
}

// extractAddress treats the first AddressLength bytes of data as an
// address, matching the Rust reference's same heuristic.
func extractAddress(data []byte) *types.Address {
	if len(data) < types.AddressLength {
		return nil
	}
	addr := types.BytesToAddress(data[:types.AddressLength])
	return &addr
}

var _ Oracle = (*Learning)(nil)
