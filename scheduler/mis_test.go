package scheduler

import (
	"testing"

	"github.com/bchyl/pevm-opt-2/graph"
	"github.com/bchyl/pevm-opt-2/types"
)

func blockOfIDs(ids ...uint64) types.Block {
	txs := make([]types.Transaction, len(ids))
	for i, id := range ids {
		txs[i] = types.Transaction{ID: id}
	}
	return types.Block{Transactions: txs}
}

func TestScheduleNoConflictsSingleWave(t *testing.T) {
	g := graph.New()
	g.AddVertex(0)
	g.AddVertex(1)
	g.AddVertex(2)

	s := New(10)
	waves := s.Schedule(blockOfIDs(0, 1, 2), g)
	if len(waves) != 1 {
		t.Fatalf("expected 1 wave, got %d: %v", len(waves), waves)
	}
	if len(waves[0]) != 3 {
		t.Fatalf("expected wave of 3, got %v", waves[0])
	}
}

func TestScheduleFullConflictsAllSingletons(t *testing.T) {
	ids := []uint64{0, 1, 2, 3}

	// All transactions write the same key, so the conflict graph built
	// via the public Build API is fully connected.
	addr := func(b byte) types.Address {
		var a types.Address
		a[0] = b
		return a
	}
	k := types.NewKey(addr(1), types.Hash{})
	entries := make([]graph.Entry, len(ids))
	for i, id := range ids {
		a := types.NewAccessSets()
		a.AddWrite(k)
		entries[i] = graph.Entry{TxID: id, Access: a}
	}
	fullGraph := graph.Build(entries)

	s := New(10)
	waves := s.Schedule(blockOfIDs(ids...), fullGraph)
	if len(waves) != len(ids) {
		t.Fatalf("expected %d singleton waves, got %d: %v", len(ids), len(waves), waves)
	}
	for _, w := range waves {
		if len(w) != 1 {
			t.Fatalf("expected singleton wave, got %v", w)
		}
	}
}

func TestScheduleMaxWaveSizeLimit(t *testing.T) {
	addr := func(b byte) types.Address {
		var a types.Address
		a[0] = b
		return a
	}
	entries := make([]graph.Entry, 10)
	ids := make([]uint64, 10)
	for i := 0; i < 10; i++ {
		a := types.NewAccessSets()
		a.AddWrite(types.NewKey(addr(byte(i)), types.Hash{}))
		entries[i] = graph.Entry{TxID: uint64(i), Access: a}
		ids[i] = uint64(i)
	}
	g := graph.Build(entries)

	s := New(4)
	waves := s.Schedule(blockOfIDs(ids...), g)
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves for 10 txs at max_wave_size=4, got %d: %v", len(waves), waves)
	}
	sizes := []int{len(waves[0]), len(waves[1]), len(waves[2])}
	if sizes[0] != 4 || sizes[1] != 4 || sizes[2] != 2 {
		t.Fatalf("expected wave sizes [4,4,2], got %v", sizes)
	}
	for _, w := range waves {
		for i := 1; i < len(w); i++ {
			if w[i-1] >= w[i] {
				t.Fatalf("wave not ascending: %v", w)
			}
		}
	}
}

func TestScheduleIsExactPartition(t *testing.T) {
	addr := func(b byte) types.Address {
		var a types.Address
		a[0] = b
		return a
	}
	entries := []graph.Entry{
		{TxID: 0, Access: access(nil, []types.Key{types.NewKey(addr(1), types.Hash{})})},
		{TxID: 1, Access: access(nil, []types.Key{types.NewKey(addr(1), types.Hash{})})},
		{TxID: 2, Access: access(nil, []types.Key{types.NewKey(addr(2), types.Hash{})})},
	}
	g := graph.Build(entries)
	s := New(10)
	waves := s.Schedule(blockOfIDs(0, 1, 2), g)

	seen := map[uint64]bool{}
	for _, w := range waves {
		for _, id := range w {
			if seen[id] {
				t.Fatalf("tx %d appears in more than one wave", id)
			}
			seen[id] = true
		}
	}
	for _, id := range []uint64{0, 1, 2} {
		if !seen[id] {
			t.Fatalf("tx %d missing from schedule", id)
		}
	}
}

func access(reads, writes []types.Key) types.AccessSets {
	a := types.NewAccessSets()
	for _, r := range reads {
		a.AddRead(r)
	}
	for _, w := range writes {
		a.AddWrite(w)
	}
	return a
}
