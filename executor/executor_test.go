package executor

import (
	"sort"
	"testing"

	"github.com/bchyl/pevm-opt-2/oracle"
	"github.com/bchyl/pevm-opt-2/scheduler"
	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

func key(a, s byte) types.Key {
	var addr types.Address
	addr[0] = a
	var slot types.Hash
	slot[0] = s
	return types.NewKey(addr, slot)
}

func sstore(id uint64, k types.Key, v uint64) types.Transaction {
	return types.Transaction{
		ID:     id,
		Writes: []types.Key{k},
		Metadata: types.TransactionMetadata{
			Program: []types.MicroOp{{Kind: types.OpSStore, Key: k, Val: types.NewValueFromUint64(v)}},
		},
	}
}

// Scenario 1: three independent writers land in a single wave.
func TestScenarioIndependentWritesOneWave(t *testing.T) {
	k1, k2, k3 := key(1, 1), key(2, 2), key(3, 3)
	block := types.Block{Transactions: []types.Transaction{
		sstore(0, k1, 100), sstore(1, k2, 200), sstore(2, k3, 300),
	}}

	store := storage.NewMemoryStore()
	res, err := New(store, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}
	if len(res.ActualWaves) != 1 || len(res.ActualWaves[0]) != 3 {
		t.Fatalf("waves = %v, want a single wave of 3", res.ActualWaves)
	}
	if !store.Get(k1).Eq(types.NewValueFromUint64(100)) ||
		!store.Get(k2).Eq(types.NewValueFromUint64(200)) ||
		!store.Get(k3).Eq(types.NewValueFromUint64(300)) {
		t.Fatal("final storage did not match expected values")
	}
}

// Scenario 2: three writers to the same key serialize into three waves.
func TestScenarioFullWriteConflictThreeWaves(t *testing.T) {
	k1 := key(1, 1)
	block := types.Block{Transactions: []types.Transaction{
		sstore(0, k1, 1), sstore(1, k1, 2), sstore(2, k1, 3),
	}}

	store := storage.NewMemoryStore()
	res, err := New(store, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}
	if len(res.ActualWaves) != 3 {
		t.Fatalf("waves = %v, want 3 singleton waves", res.ActualWaves)
	}
	for _, w := range res.ActualWaves {
		if len(w) != 1 {
			t.Fatalf("wave %v is not a singleton", w)
		}
	}
	if !store.Get(k1).Eq(types.NewValueFromUint64(3)) {
		t.Fatalf("final K1 = %v, want 3 (last writer wins)", store.Get(k1))
	}
}

// Scenario 3: a read-then-write on K1 and an independent reader of K2
// share a wave.
func TestScenarioReadWriteIndependentShareWave(t *testing.T) {
	k1, k2 := key(1, 1), key(2, 2)
	tx0 := types.Transaction{
		ID: 0, Reads: []types.Key{k1}, Writes: []types.Key{k1},
		Metadata: types.TransactionMetadata{Program: []types.MicroOp{
			{Kind: types.OpSLoad, Key: k1},
			{Kind: types.OpSStore, Key: k1, Val: types.NewValueFromUint64(10)},
		}},
	}
	tx1 := types.Transaction{
		ID: 1, Reads: []types.Key{k2},
		Metadata: types.TransactionMetadata{Program: []types.MicroOp{
			{Kind: types.OpSLoad, Key: k2},
		}},
	}
	block := types.Block{Transactions: []types.Transaction{tx0, tx1}}

	store := storage.NewMemoryStore()
	res, err := New(store, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}
	if len(res.ActualWaves) != 1 || len(res.ActualWaves[0]) != 2 {
		t.Fatalf("waves = %v, want a single wave of 2", res.ActualWaves)
	}
	if !store.Get(k1).Eq(types.NewValueFromUint64(10)) {
		t.Fatalf("K1 = %v, want 10", store.Get(k1))
	}
}

// Scenario 4: tx1 depends on tx0's write, forcing two waves.
func TestScenarioDependentWritesTwoWaves(t *testing.T) {
	k1, k2 := key(1, 1), key(2, 2)
	tx0 := sstore(0, k1, 5)
	tx1 := types.Transaction{
		ID: 1, Reads: []types.Key{k1}, Writes: []types.Key{k2},
		Metadata: types.TransactionMetadata{Program: []types.MicroOp{
			{Kind: types.OpSLoad, Key: k1},
			{Kind: types.OpSStore, Key: k2, Val: types.NewValueFromUint64(9)},
		}},
	}
	block := types.Block{Transactions: []types.Transaction{tx0, tx1}}

	store := storage.NewMemoryStore()
	res, err := New(store, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}
	if len(res.ActualWaves) != 2 {
		t.Fatalf("waves = %v, want 2", res.ActualWaves)
	}
	if !store.Get(k1).Eq(types.NewValueFromUint64(5)) || !store.Get(k2).Eq(types.NewValueFromUint64(9)) {
		t.Fatal("final storage did not match expected values")
	}
}

// Scenario 5: ten distinct writers with max_wave_size=4 split into
// [4,4,2], each wave's ids ascending.
func TestScenarioMaxWaveSizeSplitsIntoThreeWaves(t *testing.T) {
	var txs []types.Transaction
	for i := uint64(0); i < 10; i++ {
		txs = append(txs, sstore(i, key(byte(i), byte(i)), i))
	}
	block := types.Block{Transactions: txs}

	store := storage.NewMemoryStore()
	exec := New(store, nil, nil, scheduler.New(4))
	res, err := exec.ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}

	gotSizes := make([]int, len(res.ActualWaves))
	for i, w := range res.ActualWaves {
		gotSizes[i] = len(w)
		if !sort.SliceIsSorted(w, func(a, b int) bool { return w[a] < w[b] }) {
			t.Fatalf("wave %v is not ascending", w)
		}
	}
	want := []int{4, 4, 2}
	if len(gotSizes) != len(want) {
		t.Fatalf("wave sizes = %v, want %v", gotSizes, want)
	}
	for i := range want {
		if gotSizes[i] != want[i] {
			t.Fatalf("wave sizes = %v, want %v", gotSizes, want)
		}
	}
	for i := uint64(0); i < 10; i++ {
		if !store.Get(key(byte(i), byte(i))).Eq(types.NewValueFromUint64(i)) {
			t.Fatalf("key %d did not get its expected value", i)
		}
	}
}

// underestimateOracle always reports empty access sets for tx 0,
// simulating scenario 6's oracle misestimate: tx0 writes K1 but the
// oracle declares it accesses nothing, while tx1 correctly declares a
// read of K1. The scheduler sees no estimated conflict and places both
// in one wave; the executor's runtime conflict detector must catch the
// actual WR overlap and re-queue tx1.
type underestimateOracle struct {
	blind uint64
}

func (o underestimateOracle) Estimate(tx types.Transaction) types.AccessSets {
	if tx.ID == o.blind {
		return types.NewAccessSets()
	}
	return oracle.NewDeterministic().Estimate(tx)
}

func TestScenarioRuntimeConflictRequeuesUnderestimatedTx(t *testing.T) {
	k1 := key(1, 1)
	tx0 := sstore(0, k1, 42)
	tx1 := types.Transaction{
		ID: 1, Reads: []types.Key{k1},
		Metadata: types.TransactionMetadata{AccessList: []types.Key{k1}, Program: []types.MicroOp{
			{Kind: types.OpSLoad, Key: k1},
		}},
	}
	block := types.Block{Transactions: []types.Transaction{tx0, tx1}}

	store := storage.NewMemoryStore()
	exec := New(store, underestimateOracle{blind: 0}, nil, nil)
	res, err := exec.ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}

	if res.RuntimeConflicts == 0 {
		t.Fatal("expected the oracle's blind spot to trigger a runtime conflict")
	}
	if len(res.ActualWaves) != 2 {
		t.Fatalf("actual_waves = %v, want 2 (after the re-queue)", res.ActualWaves)
	}
	if !store.Get(k1).Eq(types.NewValueFromUint64(42)) {
		t.Fatalf("K1 = %v, want 42", store.Get(k1))
	}
}

// Result completeness: |results| == |transactions|, in original block order.
func TestResultCompletenessAndOrder(t *testing.T) {
	var txs []types.Transaction
	for i := uint64(0); i < 7; i++ {
		txs = append(txs, sstore(i, key(byte(i), byte(i)), i))
	}
	block := types.Block{Transactions: txs}

	res, err := New(storage.NewMemoryStore(), nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}
	if len(res.Results) != len(block.Transactions) {
		t.Fatalf("got %d results, want %d", len(res.Results), len(block.Transactions))
	}
	for i, r := range res.Results {
		if r.TxID != block.Transactions[i].ID {
			t.Fatalf("results[%d].TxID = %d, want %d", i, r.TxID, block.Transactions[i].ID)
		}
	}
}

// Wave partition: the concatenation of all waves is exactly the block's
// tx_id multiset, with no duplicates or omissions.
func TestWavePartitionCoversEveryTxExactlyOnce(t *testing.T) {
	k1 := key(1, 1)
	var txs []types.Transaction
	for i := uint64(0); i < 6; i++ {
		if i%2 == 0 {
			txs = append(txs, sstore(i, k1, i))
		} else {
			txs = append(txs, sstore(i, key(byte(i), byte(i)), i))
		}
	}
	block := types.Block{Transactions: txs}

	res, err := New(storage.NewMemoryStore(), nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}

	seen := make(map[uint64]int)
	for _, w := range res.ActualWaves {
		for _, id := range w {
			seen[id]++
		}
	}
	if len(seen) != len(block.Transactions) {
		t.Fatalf("wave partition covers %d distinct ids, want %d", len(seen), len(block.Transactions))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("tx_id %d appears %d times across waves, want exactly once", id, count)
		}
	}
}

// Determinism: two runs of the same block on fresh storage produce the
// same final storage and the same wave partition.
func TestDeterministicAcrossRuns(t *testing.T) {
	var txs []types.Transaction
	for i := uint64(0); i < 12; i++ {
		txs = append(txs, sstore(i, key(byte(i%4), byte(i%4)), i))
	}
	block := types.Block{Transactions: txs}

	store1 := storage.NewMemoryStore()
	res1, err := New(store1, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	store2 := storage.NewMemoryStore()
	res2, err := New(store2, nil, nil, nil).ExecuteParallel(block)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(res1.ActualWaves) != len(res2.ActualWaves) {
		t.Fatalf("wave counts diverged: %d vs %d", len(res1.ActualWaves), len(res2.ActualWaves))
	}
	for i := range res1.ActualWaves {
		if len(res1.ActualWaves[i]) != len(res2.ActualWaves[i]) {
			t.Fatalf("wave %d sizes diverged", i)
		}
		for j := range res1.ActualWaves[i] {
			if res1.ActualWaves[i][j] != res2.ActualWaves[i][j] {
				t.Fatalf("wave %d contents diverged", i)
			}
		}
	}
	for i := byte(0); i < 4; i++ {
		if !store1.Get(key(i, i)).Eq(store2.Get(key(i, i))) {
			t.Fatalf("key %d diverged between runs", i)
		}
	}
}
