package executor

import (
	"testing"

	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

func TestExecuteSerialAppliesWritesInOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	key := types.NewKey(types.Address{1}, types.Hash{1})

	block := types.Block{
		Number: 1,
		Transactions: []types.Transaction{
			{
				ID: 0,
				Metadata: types.TransactionMetadata{
					Program: []types.MicroOp{
						{Kind: types.OpSStore, Key: key, Val: types.NewValueFromUint64(1)},
					},
				},
			},
			{
				ID: 1,
				Metadata: types.TransactionMetadata{
					Program: []types.MicroOp{
						{Kind: types.OpSStore, Key: key, Val: types.NewValueFromUint64(2)},
					},
				},
			},
		},
	}

	res := ExecuteSerial(block, store, nil)
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	if got := store.Get(key); !got.Eq(types.NewValueFromUint64(2)) {
		t.Fatalf("final value = %v, want 2 (later tx wins)", got)
	}
}

func TestExecuteSerialMatchesParallelOnConflictFreeBlock(t *testing.T) {
	k1 := types.NewKey(types.Address{1}, types.Hash{1})
	k2 := types.NewKey(types.Address{2}, types.Hash{2})

	block := types.Block{
		Number: 1,
		Transactions: []types.Transaction{
			{ID: 0, Metadata: types.TransactionMetadata{Program: []types.MicroOp{
				{Kind: types.OpSStore, Key: k1, Val: types.NewValueFromUint64(10)},
			}}},
			{ID: 1, Metadata: types.TransactionMetadata{Program: []types.MicroOp{
				{Kind: types.OpSStore, Key: k2, Val: types.NewValueFromUint64(20)},
			}}},
		},
	}

	serialStore := storage.NewMemoryStore()
	serialRes := ExecuteSerial(block, serialStore, nil)

	parallelStore := storage.NewMemoryStore()
	exec := New(parallelStore, nil, nil, nil)
	parallelRes, err := exec.ExecuteParallel(block)
	if err != nil {
		t.Fatalf("ExecuteParallel: %v", err)
	}

	if !serialStore.Get(k1).Eq(parallelStore.Get(k1)) {
		t.Fatal("k1 diverged between serial and parallel execution")
	}
	if !serialStore.Get(k2).Eq(parallelStore.Get(k2)) {
		t.Fatal("k2 diverged between serial and parallel execution")
	}
	if serialRes.TotalGas != parallelRes.TotalGas {
		t.Fatalf("gas diverged: serial=%d parallel=%d", serialRes.TotalGas, parallelRes.TotalGas)
	}
}
