package executor

import (
	"github.com/bchyl/pevm-opt-2/interpreter"
	"github.com/bchyl/pevm-opt-2/metrics"
	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

// SerialResult is the output of ExecuteSerial: the final storage plus one
// ExecutionResult per transaction in block order.
type SerialResult struct {
	FinalStorage storage.KVStore
	Results      []types.ExecutionResult
	TotalGas     uint64
}

// ExecuteSerial runs every transaction in block one at a time, in id
// order, directly against store (no clone, no wave partition). This is
// the ground-truth baseline spec.md §8's serial-equivalence property
// checks the parallel executor against, grounded on
// _examples/original_source/src/evm/mod.rs's execute_serial.
func ExecuteSerial(block types.Block, store storage.KVStore, interp interpreter.Interpreter) *SerialResult {
	if interp == nil {
		interp = interpreter.NewMicroOpInterpreter()
	}

	execLog.Info("executing block serially", "n_tx", len(block.Transactions))

	results := make([]types.ExecutionResult, 0, len(block.Transactions))
	var totalGas uint64
	warmKeys := make(map[types.Key]struct{})

	for _, tx := range block.Transactions {
		ctx := interpreter.NewContext(store, warmKeys, defaultGasLimit(tx))
		res := interp.Execute(tx, ctx)
		totalGas += res.GasUsed
		metrics.GasUsed.Add(int64(res.GasUsed))
		for wk := range res.WarmKeys {
			warmKeys[wk] = struct{}{}
		}
		results = append(results, res)
	}

	execLog.Info("serial execution complete", "n_tx", len(results), "gas_used", totalGas)

	return &SerialResult{FinalStorage: store, Results: results, TotalGas: totalGas}
}
