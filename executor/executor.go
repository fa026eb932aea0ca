// Package executor implements the Parallel Wave Executor (spec.md §4.4):
// estimate, schedule, then an execute-and-commit loop that fans each
// wave out across goroutines, detects runtime conflicts the oracle
// missed, re-queues the offending transactions, and commits the rest in
// ascending tx_id order. Grounded on the teacher's bal/scheduler.go
// goroutine-per-task fan-out pattern and
// _examples/original_source/src/scheduler/parallel.rs's execute-and-
// commit loop (adapted to use the teacher's true-isolating storage
// Clone rather than the Rust reference's Arc<Mutex>-sharing clone).
package executor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bchyl/pevm-opt-2/graph"
	"github.com/bchyl/pevm-opt-2/interpreter"
	"github.com/bchyl/pevm-opt-2/log"
	"github.com/bchyl/pevm-opt-2/metrics"
	"github.com/bchyl/pevm-opt-2/oracle"
	"github.com/bchyl/pevm-opt-2/scheduler"
	"github.com/bchyl/pevm-opt-2/storage"
	"github.com/bchyl/pevm-opt-2/types"
)

// ErrUnknownTxID is a hard invariant violation (spec.md §7.3): a
// scheduled wave referenced a transaction id the block does not contain.
var ErrUnknownTxID = errors.New("executor: scheduled wave contains unknown tx_id")

// ErrDoubleCommit is a hard invariant violation (spec.md §7.3): the same
// tx_id was committed twice.
var ErrDoubleCommit = errors.New("executor: tx_id committed twice")

var execLog = log.Default().Module("executor")

// taskResult is one wave member's outcome: the transaction it belongs
// to, the ExecutionResult the interpreter produced, and the isolated
// per-task storage clone holding its writes before they are applied back
// to shared storage at commit time.
type taskResult struct {
	tx     types.Transaction
	result types.ExecutionResult
	delta  storage.KVStore
}

// Result is the top-level output of ExecuteParallel.
type Result struct {
	FinalStorage  storage.KVStore
	Results       []types.ExecutionResult
	TotalGas      uint64
	ActualWaves   []types.Wave

	// RuntimeConflicts counts transactions re-queued because their actual
	// access set overlapped that of an earlier accepted transaction in the
	// same pass. A pass can hold transactions the scheduler placed in
	// different waves, so the count includes conflicts the oracle did
	// predict, not only its under-estimates.
	RuntimeConflicts int
}

// Executor owns the storage handle, the oracle, the interpreter, and the
// wave scheduler for one block's execution.
type Executor struct {
	Storage     storage.KVStore
	Oracle      oracle.Oracle
	Interpreter interpreter.Interpreter
	Scheduler   *scheduler.MIS
}

// New builds an Executor. A nil oracle/interpreter/sched falls back to
// the deterministic oracle, the toy MicroOp interpreter, and the default
// MIS scheduler respectively.
func New(store storage.KVStore, o oracle.Oracle, interp interpreter.Interpreter, sched *scheduler.MIS) *Executor {
	if o == nil {
		o = oracle.NewDeterministic()
	}
	if interp == nil {
		interp = interpreter.NewMicroOpInterpreter()
	}
	if sched == nil {
		sched = scheduler.New(scheduler.DefaultMaxWaveSize)
	}
	return &Executor{Storage: store, Oracle: o, Interpreter: interp, Scheduler: sched}
}

// ExecuteParallel runs block to completion: estimate, schedule, then the
// execute-and-commit loop of spec.md §4.4 steps 3-4.
func (e *Executor) ExecuteParallel(block types.Block) (*Result, error) {
	txByID := make(map[uint64]types.Transaction, len(block.Transactions))
	entries := make([]graph.Entry, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		txByID[tx.ID] = tx
		entries = append(entries, graph.Entry{TxID: tx.ID, Access: e.Oracle.Estimate(tx)})
	}

	g := graph.Build(entries)
	waves := e.Scheduler.Schedule(block, g)

	var pending []uint64
	for _, w := range waves {
		pending = append(pending, w...)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	warmKeys := make(map[types.Key]struct{})
	resultsByID := make(map[uint64]types.ExecutionResult, len(block.Transactions))
	committed := make(map[uint64]struct{}, len(block.Transactions))
	var actualWaves []types.Wave
	var totalGas uint64
	runtimeConflicts := 0

	for len(pending) > 0 {
		// Each pass takes at most MaxWaveSize of the lowest pending ids.
		n := len(pending)
		if limit := e.Scheduler.MaxWaveSize; limit > 0 && n > limit {
			n = limit
		}
		waveIDs := pending[:n]
		pending = append([]uint64(nil), pending[n:]...)

		waveTxs := make([]types.Transaction, 0, len(waveIDs))
		for _, id := range waveIDs {
			tx, ok := txByID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownTxID, id)
			}
			waveTxs = append(waveTxs, tx)
		}
		if len(waveTxs) == 0 {
			continue
		}

		taskResults := make([]taskResult, len(waveTxs))
		var wg sync.WaitGroup
		for i, tx := range waveTxs {
			i, tx := i, tx
			wg.Add(1)
			go func() {
				defer wg.Done()
				start := time.Now()
				isolated := e.Storage.Clone()
				ctx := interpreter.NewContext(isolated, warmKeys, defaultGasLimit(tx))
				res := e.Interpreter.Execute(tx, ctx)
				metrics.TxLatency.Observe(float64(time.Since(start).Microseconds()))
				taskResults[i] = taskResult{tx: tx, result: res, delta: isolated}
			}()
		}
		wg.Wait()

		sort.Slice(taskResults, func(a, b int) bool { return taskResults[a].tx.ID < taskResults[b].tx.ID })

		conflicting := detectRuntimeConflicts(taskResults)

		var waveCommit types.Wave
		for _, tr := range taskResults {
			id := tr.tx.ID
			if _, isConflicting := conflicting[id]; isConflicting {
				pending = append(pending, id)
				continue
			}
			if _, already := committed[id]; already {
				return nil, fmt.Errorf("%w: %d", ErrDoubleCommit, id)
			}
			committed[id] = struct{}{}

			if tr.result.Success {
				totalGas += tr.result.GasUsed
				metrics.GasUsed.Add(int64(tr.result.GasUsed))
				for writtenKey := range tr.result.Access.Writes {
					e.Storage.Set(writtenKey, tr.delta.Get(writtenKey))
				}
			}
			for wk := range tr.result.WarmKeys {
				warmKeys[wk] = struct{}{}
			}
			resultsByID[id] = tr.result
			waveCommit = append(waveCommit, id)
		}

		sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

		if len(conflicting) > 0 {
			runtimeConflicts += len(conflicting)
			execLog.Debug("requeueing conflicting transactions", "count", len(conflicting))
			metrics.RuntimeConflicts.Add(int64(len(conflicting)))
		}
		if len(waveCommit) > 0 {
			sort.Slice(waveCommit, func(i, j int) bool { return waveCommit[i] < waveCommit[j] })
			actualWaves = append(actualWaves, waveCommit)
			metrics.WavesCommitted.Inc()
		}
	}

	results := make([]types.ExecutionResult, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		res, ok := resultsByID[tx.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %d missing from results", ErrUnknownTxID, tx.ID)
		}
		results = append(results, res)
	}

	return &Result{
		FinalStorage:     e.Storage,
		Results:          results,
		TotalGas:         totalGas,
		ActualWaves:      actualWaves,
		RuntimeConflicts: runtimeConflicts,
	}, nil
}

// detectRuntimeConflicts walks taskResults (already sorted by tx_id
// ascending) and returns the set of ids that must be excluded from this
// commit pass because their actual access set overlapped an
// already-accepted transaction's actual access set within the same wave
// (spec.md §4.4 step 3.d: WW, RW, or WR).
func detectRuntimeConflicts(taskResults []taskResult) map[uint64]struct{} {
	conflicting := make(map[uint64]struct{})
	committedWrites := make(map[types.Key]struct{})
	committedReads := make(map[types.Key]struct{})

	for _, tr := range taskResults {
		writes := tr.result.Access.Writes
		reads := tr.result.Access.Reads

		hasConflict := false
		for k := range writes {
			if _, ok := committedWrites[k]; ok {
				hasConflict = true
				break
			}
			if _, ok := committedReads[k]; ok {
				hasConflict = true
				break
			}
		}
		if !hasConflict {
			for k := range reads {
				if _, ok := committedWrites[k]; ok {
					hasConflict = true
					break
				}
			}
		}

		if hasConflict {
			conflicting[tr.tx.ID] = struct{}{}
			continue
		}
		for k := range writes {
			committedWrites[k] = struct{}{}
		}
		for k := range reads {
			committedReads[k] = struct{}{}
		}
	}

	return conflicting
}

func defaultGasLimit(tx types.Transaction) uint64 {
	if tx.GasHint > 0 {
		return tx.GasHint
	}
	return 10_000_000
}
