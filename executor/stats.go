package executor

import (
	"sort"

	"github.com/bchyl/pevm-opt-2/oracle"
	"github.com/bchyl/pevm-opt-2/types"
)

// CollectMetrics builds the spec.md §6 Metrics record from a serial run,
// a parallel run, and the oracle used to schedule the parallel run.
// Grounded on _examples/original_source/src/metrics/mod.rs's
// MetricsCollector.collect, with precision/recall computed for real
// (rather than left as the original's 1.0/1.0 placeholder) using the
// per-tx intersection logic from
// _examples/original_source/pevm-opt-2/src/scheduler/access_oracle.rs's
// calculate_precision_recall.
func CollectMetrics(
	block types.Block,
	o oracle.Oracle,
	serial *SerialResult,
	serialTimeMs float64,
	parallel *Result,
	parallelTimeMs float64,
) types.Metrics {
	waveSizes := make([]int, len(parallel.ActualWaves))
	var sumWaveSize, maxWaveSize, minWaveSize int
	for i, w := range parallel.ActualWaves {
		waveSizes[i] = len(w)
		sumWaveSize += len(w)
		if i == 0 || len(w) > maxWaveSize {
			maxWaveSize = len(w)
		}
		if i == 0 || len(w) < minWaveSize {
			minWaveSize = len(w)
		}
	}
	avgWaveSize := 0.0
	if len(waveSizes) > 0 {
		avgWaveSize = float64(sumWaveSize) / float64(len(waveSizes))
	}

	speedup := 1.0
	if parallelTimeMs > 0 {
		speedup = serialTimeMs / parallelTimeMs
	}

	n := len(block.Transactions)
	conflictRate := 0.0
	if n > 1 {
		conflictRate = float64(len(parallel.ActualWaves)-1) / float64(n-1)
		if conflictRate > 1.0 {
			conflictRate = 1.0
		}
		if conflictRate < 0 {
			conflictRate = 0
		}
	}

	totalConflicts := estimateTotalConflicts(len(parallel.ActualWaves), n)

	precision, recall, falsePos, falseNeg := precisionRecall(block, o, serial.Results)

	// Result carries no per-transaction timing, so the TxLatency* fields
	// are filled from each transaction's GasUsed/1000, not measured time.
	latencies := make([]float64, len(parallel.Results))
	for i, r := range parallel.Results {
		latencies[i] = float64(r.GasUsed) / 1000.0
	}

	totalReads, totalWrites, coldAccesses, warmAccesses := 0, 0, 0, 0
	uniqueKeys := make(map[types.Key]struct{})
	for _, r := range serial.Results {
		totalReads += len(r.Access.Reads)
		totalWrites += len(r.Access.Writes)
		coldAccesses += len(r.ColdKeys)
		warmAccesses += len(r.WarmKeys)
		for k := range r.Access.Reads {
			uniqueKeys[k] = struct{}{}
		}
		for k := range r.Access.Writes {
			uniqueKeys[k] = struct{}{}
		}
	}

	totalOps := totalReads + totalWrites
	iops := 0.0
	if parallelTimeMs > 0 {
		iops = (float64(totalOps) / parallelTimeMs) * 1000.0
	}
	iopsReduction := 0.0
	if totalOps > 0 {
		iopsReduction = 1.0 - float64(len(uniqueKeys))/float64(totalOps)
	}

	return types.Metrics{
		Waves:       len(parallel.ActualWaves),
		AvgWaveSize: avgWaveSize,
		MaxWaveSize: maxWaveSize,
		MinWaveSize: minWaveSize,

		SpeedupVsSerial: speedup,
		SerialTimeMs:    serialTimeMs,
		ParallelTimeMs:  parallelTimeMs,

		ConflictRate:     conflictRate,
		TotalConflicts:   totalConflicts,
		RuntimeConflicts: parallel.RuntimeConflicts,

		PreexecPrecision: precision,
		PreexecRecall:    recall,
		FalsePositives:   falsePos,
		FalseNegatives:   falseNeg,

		TxLatencyP50Us: percentile(latencies, 0.5),
		TxLatencyP95Us: percentile(latencies, 0.95),
		TxLatencyP99Us: percentile(latencies, 0.99),
		TxLatencyMaxUs: maxOf(latencies),

		TotalReads:         totalReads,
		TotalWrites:        totalWrites,
		UniqueKeysAccessed: len(uniqueKeys),
		IOPS:               iops,
		IOPSReduction:      iopsReduction,

		TotalGasSerial:   serial.TotalGas,
		TotalGasParallel: parallel.TotalGas,
		ColdAccesses:     coldAccesses,
		WarmAccesses:     warmAccesses,
	}
}

// precisionRecall compares each transaction's pre-execution oracle
// estimate against its actual (post-execution) access set: true
// positives are keys present in both, false positives are estimated but
// unused, false negatives are used but unestimated (the dangerous case,
// since they are what force a runtime conflict re-queue).
func precisionRecall(block types.Block, o oracle.Oracle, actual []types.ExecutionResult) (precision, recall float64, falsePos, falseNeg int) {
	actualByID := make(map[uint64]types.ExecutionResult, len(actual))
	for _, r := range actual {
		actualByID[r.TxID] = r
	}

	var sumPrecision, sumRecall float64
	var count int

	for _, tx := range block.Transactions {
		exact, ok := actualByID[tx.ID]
		if !ok {
			continue
		}
		estimated := o.Estimate(tx)

		tp := intersectionSize(estimated.Reads, exact.Access.Reads) + intersectionSize(estimated.Writes, exact.Access.Writes)
		fp := differenceSize(estimated.Reads, exact.Access.Reads) + differenceSize(estimated.Writes, exact.Access.Writes)
		fn := differenceSize(exact.Access.Reads, estimated.Reads) + differenceSize(exact.Access.Writes, estimated.Writes)

		p := 1.0
		if tp+fp > 0 {
			p = float64(tp) / float64(tp+fp)
		}
		r := 1.0
		if tp+fn > 0 {
			r = float64(tp) / float64(tp+fn)
		}

		sumPrecision += p
		sumRecall += r
		falsePos += fp
		falseNeg += fn
		count++
	}

	if count == 0 {
		return 1.0, 1.0, 0, 0
	}
	return sumPrecision / float64(count), sumRecall / float64(count), falsePos, falseNeg
}

func intersectionSize(a, b map[types.Key]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func differenceSize(a, b map[types.Key]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; !ok {
			n++
		}
	}
	return n
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func maxOf(values []float64) float64 {
	m := 0.0
	for i, v := range values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func estimateTotalConflicts(waves, n int) int {
	if waves <= 1 || n <= 1 {
		return 0
	}
	return ((waves - 1) * n) / waves
}
