package types

// Metrics is the serialized record the CLI writes after a benchmark run:
// wave statistics, speedup, estimator precision/recall, latency
// percentiles, IOPS, and gas totals, as required by spec §6.
type Metrics struct {
	Waves           int     `json:"waves"`
	AvgWaveSize     float64 `json:"avg_wave_size"`
	MaxWaveSize     int     `json:"max_wave_size"`
	MinWaveSize     int     `json:"min_wave_size"`

	SpeedupVsSerial float64 `json:"speedup_vs_serial"`
	SerialTimeMs    float64 `json:"serial_time_ms"`
	ParallelTimeMs  float64 `json:"parallel_time_ms"`

	ConflictRate     float64 `json:"conflict_rate"`
	TotalConflicts   int     `json:"total_conflicts"`
	RuntimeConflicts int     `json:"runtime_conflicts"`

	PreexecPrecision float64 `json:"preexec_precision"`
	PreexecRecall    float64 `json:"preexec_recall"`
	FalsePositives   int     `json:"false_positives"`
	FalseNegatives   int     `json:"false_negatives"`

	// The TxLatency* values are percentiles of GasUsed/1000 per
	// transaction (see executor.CollectMetrics), not of measured time.
	TxLatencyP50Us float64 `json:"tx_latency_p50_us"`
	TxLatencyP95Us float64 `json:"tx_latency_p95_us"`
	TxLatencyP99Us float64 `json:"tx_latency_p99_us"`
	TxLatencyMaxUs float64 `json:"tx_latency_max_us"`

	TotalReads        int `json:"total_reads"`
	TotalWrites       int `json:"total_writes"`
	UniqueKeysAccessed int `json:"unique_keys_accessed"`
	IOPS               float64 `json:"iops"`
	IOPSReduction      float64 `json:"iops_reduction"`

	TotalGasSerial   uint64 `json:"total_gas_serial"`
	TotalGasParallel uint64 `json:"total_gas_parallel"`
	ColdAccesses     int    `json:"cold_accesses"`
	WarmAccesses     int    `json:"warm_accesses"`
}
