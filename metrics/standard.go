package metrics

// Pre-defined metrics for the scheduler and executor. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Scheduling metrics ----

	// WavesScheduled counts waves proposed by the MIS scheduler.
	WavesScheduled = DefaultRegistry.Counter("scheduler.waves_scheduled")
	// WaveSize records the cardinality of each scheduled wave.
	WaveSize = DefaultRegistry.Histogram("scheduler.wave_size")

	// ---- Execution metrics ----

	// WavesCommitted counts commit passes the executor performed.
	WavesCommitted = DefaultRegistry.Counter("executor.waves_committed")
	// RuntimeConflicts counts transactions the executor re-queued because
	// their actual accesses overlapped an earlier accepted transaction in
	// the same pass, whether or not the oracle had predicted the overlap.
	RuntimeConflicts = DefaultRegistry.Counter("executor.runtime_conflicts")
	// TxLatency records per-transaction execution latency in microseconds.
	TxLatency = DefaultRegistry.Histogram("executor.tx_latency_us")
	// GasUsed counts total gas consumed by successful transactions.
	GasUsed = DefaultRegistry.Counter("executor.gas_used")
)
