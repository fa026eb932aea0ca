package types

// ExecutionResult is the per-transaction record produced by the
// interpreter and consumed by the executor's runtime conflict detector.
type ExecutionResult struct {
	TxID       uint64
	Success    bool
	GasUsed    uint64
	Access     AccessSets // actual accesses observed during execution
	WarmKeys   map[Key]struct{}
	ColdKeys   map[Key]struct{}
	Error      string
}

// NewSuccessResult builds a successful ExecutionResult.
func NewSuccessResult(txID uint64, gasUsed uint64, access AccessSets, warm, cold map[Key]struct{}) ExecutionResult {
	return ExecutionResult{
		TxID:     txID,
		Success:  true,
		GasUsed:  gasUsed,
		Access:   access,
		WarmKeys: warm,
		ColdKeys: cold,
	}
}

// NewFailureResult builds a failed ExecutionResult; writes are cleared so
// that commit for a failed transaction is a no-op as required by §4.4.
func NewFailureResult(txID uint64, access AccessSets, warm, cold map[Key]struct{}, errMsg string) ExecutionResult {
	access.Writes = make(map[Key]struct{})
	return ExecutionResult{
		TxID:     txID,
		Success:  false,
		Access:   access,
		WarmKeys: warm,
		ColdKeys: cold,
		Error:    errMsg,
	}
}

// Wave is an ordered, ascending list of transaction ids guaranteed
// pairwise non-conflicting under the estimates valid at scheduling time.
type Wave []uint64
