// Package generator produces synthetic blocks with a controlled conflict
// ratio for benchmarking the scheduler and executor (spec.md §9
// supplemented feature). Grounded on
// _examples/original_source/src/generator/mod.rs's BlockGenerator, ported
// from rand::rngs::StdRng to math/rand/v2's seeded PCG source so a given
// seed reproduces the same block across runs without an external RNG
// dependency.
package generator

import (
	"math/rand/v2"

	"github.com/bchyl/pevm-opt-2/log"
	"github.com/bchyl/pevm-opt-2/types"
)

var genLog = log.Default().Module("generator")

// BlockGenerator creates synthetic blocks. ConflictRatio controls how
// often a transaction reuses a key from a shared pool instead of drawing
// a fresh one (higher means more conflicts, less parallelism). ColdRatio
// is carried for API parity with the original generator and future cold
// or warm slot pre-seeding; the toy interpreter has no persistent
// warm-set across blocks so it does not currently change generation.
type BlockGenerator struct {
	NTx           int
	KeySpace      int
	ConflictRatio float64
	ColdRatio     float64
	Seed          uint64
}

// New builds a BlockGenerator with explicit parameters.
func New(nTx, keySpace int, conflictRatio, coldRatio float64, seed uint64) *BlockGenerator {
	return &BlockGenerator{
		NTx:           nTx,
		KeySpace:      keySpace,
		ConflictRatio: conflictRatio,
		ColdRatio:     coldRatio,
		Seed:          seed,
	}
}

// Small is a 100-tx, low-conflict preset.
func Small() *BlockGenerator { return New(100, 1000, 0.1, 0.3, 42) }

// Medium is a 1000-tx, moderate-conflict preset.
func Medium() *BlockGenerator { return New(1000, 10000, 0.2, 0.3, 42) }

// Large is a 5000-tx, high-conflict preset.
func Large() *BlockGenerator { return New(5000, 50000, 0.3, 0.4, 42) }

// NoConflicts generates nTx transactions drawing from a key space ten
// times larger than nTx and a zero conflict ratio, for testing maximum
// parallelism.
func NoConflicts(nTx int, seed uint64) *BlockGenerator {
	return New(nTx, nTx*10, 0.0, 0.5, seed)
}

// FullConflicts generates nTx transactions all contending a single key,
// for testing the fully-serial fallback.
func FullConflicts(nTx int, seed uint64) *BlockGenerator {
	return New(nTx, 1, 1.0, 0.5, seed)
}

// Generate produces a deterministic Block: the same Seed and parameters
// always yield the same transactions, reads, writes, and programs.
func (g *BlockGenerator) Generate() types.Block {
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))

	keyPool := make([]types.Key, g.KeySpace)
	for i := range keyPool {
		var addr types.Address
		var slot types.Hash
		addr[0] = byte(i % 256)
		slot[0] = byte(i / 256)
		keyPool[i] = types.NewKey(addr, slot)
	}

	genLog.Info("generating block",
		"n_tx", g.NTx, "key_space", g.KeySpace,
		"conflict_ratio", g.ConflictRatio, "cold_ratio", g.ColdRatio, "seed", g.Seed)

	txs := make([]types.Transaction, 0, g.NTx)
	for txID := 0; txID < g.NTx; txID++ {
		readCount := 1 + rng.IntN(5)
		writeCount := 1 + rng.IntN(3)

		reads := make([]types.Key, 0, readCount)
		for i := 0; i < readCount; i++ {
			reads = append(reads, g.pickKey(rng, keyPool))
		}
		writes := make([]types.Key, 0, writeCount)
		for i := 0; i < writeCount; i++ {
			writes = append(writes, g.pickKey(rng, keyPool))
		}

		var program []types.MicroOp
		for _, k := range reads {
			program = append(program, types.MicroOp{Kind: types.OpSLoad, Key: k})
		}
		if len(reads) > 0 {
			program = append(program, types.MicroOp{
				Kind: types.OpAdd,
				Val:  types.NewValueFromUint64(uint64(1 + rng.IntN(100))),
			})
		}
		for _, k := range writes {
			program = append(program, types.MicroOp{
				Kind: types.OpSStore,
				Key:  k,
				Val:  types.NewValueFromUint64(uint64(1 + rng.IntN(1000))),
			})
		}
		if rng.Float64() < 0.2 {
			data := make([]byte, 32)
			fillRandomBytes(rng, data)
			program = append(program, types.MicroOp{Kind: types.OpKeccak, Data: data})
		}
		for i, n := 0, rng.IntN(3); i < n; i++ {
			program = append(program, types.MicroOp{Kind: types.OpNoOp})
		}

		var from types.Address
		fillRandomBytes(rng, from[:])

		blobSize := uint64(0)
		if rng.Float64() < 0.1 {
			blobSize = uint64(1000 + rng.IntN(99000))
		}

		txs = append(txs, types.Transaction{
			ID:     uint64(txID),
			Reads:  reads,
			Writes: writes,
			Metadata: types.TransactionMetadata{
				Program:  program,
				Nonce:    uint64(txID),
				From:     from,
				BlobSize: blobSize,
			},
			GasHint: 100_000,
		})
	}

	block := types.Block{Number: 1, Transactions: txs}
	genLog.Info("generated block", "n_tx", len(block.Transactions))
	return block
}

func (g *BlockGenerator) pickKey(rng *rand.Rand, pool []types.Key) types.Key {
	if len(pool) > 0 && rng.Float64() < g.ConflictRatio {
		return pool[rng.IntN(len(pool))]
	}
	var addr types.Address
	var slot types.Hash
	fillRandomBytes(rng, addr[:])
	fillRandomBytes(rng, slot[:])
	return types.NewKey(addr, slot)
}

// fillRandomBytes fills buf with random bytes drawn from rng. math/rand/v2's
// Rand has no Read method (unlike math/rand's), so each byte is drawn
// with its own IntN(256) call.
func fillRandomBytes(rng *rand.Rand, buf []byte) {
	for i := range buf {
		buf[i] = byte(rng.IntN(256))
	}
}
