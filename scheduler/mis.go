// Package scheduler partitions a block's transactions into conflict-free
// waves via iterated greedy minimum-degree Maximal Independent Set
// (spec.md §4.3). This is the algorithm the spec's open question
// mandates over the simpler order-preserving-greedy variant.
package scheduler

import (
	"sort"

	"github.com/bchyl/pevm-opt-2/graph"
	"github.com/bchyl/pevm-opt-2/metrics"
	"github.com/bchyl/pevm-opt-2/types"
)

// DefaultMaxWaveSize is used when callers do not impose a tighter bound.
const DefaultMaxWaveSize = 10_000

// MIS is the spec-mandated wave scheduler.
type MIS struct {
	MaxWaveSize int
}

// New returns an MIS scheduler bounded by maxWaveSize. A non-positive
// value falls back to DefaultMaxWaveSize.
func New(maxWaveSize int) *MIS {
	if maxWaveSize <= 0 {
		maxWaveSize = DefaultMaxWaveSize
	}
	return &MIS{MaxWaveSize: maxWaveSize}
}

// Schedule partitions every transaction id in block into waves, using g
// as the conflict graph built from the estimates valid at scheduling
// time. The partition is exact: every tx_id appears in exactly one wave.
func (m *MIS) Schedule(block types.Block, g *graph.Graph) []types.Wave {
	remaining := make(map[uint64]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		remaining[tx.ID] = struct{}{}
	}

	var waves []types.Wave
	for len(remaining) > 0 {
		wave := m.findMIS(g, remaining)
		if len(wave) == 0 {
			// Only possible when remaining holds a vertex absent from
			// the graph (no estimate was produced for it); fall back to
			// a singleton wave so progress is still guaranteed.
			id := smallest(remaining)
			wave = types.Wave{id}
		}

		sort.Slice(wave, func(i, j int) bool { return wave[i] < wave[j] })
		for _, id := range wave {
			delete(remaining, id)
		}
		waves = append(waves, wave)
		metrics.WavesScheduled.Inc()
		metrics.WaveSize.Observe(float64(len(wave)))
	}

	return waves
}

// findMIS greedily builds a maximal independent set inside the subgraph
// induced by remaining: repeatedly pick the minimum-degree candidate
// (ties broken by smallest tx_id), add it to the set, then remove it and
// its graph neighbors from the candidate pool.
func (m *MIS) findMIS(g *graph.Graph, remaining map[uint64]struct{}) types.Wave {
	cand := make(map[uint64]struct{}, len(remaining))
	for id := range remaining {
		if g.HasVertex(id) {
			cand[id] = struct{}{}
		}
	}

	var wave types.Wave
	for len(cand) > 0 && len(wave) < m.MaxWaveSize {
		v := minDegree(g, cand)
		wave = append(wave, v)
		delete(cand, v)
		for n := range g.Neighbors(v) {
			delete(cand, n)
		}
	}
	return wave
}

// minDegree returns the candidate with the smallest graph degree,
// breaking ties by smallest tx_id.
func minDegree(g *graph.Graph, cand map[uint64]struct{}) uint64 {
	var best uint64
	bestDegree := -1
	first := true
	for id := range cand {
		d := g.Degree(id)
		if first || d < bestDegree || (d == bestDegree && id < best) {
			best = id
			bestDegree = d
			first = false
		}
	}
	return best
}

func smallest(set map[uint64]struct{}) uint64 {
	var best uint64
	first := true
	for id := range set {
		if first || id < best {
			best = id
			first = false
		}
	}
	return best
}
