// Package graph builds the undirected conflict graph over a set of
// estimated per-transaction access sets (spec.md §4.2), using an
// inverted key index so that non-overlapping transactions never enter
// each other's candidate set.
package graph

import (
	"sort"

	"github.com/bchyl/pevm-opt-2/types"
)

// Graph is the conflict graph: vertices are transaction ids, edges are
// undirected conflicts under the access sets it was built from.
type Graph struct {
	adj map[uint64]map[uint64]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[uint64]map[uint64]struct{})}
}

// AddVertex ensures id participates in the graph, even if it ends up
// with no edges.
func (g *Graph) AddVertex(id uint64) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[uint64]struct{})
	}
}

// addEdge records the symmetric edge (u,v). Self-loops are forbidden.
func (g *Graph) addEdge(u, v uint64) {
	if u == v {
		return
	}
	g.AddVertex(u)
	g.AddVertex(v)
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

// Neighbors returns the (unsorted) set of ids adjacent to id.
func (g *Graph) Neighbors(id uint64) map[uint64]struct{} {
	return g.adj[id]
}

// Degree returns the number of edges incident to id.
func (g *Graph) Degree(id uint64) int {
	return len(g.adj[id])
}

// Vertices returns every vertex id in the graph, sorted ascending.
func (g *Graph) Vertices() []uint64 {
	out := make([]uint64, 0, len(g.adj))
	for id := range g.adj {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasVertex reports whether id was ever inserted into the graph.
func (g *Graph) HasVertex(id uint64) bool {
	_, ok := g.adj[id]
	return ok
}

// EdgeCount returns the number of unordered conflict pairs.
func (g *Graph) EdgeCount() int {
	sum := 0
	for _, neighbors := range g.adj {
		sum += len(neighbors)
	}
	return sum / 2
}

// ConflictRate returns edges / (n*(n-1)/2), the fraction of all possible
// pairs that actually conflict. Returns 0 for n <= 1.
func (g *Graph) ConflictRate() float64 {
	n := len(g.adj)
	if n <= 1 {
		return 0
	}
	maxPairs := float64(n) * float64(n-1) / 2
	return float64(g.EdgeCount()) / maxPairs
}

// Entry is one (tx_id, AccessSets) pair fed to Build.
type Entry struct {
	TxID   uint64
	Access types.AccessSets
}

// Build constructs the conflict graph from a list of (tx_id, AccessSets)
// pairs using the inverted-key-index algorithm of spec.md §4.2:
//
//  1. insert every tx_id as a vertex;
//  2. build an index key -> list of tx_ids touching that key;
//  3. for each transaction, gather candidates from the index entries of
//     every key it touches;
//  4. test each unordered candidate pair exactly once (deduplicated by
//     canonical ordering), evaluating the conflict predicate.
//
// This is O(n*k̄) expected rather than O(n²): transactions that share no
// key never enter each other's candidate set.
func Build(entries []Entry) *Graph {
	g := New()

	accessByID := make(map[uint64]types.AccessSets, len(entries))
	keyIndex := make(map[types.Key][]uint64)

	for _, e := range entries {
		g.AddVertex(e.TxID)
		accessByID[e.TxID] = e.Access
		for _, k := range e.Access.Keys() {
			keyIndex[k] = append(keyIndex[k], e.TxID)
		}
	}

	type pair struct{ u, v uint64 }
	checked := make(map[pair]struct{})

	for _, e := range entries {
		candidates := make(map[uint64]struct{})
		for _, k := range e.Access.Keys() {
			for _, other := range keyIndex[k] {
				if other != e.TxID {
					candidates[other] = struct{}{}
				}
			}
		}

		for other := range candidates {
			u, v := e.TxID, other
			if u > v {
				u, v = v, u
			}
			p := pair{u, v}
			if _, done := checked[p]; done {
				continue
			}
			checked[p] = struct{}{}

			if accessByID[e.TxID].Conflicts(accessByID[other]) {
				g.addEdge(e.TxID, other)
			}
		}
	}

	return g
}
