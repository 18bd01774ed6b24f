// Package graph provides the in-process causal graph index over memory ids.
//
// The index is the live, authoritative view consulted by ordinary
// (non-historical) graph operations. It enforces the DAG invariant at the
// single write path: an edge insertion first checks reachability and only then
// mutates, under one exclusive lock, so no interleaving writer can reintroduce
// a cycle. Causal relations cannot be cyclic by construction; enforcing that
// here means traversal, reconstruction and ranking never defend against cycles.
package graph

import (
	"fmt"
	"sync"

	"github.com/dan-solli/tempora/pkg/store"
)

// Node is a graph vertex: the subset of a memory the index needs.
type Node struct {
	ID      string
	Type    store.MemoryType
	Summary string
}

// Edge is a directed causal relation as seen by the live index.
type Edge struct {
	SourceID string
	TargetID string
	Relation string
	Weight   float64
}

// invalid marks an empty handle slot.
const invalid = int32(-1)

// nodeRec is one arena slot. Nodes are addressed by stable integer handles
// with a side map from external string ids; adjacency is kept as
// target-handle -> edge-handle maps, which sidesteps pointer-cycle ownership
// entirely.
type nodeRec struct {
	id      string
	typ     store.MemoryType
	summary string
	out     map[int32]int32 // target handle -> edge handle
	in      map[int32]int32 // source handle -> edge handle
	alive   bool
}

type edgeRec struct {
	from, to int32
	relation string
	weight   float64
	alive    bool
}

// Index is the causal graph index. Safe for concurrent use: reads take a
// shared lock, every mutation holds the exclusive lock for its whole duration.
type Index struct {
	mu        sync.RWMutex
	nodes     []nodeRec
	edges     []edgeRec
	byID      map[string]int32
	freeNodes []int32
	freeEdges []int32
	edgeCount int
}

// New creates an empty causal graph index.
func New() *Index {
	return &Index{byID: make(map[string]int32)}
}

// AddNode upserts a node. Returns true if the node was newly created.
// Idempotent: re-adding refreshes type and summary only.
func (g *Index) AddNode(id string, typ store.MemoryType, summary string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, created := g.upsertNode(id, typ, summary)
	return created
}

// upsertNode returns the handle for id, allocating a slot if needed.
// Caller must hold the write lock.
func (g *Index) upsertNode(id string, typ store.MemoryType, summary string) (int32, bool) {
	if h, ok := g.byID[id]; ok {
		// Refresh metadata, but never blank it out on incidental upserts
		// from AddEdge.
		if typ != "" {
			g.nodes[h].typ = typ
		}
		if summary != "" {
			g.nodes[h].summary = summary
		}
		return h, false
	}

	var h int32
	if n := len(g.freeNodes); n > 0 {
		h = g.freeNodes[n-1]
		g.freeNodes = g.freeNodes[:n-1]
		g.nodes[h] = nodeRec{}
	} else {
		g.nodes = append(g.nodes, nodeRec{})
		h = int32(len(g.nodes) - 1)
	}

	g.nodes[h] = nodeRec{
		id:      id,
		typ:     typ,
		summary: summary,
		out:     make(map[int32]int32),
		in:      make(map[int32]int32),
		alive:   true,
	}
	g.byID[id] = h
	return h, true
}

// AddEdge inserts or reweights the directed edge source -> target, reporting
// whether the edge was newly created. Missing endpoints are upserted (node
// upsert is independently idempotent, so incidental upserts from a rejected
// call are acceptable). If target can already reach source the call fails with
// store.ErrCausalCycle and no edge is mutated. The reachability check and the
// insertion happen under one exclusive lock; there is no check-then-act gap.
func (g *Index) AddEdge(sourceID, targetID, relation string, weight float64) (bool, error) {
	if sourceID == targetID {
		return false, fmt.Errorf("edge %s -> %s: %w", sourceID, targetID, store.ErrCausalCycle)
	}
	if weight < 0 || weight > 1 {
		return false, fmt.Errorf("weight must be in [0, 1], got %f", weight)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, _ := g.upsertNode(sourceID, "", "")
	dst, _ := g.upsertNode(targetID, "", "")

	// Existing edge: reweight only, the DAG cannot be affected.
	if eh, ok := g.nodes[src].out[dst]; ok {
		g.edges[eh].relation = relation
		g.edges[eh].weight = weight
		return false, nil
	}

	if g.reachable(dst, src) {
		return false, fmt.Errorf("edge %s -> %s: %w", sourceID, targetID, store.ErrCausalCycle)
	}

	var eh int32
	if n := len(g.freeEdges); n > 0 {
		eh = g.freeEdges[n-1]
		g.freeEdges = g.freeEdges[:n-1]
	} else {
		g.edges = append(g.edges, edgeRec{})
		eh = int32(len(g.edges) - 1)
	}
	g.edges[eh] = edgeRec{from: src, to: dst, relation: relation, weight: weight, alive: true}
	g.nodes[src].out[dst] = eh
	g.nodes[dst].in[src] = eh
	g.edgeCount++

	return true, nil
}

// GetEdge returns the directed edge source -> target, if present.
func (g *Index) GetEdge(sourceID, targetID string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	src, ok := g.byID[sourceID]
	if !ok {
		return Edge{}, false
	}
	dst, ok := g.byID[targetID]
	if !ok {
		return Edge{}, false
	}
	eh, ok := g.nodes[src].out[dst]
	if !ok {
		return Edge{}, false
	}
	return g.edgeValue(eh), true
}

// reachable reports whether a directed path exists from one handle to another.
// Caller must hold at least the read lock.
func (g *Index) reachable(from, to int32) bool {
	if from == to {
		return true
	}
	visited := map[int32]bool{from: true}
	frontier := []int32{from}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for next := range g.nodes[cur].out {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false
}

// SetWeight overwrites the weight of an existing edge.
// Returns false if the edge does not exist.
func (g *Index) SetWeight(sourceID, targetID string, weight float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.byID[sourceID]
	if !ok {
		return false
	}
	dst, ok := g.byID[targetID]
	if !ok {
		return false
	}
	eh, ok := g.nodes[src].out[dst]
	if !ok {
		return false
	}
	g.edges[eh].weight = weight
	return true
}

// RemoveEdge deletes the directed edge source -> target.
// Returns whether the edge existed.
func (g *Index) RemoveEdge(sourceID, targetID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.byID[sourceID]
	if !ok {
		return false
	}
	dst, ok := g.byID[targetID]
	if !ok {
		return false
	}
	return g.removeEdgeLocked(src, dst)
}

func (g *Index) removeEdgeLocked(src, dst int32) bool {
	eh, ok := g.nodes[src].out[dst]
	if !ok {
		return false
	}
	delete(g.nodes[src].out, dst)
	delete(g.nodes[dst].in, src)
	g.edges[eh].alive = false
	g.freeEdges = append(g.freeEdges, eh)
	g.edgeCount--
	return true
}

// RemoveNode deletes a node and every incident edge.
// Returns whether the node existed.
func (g *Index) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.byID[id]
	if !ok {
		return false
	}

	for dst := range g.nodes[h].out {
		g.removeEdgeLocked(h, dst)
	}
	for src := range g.nodes[h].in {
		g.removeEdgeLocked(src, h)
	}

	g.freeNodeLocked(h)
	return true
}

func (g *Index) freeNodeLocked(h int32) {
	delete(g.byID, g.nodes[h].id)
	g.nodes[h] = nodeRec{}
	g.freeNodes = append(g.freeNodes, h)
}

// GetNode returns the node for a memory id, if present.
func (g *Index) GetNode(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	h, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	n := g.nodes[h]
	return Node{ID: n.id, Type: n.typ, Summary: n.summary}, true
}

// GetEdges returns the union of incoming and outgoing edges for a memory as
// (source, target, weight) triples, outgoing first.
func (g *Index) GetEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	h, ok := g.byID[id]
	if !ok {
		return nil
	}

	var result []Edge
	for _, eh := range g.sortedEdgeHandles(g.nodes[h].out) {
		result = append(result, g.edgeValue(eh))
	}
	for _, eh := range g.sortedEdgeHandles(g.nodes[h].in) {
		result = append(result, g.edgeValue(eh))
	}
	return result
}

func (g *Index) edgeValue(eh int32) Edge {
	e := g.edges[eh]
	return Edge{
		SourceID: g.nodes[e.from].id,
		TargetID: g.nodes[e.to].id,
		Relation: e.relation,
		Weight:   e.weight,
	}
}

// sortedEdgeHandles returns edge handles in insertion order (handle order is
// monotonic for a given arena generation, which keeps output deterministic).
func (g *Index) sortedEdgeHandles(adj map[int32]int32) []int32 {
	handles := make([]int32, 0, len(adj))
	for _, eh := range adj {
		handles = append(handles, eh)
	}
	for i := 1; i < len(handles); i++ {
		for j := i; j > 0 && handles[j] < handles[j-1]; j-- {
			handles[j], handles[j-1] = handles[j-1], handles[j]
		}
	}
	return handles
}

// Prune removes all edges with weight below minStrength, then removes any
// node left with zero incident edges, in one pass under one exclusive lock.
// Returns the removed edge and node counts.
func (g *Index) Prune(minStrength float64) (edgesRemoved, nodesRemoved int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for eh := range g.edges {
		e := &g.edges[eh]
		if !e.alive || e.weight >= minStrength {
			continue
		}
		g.removeEdgeLocked(e.from, e.to)
		edgesRemoved++
	}

	for h := range g.nodes {
		n := &g.nodes[h]
		if n.alive && len(n.out) == 0 && len(n.in) == 0 {
			g.freeNodeLocked(int32(h))
			nodesRemoved++
		}
	}

	return edgesRemoved, nodesRemoved
}

// NodeCount returns the number of live nodes.
func (g *Index) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}

// EdgeCount returns the number of live edges.
func (g *Index) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}
