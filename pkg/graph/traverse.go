package graph

// Direction selects which way a traversal follows edges.
type Direction string

const (
	// DirectionForward follows edges source -> target (effects).
	DirectionForward Direction = "forward"
	// DirectionInverse follows edges target -> source (causes).
	DirectionInverse Direction = "inverse"
)

// TraversalResult is one visited node with its BFS depth from the origin.
type TraversalResult struct {
	Node  Node
	Depth int
}

// Traverse runs a bounded breadth-first traversal from a memory id.
// The origin itself is not included. maxDepth <= 0 returns nothing.
// Results are ordered by depth, then by discovery order.
func (g *Index) Traverse(id string, dir Direction, maxDepth int) []TraversalResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, ok := g.byID[id]
	if !ok || maxDepth <= 0 {
		return nil
	}

	visited := map[int32]bool{start: true}
	frontier := []int32{start}
	var results []TraversalResult

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []int32
		for _, cur := range frontier {
			adj := g.nodes[cur].out
			if dir == DirectionInverse {
				adj = g.nodes[cur].in
			}
			for _, eh := range g.sortedEdgeHandles(adj) {
				e := g.edges[eh]
				neighbor := e.to
				if dir == DirectionInverse {
					neighbor = e.from
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				n := g.nodes[neighbor]
				results = append(results, TraversalResult{
					Node:  Node{ID: n.id, Type: n.typ, Summary: n.summary},
					Depth: depth,
				})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return results
}

// Snapshot is a point-in-time copy of the graph's node and edge sets.
// Snapshots are computed on demand and never persisted.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Snapshot copies the current node and edge sets under the read lock.
func (g *Index) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(g.byID)),
		Edges: make([]Edge, 0, g.edgeCount),
	}

	for h := range g.nodes {
		n := &g.nodes[h]
		if !n.alive {
			continue
		}
		snap.Nodes = append(snap.Nodes, Node{ID: n.id, Type: n.typ, Summary: n.summary})
	}
	for eh := range g.edges {
		if !g.edges[eh].alive {
			continue
		}
		snap.Edges = append(snap.Edges, g.edgeValue(int32(eh)))
	}

	return snap
}
