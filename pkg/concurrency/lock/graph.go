package lock

import "storemy/pkg/primitives"

// WaitsForGraph is a directed graph over transaction IDs: an edge from A to B
// means A is currently blocked waiting on a lock held by B. It holds no
// back-pointers to lock state — just identifiers — so it can be mutated
// independently of the lock table under the same manager mutex.
//
// An entry for a transaction exists only while that transaction is blocked;
// a granted transaction has no outgoing edges at all.
type WaitsForGraph struct {
	edges map[primitives.TransactionID]map[primitives.TransactionID]struct{}
}

// NewWaitsForGraph builds an empty graph.
func NewWaitsForGraph() *WaitsForGraph {
	return &WaitsForGraph{
		edges: make(map[primitives.TransactionID]map[primitives.TransactionID]struct{}),
	}
}

// AddEdge records that from waits on to. A self-loop is always a no-op: a
// transaction never waits on itself.
func (g *WaitsForGraph) AddEdge(from, to primitives.TransactionID) {
	if from.Equals(to) {
		return
	}

	out, ok := g.edges[from]
	if !ok {
		out = make(map[primitives.TransactionID]struct{})
		g.edges[from] = out
	}
	out[to] = struct{}{}
}

// AddEdges is a batch form of AddEdge; from is excluded from tos automatically.
func (g *WaitsForGraph) AddEdges(from primitives.TransactionID, tos []primitives.TransactionID) {
	for _, to := range tos {
		g.AddEdge(from, to)
	}
}

// RemoveNode deletes t as a key and as a target of every other node's edges.
// Called on every grant (success or abort) so that a completed acquire call
// never leaves a phantom edge behind.
func (g *WaitsForGraph) RemoveNode(t primitives.TransactionID) {
	delete(g.edges, t)
	for _, out := range g.edges {
		delete(out, t)
	}
}

// HasCycleFrom reports whether a cycle is reachable from root: a breadth-first
// traversal that revisits root counts as a cycle. The graph is bounded by the
// number of currently blocked transactions, so a plain BFS per acquisition is
// simpler than maintaining incremental cycle state and is fast enough in
// practice.
func (g *WaitsForGraph) HasCycleFrom(root primitives.TransactionID) bool {
	visited := make(map[primitives.TransactionID]struct{})
	queue := []primitives.TransactionID{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited[n] = struct{}{}

		for m := range g.edges[n] {
			if _, seen := visited[m]; seen {
				return true
			}
			queue = append(queue, m)
		}
	}

	return false
}
