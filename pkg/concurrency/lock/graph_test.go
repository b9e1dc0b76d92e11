package lock

import (
	"storemy/pkg/primitives"
	"testing"
)

func TestWaitsForGraph_NoCycleOnDiamond(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()
	t4 := primitives.NewTransactionID()

	// t1 -> t2 -> t4, t1 -> t3 -> t4 (diamond, no cycle)
	g.AddEdge(t1, t2)
	g.AddEdge(t1, t3)
	g.AddEdge(t2, t4)
	g.AddEdge(t3, t4)

	if g.HasCycleFrom(t1) {
		t.Fatalf("diamond-shaped wait graph should not report a cycle")
	}
}

func TestWaitsForGraph_DetectsIndirectCycle(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()

	// t1 -> t2 -> t3 -> t1 is a cycle not directly touching t1 on the first hop.
	g.AddEdge(t1, t2)
	g.AddEdge(t2, t3)
	g.AddEdge(t3, t1)

	if !g.HasCycleFrom(t1) {
		t.Fatalf("expected a cycle reachable from t1")
	}
}

func TestWaitsForGraph_SelfLoopIsNoOp(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()

	g.AddEdge(t1, t1)

	if g.HasCycleFrom(t1) {
		t.Fatalf("a self-loop must never be recorded as an edge")
	}
}

func TestWaitsForGraph_RemoveNodeClearsInboundAndOutbound(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()
	t3 := primitives.NewTransactionID()

	g.AddEdge(t1, t2)
	g.AddEdge(t2, t3)
	g.AddEdge(t3, t1)

	g.RemoveNode(t2)

	if g.HasCycleFrom(t1) {
		t.Fatalf("removing t2 should break the only cycle through it")
	}
	if g.HasCycleFrom(t3) {
		t.Fatalf("t3's outbound edge to t1 should not re-form a cycle once t2 is gone")
	}
}

func TestWaitsForGraph_AddEdgesExcludesSelf(t *testing.T) {
	g := NewWaitsForGraph()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()

	g.AddEdges(t1, []primitives.TransactionID{t1, t2})

	if g.HasCycleFrom(t1) {
		t.Fatalf("AddEdges must not record the from-id as one of its own targets")
	}
	// t1 should still have the legitimate edge to t2.
	g.AddEdge(t2, t1)
	if !g.HasCycleFrom(t1) {
		t.Fatalf("expected cycle t1->t2->t1")
	}
}
