package transaction

import "testing"

func TestRegistry_BeginRegistersActiveTransaction(t *testing.T) {
	r := NewRegistry()
	ctx := r.Begin()

	if ctx.Status() != Active {
		t.Fatalf("expected a freshly begun transaction to be Active, got %s", ctx.Status())
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 active transaction, got %d", r.Count())
	}

	got, ok := r.Get(ctx.ID)
	if !ok || got != ctx {
		t.Fatalf("Get should return the same context Begin returned")
	}
}

func TestRegistry_CompleteCommitRemovesFromActiveSet(t *testing.T) {
	r := NewRegistry()
	ctx := r.Begin()

	r.Complete(ctx.ID, true)

	if r.Count() != 0 {
		t.Fatalf("expected 0 active transactions after Complete, got %d", r.Count())
	}
	if ctx.Status() != Committed {
		t.Fatalf("expected Committed status, got %s", ctx.Status())
	}
	if _, ok := r.Get(ctx.ID); ok {
		t.Fatalf("Get should no longer find a completed transaction")
	}
}

func TestRegistry_CompleteAbortSetsAbortedStatus(t *testing.T) {
	r := NewRegistry()
	ctx := r.Begin()

	r.Complete(ctx.ID, false)

	if ctx.Status() != Aborted {
		t.Fatalf("expected Aborted status, got %s", ctx.Status())
	}
}

func TestRegistry_CompleteOnUnknownTransactionIsNoOp(t *testing.T) {
	r := NewRegistry()
	ctx := r.Begin()
	r.Complete(ctx.ID, true)

	// Completing an already-completed (and removed) transaction must not panic.
	r.Complete(ctx.ID, true)
}

func TestRegistry_MultipleTransactionsAreIndependent(t *testing.T) {
	r := NewRegistry()
	t1 := r.Begin()
	t2 := r.Begin()

	if t1.ID.Equals(t2.ID) {
		t.Fatalf("distinct Begin calls must produce distinct transaction IDs")
	}

	r.Complete(t1.ID, true)

	if r.Count() != 1 {
		t.Fatalf("expected 1 remaining active transaction, got %d", r.Count())
	}
	if t2.Status() != Active {
		t.Fatalf("t2 should be unaffected by t1's completion")
	}
}
