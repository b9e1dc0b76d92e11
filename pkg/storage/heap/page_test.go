package heap

import (
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"testing"
)

func mustCreateTupleDesc() *tuple.TupleDescription {
	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	if err != nil {
		panic(err)
	}
	return td
}

func mustTuple(td *tuple.TupleDescription, id int64, name string) *tuple.Tuple {
	t := tuple.NewTuple(td)
	if err := t.SetField(0, types.NewIntField(id)); err != nil {
		panic(err)
	}
	if err := t.SetField(1, types.NewStringField(name, len(name))); err != nil {
		panic(err)
	}
	return t
}

func TestNewEmptyHeapPage(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)

	hp, err := NewEmptyHeapPage(pid, td)
	if err != nil {
		t.Fatalf("NewEmptyHeapPage failed: %v", err)
	}

	if !hp.GetID().Equals(pid) {
		t.Errorf("expected page ID %v, got %v", pid, hp.GetID())
	}

	if hp.GetNumEmptySlots() == 0 {
		t.Errorf("expected a freshly created page to have empty slots")
	}
}

func TestHeapPage_RejectsWrongSize(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)

	if _, err := NewHeapPage(pid, make([]byte, page.PageSize-1), td); err == nil {
		t.Errorf("expected an error for undersized page data")
	}
}

func TestHeapPage_AddAndGetTuples(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)
	hp, err := NewEmptyHeapPage(pid, td)
	if err != nil {
		t.Fatalf("NewEmptyHeapPage failed: %v", err)
	}

	tup := mustTuple(td, 1, "alice")
	if err := hp.AddTuple(tup); err != nil {
		t.Fatalf("AddTuple failed: %v", err)
	}

	if tup.RecordID == nil || !tup.RecordID.PageID.Equals(pid) {
		t.Errorf("expected inserted tuple to carry this page's record ID")
	}

	got := hp.GetTuples()
	if len(got) != 1 {
		t.Fatalf("expected 1 tuple, got %d", len(got))
	}
}

func TestHeapPage_DeleteTuple(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)
	hp, _ := NewEmptyHeapPage(pid, td)

	tup := mustTuple(td, 1, "bob")
	if err := hp.AddTuple(tup); err != nil {
		t.Fatalf("AddTuple failed: %v", err)
	}

	if err := hp.DeleteTuple(tup); err != nil {
		t.Fatalf("DeleteTuple failed: %v", err)
	}

	if tup.RecordID != nil {
		t.Errorf("expected record ID to be cleared after deletion")
	}

	if len(hp.GetTuples()) != 0 {
		t.Errorf("expected no tuples after deletion")
	}

	if err := hp.DeleteTuple(tup); err == nil {
		t.Errorf("expected deleting an already-deleted tuple to fail")
	}
}

func TestHeapPage_SerializeRoundTrip(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(7, 3)
	hp, _ := NewEmptyHeapPage(pid, td)

	for i, name := range []string{"alice", "bob", "carol"} {
		if err := hp.AddTuple(mustTuple(td, int64(i), name)); err != nil {
			t.Fatalf("AddTuple failed: %v", err)
		}
	}

	data := hp.GetPageData()
	reloaded, err := NewHeapPage(pid, data, td)
	if err != nil {
		t.Fatalf("NewHeapPage on serialized data failed: %v", err)
	}

	if len(reloaded.GetTuples()) != 3 {
		t.Fatalf("expected 3 tuples after round-trip, got %d", len(reloaded.GetTuples()))
	}
}

func TestHeapPage_DirtyMarkerAndBeforeImage(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)
	hp, _ := NewEmptyHeapPage(pid, td)

	tid := primitives.NewTransactionID()
	if _, dirty := hp.IsDirty(); dirty {
		t.Errorf("new page should not be dirty")
	}

	hp.MarkDirty(true, tid)
	gotTid, dirty := hp.IsDirty()
	if !dirty || !gotTid.Equals(tid) {
		t.Errorf("expected page dirtied by %v, got dirty=%v tid=%v", tid, dirty, gotTid)
	}

	before := hp.GetBeforeImage()
	if before.GetID() != hp.GetID() {
		t.Errorf("before-image should carry the same page ID")
	}

	if err := hp.AddTuple(mustTuple(td, 1, "x")); err != nil {
		t.Fatalf("AddTuple failed: %v", err)
	}
	hp.SetBeforeImage()
	afterSnapshot := hp.GetBeforeImage()
	if len(afterSnapshot.(*HeapPage).GetTuples()) != 1 {
		t.Errorf("SetBeforeImage should refresh the baseline to current contents")
	}
}

func TestHeapPage_Compact(t *testing.T) {
	td := mustCreateTupleDesc()
	pid := primitives.NewPageID(1, 0)
	hp, _ := NewEmptyHeapPage(pid, td)

	var tuples []*tuple.Tuple
	for i := 0; i < 5; i++ {
		tup := mustTuple(td, int64(i), "row")
		if err := hp.AddTuple(tup); err != nil {
			t.Fatalf("AddTuple failed: %v", err)
		}
		tuples = append(tuples, tup)
	}

	for i := 0; i < 3; i++ {
		if err := hp.DeleteTuple(tuples[i]); err != nil {
			t.Fatalf("DeleteTuple failed: %v", err)
		}
	}

	reclaimed := hp.Compact()
	if reclaimed <= 0 {
		t.Errorf("expected compaction to reclaim space, got %d", reclaimed)
	}

	if len(hp.GetTuples()) != 2 {
		t.Errorf("expected 2 surviving tuples after compaction, got %d", len(hp.GetTuples()))
	}
}
