package heap

import (
	"storemy/pkg/primitives"
	"testing"
)

func TestHeapPageIterator_EmptyPage(t *testing.T) {
	td := mustCreateTupleDesc()
	hp, _ := NewEmptyHeapPage(primitives.NewPageID(1, 0), td)

	it := NewHeapPageIterator(hp)
	if err := it.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	hasNext, err := it.HasNext()
	if err != nil {
		t.Fatalf("HasNext failed: %v", err)
	}
	if hasNext {
		t.Errorf("expected no tuples on an empty page")
	}
}

func TestHeapPageIterator_IteratesAllTuples(t *testing.T) {
	td := mustCreateTupleDesc()
	hp, _ := NewEmptyHeapPage(primitives.NewPageID(1, 0), td)

	for i := 0; i < 3; i++ {
		if err := hp.AddTuple(mustTuple(td, int64(i), "row")); err != nil {
			t.Fatalf("AddTuple failed: %v", err)
		}
	}

	it := NewHeapPageIterator(hp)
	if err := it.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	count := 0
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext failed: %v", err)
		}
		if !hasNext {
			break
		}
		if _, err := it.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}

	if count != 3 {
		t.Errorf("expected 3 tuples, got %d", count)
	}
}

func TestHeapPageIterator_RewindRestartsIteration(t *testing.T) {
	td := mustCreateTupleDesc()
	hp, _ := NewEmptyHeapPage(primitives.NewPageID(1, 0), td)
	if err := hp.AddTuple(mustTuple(td, 1, "x")); err != nil {
		t.Fatalf("AddTuple failed: %v", err)
	}

	it := NewHeapPageIterator(hp)
	it.Open()
	it.Next()

	if err := it.Rewind(); err != nil {
		t.Fatalf("Rewind failed: %v", err)
	}

	hasNext, _ := it.HasNext()
	if !hasNext {
		t.Errorf("expected a tuple to be available again after rewind")
	}
}

func TestHeapFileIterator_ScansAcrossPages(t *testing.T) {
	hf := newTestHeapFile(t)
	td := hf.GetTupleDesc()

	const n = 40
	for i := 0; i < n; i++ {
		if _, err := hf.InsertTuple(mustTuple(td, int64(i), "row")); err != nil {
			t.Fatalf("InsertTuple failed: %v", err)
		}
	}

	numPages, _ := hf.NumPages()
	if numPages < 2 {
		t.Skip("not enough tuples to span multiple pages with this tuple size")
	}

	it := NewHeapFileIterator(hf)
	if err := it.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer it.Close()

	count := 0
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext failed: %v", err)
		}
		if !hasNext {
			break
		}
		if _, err := it.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}

	if count != n {
		t.Errorf("expected %d tuples across all pages, got %d", n, count)
	}
}

func TestHeapFileIterator_EmptyFile(t *testing.T) {
	hf := newTestHeapFile(t)

	it := NewHeapFileIterator(hf)
	if err := it.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	hasNext, err := it.HasNext()
	if err != nil {
		t.Fatalf("HasNext failed: %v", err)
	}
	if hasNext {
		t.Errorf("expected no tuples in an empty file")
	}
}
