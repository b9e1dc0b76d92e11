package lock

import (
	"storemy/pkg/primitives"
	"testing"
	"time"
)

func TestManager_SharedLocksAreCompatible(t *testing.T) {
	m := NewManager()
	pid := testPageID()
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()

	if err := m.Acquire(pid, t1, primitives.ReadOnly); err != nil {
		t.Fatalf("t1 shared acquire: %v", err)
	}
	if err := m.Acquire(pid, t2, primitives.ReadOnly); err != nil {
		t.Fatalf("t2 shared acquire: %v", err)
	}

	if !m.Holds(pid, t1, Shared) || !m.Holds(pid, t2, Shared) {
		t.Fatalf("both transactions should hold the shared lock")
	}
}

func TestManager_ExclusiveBlocksSharedUntilReleased(t *testing.T) {
	m := NewManager()
	pid := testPageID()
	writer := primitives.NewTransactionID()
	reader := primitives.NewTransactionID()

	if err := m.Acquire(pid, writer, primitives.ReadWrite); err != nil {
		t.Fatalf("writer acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.Acquire(pid, reader, primitives.ReadOnly)
	}()

	select {
	case <-done:
		t.Fatalf("reader should not have been granted while writer holds exclusive")
	case <-time.After(50 * time.Millisecond):
	}

	m.ReleaseAll(writer)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("reader acquire after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("reader never woke up after writer released")
	}
}

func TestManager_UpgradeSucceedsForSoleSharedHolder(t *testing.T) {
	m := NewManager()
	pid := testPageID()
	tid := primitives.NewTransactionID()

	if err := m.Acquire(pid, tid, primitives.ReadOnly); err != nil {
		t.Fatalf("initial shared acquire: %v", err)
	}
	if err := m.Acquire(pid, tid, primitives.ReadWrite); err != nil {
		t.Fatalf("upgrade acquire: %v", err)
	}

	if !m.Holds(pid, tid, Exclusive) {
		t.Fatalf("expected exclusive after upgrade")
	}
}

func TestManager_RepeatedAcquireIsIdempotent(t *testing.T) {
	m := NewManager()
	pid := testPageID()
	tid := primitives.NewTransactionID()

	if err := m.Acquire(pid, tid, primitives.ReadWrite); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := m.Acquire(pid, tid, primitives.ReadOnly); err != nil {
		t.Fatalf("a weaker request from the same holder must subsume, not block: %v", err)
	}
	if err := m.Acquire(pid, tid, primitives.ReadWrite); err != nil {
		t.Fatalf("repeated exclusive acquire must be a no-op: %v", err)
	}
}

func TestManager_DeadlockIsDetectedAndAborts(t *testing.T) {
	m := NewManager()
	pA := primitives.NewPageID(primitives.TableID(1), 0)
	pB := primitives.NewPageID(primitives.TableID(1), 1)
	t1 := primitives.NewTransactionID()
	t2 := primitives.NewTransactionID()

	if err := m.Acquire(pA, t1, primitives.ReadWrite); err != nil {
		t.Fatalf("t1 acquire pA: %v", err)
	}
	if err := m.Acquire(pB, t2, primitives.ReadWrite); err != nil {
		t.Fatalf("t2 acquire pB: %v", err)
	}

	t1Blocked := make(chan error, 1)
	go func() {
		t1Blocked <- m.Acquire(pB, t1, primitives.ReadWrite)
	}()

	// Give t1 a chance to register as blocked on pB before t2 requests pA,
	// which completes the cycle and must trigger an abort for one side.
	time.Sleep(50 * time.Millisecond)

	t2Err := m.Acquire(pA, t2, primitives.ReadWrite)

	select {
	case t1Err := <-t1Blocked:
		if t2Err != ErrTransactionAborted && t1Err != ErrTransactionAborted {
			t.Fatalf("expected at least one side of the cycle to abort, got t1=%v t2=%v", t1Err, t2Err)
		}
	case <-time.After(time.Second):
		if t2Err != ErrTransactionAborted {
			t.Fatalf("t2 should have been aborted immediately on detecting the cycle, got %v", t2Err)
		}
	}
}

func TestManager_ReleaseAllFreesEveryPage(t *testing.T) {
	m := NewManager()
	p1 := primitives.NewPageID(primitives.TableID(1), 0)
	p2 := primitives.NewPageID(primitives.TableID(1), 1)
	tid := primitives.NewTransactionID()
	other := primitives.NewTransactionID()

	if err := m.Acquire(p1, tid, primitives.ReadWrite); err != nil {
		t.Fatalf("acquire p1: %v", err)
	}
	if err := m.Acquire(p2, tid, primitives.ReadWrite); err != nil {
		t.Fatalf("acquire p2: %v", err)
	}

	m.ReleaseAll(tid)

	if m.Holds(p1, tid, Any) || m.Holds(p2, tid, Any) {
		t.Fatalf("ReleaseAll should have dropped every lock tid held")
	}
	if err := m.Acquire(p1, other, primitives.ReadWrite); err != nil {
		t.Fatalf("another transaction should now be able to acquire p1: %v", err)
	}
}
