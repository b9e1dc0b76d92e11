package lock

import (
	"storemy/pkg/primitives"
	"sync"
)

// Manager is the page-level lock manager: multi-granularity shared/exclusive
// locks, upgrade, and waits-for-graph deadlock detection, all coordinated
// under a single mutex and one broadcast condition variable. There is no
// polling: a blocked caller sleeps on the condition variable and is woken by
// every release, at which point it re-evaluates its grant conditions and the
// cycle check from scratch.
type Manager struct {
	mu    sync.Mutex
	cond  *sync.Cond
	table *lockTable
	graph *WaitsForGraph
}

// NewManager builds an empty lock manager.
func NewManager() *Manager {
	m := &Manager{
		table: newLockTable(),
		graph: NewWaitsForGraph(),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Acquire acquires a Shared lock for perm == primitives.ReadOnly, or an
// Exclusive lock for perm == primitives.ReadWrite, blocking the caller until
// the lock is granted or aborting it with ErrTransactionAborted if granting
// would require waiting on a cycle in the waits-for graph.
func (m *Manager) Acquire(pid primitives.PageID, tid primitives.TransactionID, perm primitives.Permission) error {
	mode := Shared
	if perm == primitives.ReadWrite {
		mode = Exclusive
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		// ENTER: a stronger lock already held subsumes a weaker request.
		if mode == Shared && m.table.holdsExclusive(pid, tid) {
			m.graph.RemoveNode(tid)
			return nil
		}
		if m.table.holds(pid, tid, mode) {
			m.graph.RemoveNode(tid)
			return nil
		}

		// CHECK_S: sole shared holder requesting Exclusive upgrades in place.
		if mode == Exclusive && m.table.holdsShared(pid, tid) && m.table.canGrantExclusive(pid, tid) {
			m.table.upgrade(pid, tid)
			m.graph.RemoveNode(tid)
			return nil
		}

		if mode == Shared && m.table.canGrantShared(pid, tid) {
			m.table.grantShared(pid, tid)
			m.graph.RemoveNode(tid)
			return nil
		}

		if mode == Exclusive && m.table.canGrantExclusive(pid, tid) {
			m.table.grantExclusive(pid, tid)
			m.graph.RemoveNode(tid)
			return nil
		}

		m.recordWaitsFor(pid, tid, mode)

		if m.graph.HasCycleFrom(tid) {
			m.graph.RemoveNode(tid)
			return ErrTransactionAborted
		}

		m.cond.Wait()
	}
}

// recordWaitsFor adds wait-for edges from tid to whichever transactions are
// currently blocking its request.
func (m *Manager) recordWaitsFor(pid primitives.PageID, tid primitives.TransactionID, mode Mode) {
	if h, ok := m.table.exclusiveHolderOf(pid); ok && !h.Equals(tid) {
		m.graph.AddEdge(tid, h)
		return
	}

	// Not exclusive-blocked: for an Exclusive request, the remaining reason
	// to wait is one or more shared holders other than tid.
	if mode == Exclusive {
		m.graph.AddEdges(tid, m.table.sharedHoldersOf(pid))
	}
}

// Holds reports whether tid holds a lock of the given mode (Shared,
// Exclusive, or the Any wildcard) on pid.
func (m *Manager) Holds(pid primitives.PageID, tid primitives.TransactionID, mode Mode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.holds(pid, tid, mode)
}

// Release drops tid's lock (shared or exclusive) on pid and wakes every
// waiter. Advisory: safe only for read-only access patterns, since dropping
// an exclusive lock before transaction completion breaks two-phase locking.
func (m *Manager) Release(pid primitives.PageID, tid primitives.TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table.release(pid, tid)
	m.cond.Broadcast()
}

// ReleaseAll drops every lock tid holds, across all pages, and wakes every
// waiter. Called exactly once per transaction, at transaction completion.
func (m *Manager) ReleaseAll(tid primitives.TransactionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pid := range m.table.pagesHeldBy(tid) {
		m.table.release(pid, tid)
	}
	m.graph.RemoveNode(tid)
	m.cond.Broadcast()
}
