// Package lock implements page-level Two-Phase Locking (2PL) for StoreMy's
// concurrency control layer.
//
// # Overview
//
// The package enforces the standard 2PL protocol: a transaction acquires all
// locks it needs during the growing phase and releases them all at once during
// commit or abort (the shrinking phase). Locks are never released mid-transaction.
//
// Two lock modes are supported:
//
//   - [Shared]    — required to read a page; compatible with other shared locks.
//   - [Exclusive] — required to write a page; incompatible with all other locks.
//
// A transaction holding the sole shared lock on a page may upgrade it to
// exclusive ([Manager.Acquire] with [Exclusive]) without releasing and
// reacquiring. Downgrading (exclusive → shared) is never permitted, and a
// transaction never reacquires a strictly weaker mode once it holds a
// stronger one.
//
// # Components
//
// [Manager] is the single public entry point. Callers use [Manager.Acquire] to
// acquire a lock and [Manager.Release] / [Manager.ReleaseAll] to give locks
// back. Internally it coordinates two pieces of state, both guarded by the
// manager's own mutex:
//
//   - [lockTable] — tracks, per page, the set of shared holders and the (at
//     most one) exclusive holder.
//   - [WaitsForGraph] — directed wait-for graph used for deadlock detection.
//     An edge A→B means transaction A is blocked waiting on a lock held by B.
//     A cycle reachable from the requester indicates a deadlock.
//
// # Lock Acquisition Flow
//
// [Manager.Acquire] runs entirely under one mutex plus a single broadcast
// condition variable — there is no polling or backoff:
//
//  1. If the transaction already holds a sufficient lock, return immediately.
//  2. If the request can be granted (or upgraded) without conflict, grant it,
//     purge the requester from the wait-for graph, and return.
//  3. Otherwise, record wait-for edges against the current holders and check
//     for a cycle reachable from the requester. A cycle aborts the request
//     immediately: the requester is purged from the graph and
//     [ErrTransactionAborted] is returned.
//  4. If no cycle exists, wait on the condition variable. Every release
//     broadcasts; on each wake-up the grant conditions and the cycle check
//     are both re-evaluated from scratch (spurious wake-ups are harmless).
//
// # Deadlock Detection
//
// [WaitsForGraph.HasCycleFrom] runs a breadth-first search from the
// requesting transaction. It only needs to find a cycle reachable from the
// root, which is the only cycle relevant to that particular acquire call —
// the graph is small (bounded by currently-blocked transactions) so the
// straightforward traversal is preferred over incremental cycle tracking.
//
// # Invariants
//
//   - At most one transaction holds [Exclusive] on a page; while it does, no
//     other transaction holds [Shared] on the same page.
//   - Locks are upgraded shared→exclusive but never downgraded.
//   - All locks are released only at [Manager.ReleaseAll] (transaction
//     completion) or by an explicit, advisory [Manager.Release].
//   - Deadlock detection runs before the caller is put to wait; a detected
//     cycle returns an error immediately so the caller can abort and retry.
package lock
