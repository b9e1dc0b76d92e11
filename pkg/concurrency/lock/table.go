package lock

import "storemy/pkg/primitives"

// lockTable is the grant-time state of the lock manager: for every page, the
// set of current shared holders and the (at most one) exclusive holder.
//
// Invariant maintained by every mutating method: a page is present in
// sharedHolders only while its holder set is non-empty, and exclusiveHolder
// and a non-empty sharedHolders entry are never both present for the same
// page except transiently during an upgrade (see upgrade, which performs
// the drop-shared/become-exclusive swap as a single step).
type lockTable struct {
	sharedHolders   map[primitives.PageID]map[primitives.TransactionID]struct{}
	exclusiveHolder map[primitives.PageID]primitives.TransactionID
}

func newLockTable() *lockTable {
	return &lockTable{
		sharedHolders:   make(map[primitives.PageID]map[primitives.TransactionID]struct{}),
		exclusiveHolder: make(map[primitives.PageID]primitives.TransactionID),
	}
}

func (lt *lockTable) exclusiveHolderOf(pid primitives.PageID) (primitives.TransactionID, bool) {
	h, ok := lt.exclusiveHolder[pid]
	return h, ok
}

func (lt *lockTable) sharedHoldersOf(pid primitives.PageID) []primitives.TransactionID {
	holders := lt.sharedHolders[pid]
	out := make([]primitives.TransactionID, 0, len(holders))
	for t := range holders {
		out = append(out, t)
	}
	return out
}

func (lt *lockTable) holdsShared(pid primitives.PageID, tid primitives.TransactionID) bool {
	_, ok := lt.sharedHolders[pid][tid]
	return ok
}

func (lt *lockTable) holdsExclusive(pid primitives.PageID, tid primitives.TransactionID) bool {
	h, ok := lt.exclusiveHolder[pid]
	return ok && h.Equals(tid)
}

// holds implements the Any-wildcard query: does tid hold any lock on pid.
func (lt *lockTable) holds(pid primitives.PageID, tid primitives.TransactionID, mode Mode) bool {
	switch mode {
	case Shared:
		return lt.holdsShared(pid, tid)
	case Exclusive:
		return lt.holdsExclusive(pid, tid)
	default: // Any
		return lt.holdsShared(pid, tid) || lt.holdsExclusive(pid, tid)
	}
}

// grantShared records tid as a shared holder of pid.
func (lt *lockTable) grantShared(pid primitives.PageID, tid primitives.TransactionID) {
	holders, ok := lt.sharedHolders[pid]
	if !ok {
		holders = make(map[primitives.TransactionID]struct{})
		lt.sharedHolders[pid] = holders
	}
	holders[tid] = struct{}{}
}

// grantExclusive records tid as the exclusive holder of pid.
func (lt *lockTable) grantExclusive(pid primitives.PageID, tid primitives.TransactionID) {
	lt.exclusiveHolder[pid] = tid
}

// upgrade converts tid's sole shared lock on pid into the exclusive lock,
// atomically from the caller's perspective (both happen under the manager
// mutex with no intervening grant to any other transaction).
func (lt *lockTable) upgrade(pid primitives.PageID, tid primitives.TransactionID) {
	delete(lt.sharedHolders[pid], tid)
	if len(lt.sharedHolders[pid]) == 0 {
		delete(lt.sharedHolders, pid)
	}
	lt.exclusiveHolder[pid] = tid
}

// canGrantShared reports whether pid may be shared-locked by tid right now:
// no exclusive holder, or tid itself already holds it exclusively.
func (lt *lockTable) canGrantShared(pid primitives.PageID, tid primitives.TransactionID) bool {
	h, ok := lt.exclusiveHolder[pid]
	return !ok || h.Equals(tid)
}

// canGrantExclusive reports whether pid may be exclusive-locked by tid: no
// exclusive holder, and either no shared holders or tid is the sole one
// (the upgrade path).
func (lt *lockTable) canGrantExclusive(pid primitives.PageID, tid primitives.TransactionID) bool {
	if h, ok := lt.exclusiveHolder[pid]; ok && !h.Equals(tid) {
		return false
	}

	holders := lt.sharedHolders[pid]
	switch len(holders) {
	case 0:
		return true
	case 1:
		_, soleIsTid := holders[tid]
		return soleIsTid
	default:
		return false
	}
}

// release removes tid from both the shared set and the exclusive holder for
// pid. A no-op if tid holds nothing on pid.
func (lt *lockTable) release(pid primitives.PageID, tid primitives.TransactionID) {
	if h, ok := lt.exclusiveHolder[pid]; ok && h.Equals(tid) {
		delete(lt.exclusiveHolder, pid)
	}

	if holders, ok := lt.sharedHolders[pid]; ok {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(lt.sharedHolders, pid)
		}
	}
}

// pagesHeldBy returns every page tid currently holds a lock on, shared or
// exclusive, used by releaseAll.
func (lt *lockTable) pagesHeldBy(tid primitives.TransactionID) []primitives.PageID {
	seen := make(map[primitives.PageID]struct{})
	for pid, h := range lt.exclusiveHolder {
		if h.Equals(tid) {
			seen[pid] = struct{}{}
		}
	}
	for pid, holders := range lt.sharedHolders {
		if _, ok := holders[tid]; ok {
			seen[pid] = struct{}{}
		}
	}

	pages := make([]primitives.PageID, 0, len(seen))
	for pid := range seen {
		pages = append(pages, pid)
	}
	return pages
}
