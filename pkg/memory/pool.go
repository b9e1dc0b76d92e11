package memory

import (
	"math/rand"
	dberrors "storemy/pkg/error"
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/log"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
	"sync"
)

// DefaultCapacity is the buffer pool's page capacity absent an explicit
// constructor argument, matching the teaching-grade default of 50 pages.
const DefaultCapacity = 50

// BufferPool is the only gateway through which a transaction touches a
// stored page. It mediates lock acquisition on every fetch, caches pages up
// to a fixed capacity, evicts under pressure, and drives commit/abort with
// write-ahead logging under a NO-FORCE/STEAL discipline: dirty pages may be
// evicted before commit (made safe by logging their before-image first),
// and commit forces only the log, never the pages themselves.
//
// Page I/O paths — eviction, discard, and the flush family — are serialized
// under bp.mu. Lock acquisition in GetPage happens before bp.mu is taken at
// all: the Lock Manager has its own monitor, and nothing about mutating the
// cache should happen while a caller is parked waiting on a page lock.
type BufferPool struct {
	mu       sync.Mutex
	capacity int
	cache    PageCache
	locks    *lock.Manager
	catalog  *Catalog
	wal      *log.WAL
}

// NewBufferPool builds a buffer pool bounded at capacity pages, backed by
// catalog for page resolution and wal for commit/eviction durability.
func NewBufferPool(capacity int, catalog *Catalog, wal *log.WAL) *BufferPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BufferPool{
		capacity: capacity,
		cache:    NewPageCache(capacity),
		locks:    lock.NewManager(),
		catalog:  catalog,
		wal:      wal,
	}
}

// GetPage acquires the lock appropriate to perm (Shared for ReadOnly,
// Exclusive for ReadWrite), blocking the caller until the lock is granted or
// returning lock.ErrTransactionAborted if a deadlock is detected. On success
// it returns the cached page, reading it from disk through the catalog on a
// miss and evicting a victim first if the cache is already full.
func (bp *BufferPool) GetPage(tid primitives.TransactionID, pid primitives.PageID, perm primitives.Permission) (page.Page, error) {
	if err := bp.locks.Acquire(pid, tid, perm); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if p, ok := bp.cache.Get(pid); ok {
		return p, nil
	}

	if bp.cache.Size() >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	file, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return nil, dberrors.Wrap(err, "TABLE_NOT_FOUND", "GetPage", "BufferPool")
	}

	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, dberrors.Wrap(err, "PAGE_READ_FAILED", "GetPage", "BufferPool")
	}

	if err := bp.cache.Put(pid, p); err != nil {
		return nil, dberrors.Wrap(err, "CACHE_PUT_FAILED", "GetPage", "BufferPool")
	}
	return p, nil
}

// ReleasePage forwards to the Lock Manager's advisory single-page release.
// Safe only for read-only access patterns; releasing an exclusive lock
// before transaction completion breaks two-phase locking.
func (bp *BufferPool) ReleasePage(tid primitives.TransactionID, pid primitives.PageID) {
	bp.locks.Release(pid, tid)
}

// HoldsLock reports whether tid holds any lock — shared or exclusive — on
// pid. Not used to gate write access; callers are trusted to request the
// permission their access pattern actually needs.
func (bp *BufferPool) HoldsLock(tid primitives.TransactionID, pid primitives.PageID) bool {
	return bp.locks.Holds(pid, tid, lock.Any)
}

// InsertTuple delegates to tableID's backing file, marks every page it
// dirtied with tid, and stores each in the cache, evicting first if a new
// entry would exceed capacity.
func (bp *BufferPool) InsertTuple(tid primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	file, err := bp.catalog.GetDbFile(tableID)
	if err != nil {
		return dberrors.Wrap(err, "TABLE_NOT_FOUND", "InsertTuple", "BufferPool")
	}

	pages, err := file.InsertTuple(t)
	if err != nil {
		return dberrors.Wrap(err, "INSERT_FAILED", "InsertTuple", "BufferPool")
	}
	return bp.cacheDirtyPages(tid, pages)
}

// DeleteTuple is symmetric to InsertTuple: it resolves the tuple's table via
// its RecordID, delegates the delete to the backing file, and marks the
// affected pages dirty for tid.
func (bp *BufferPool) DeleteTuple(tid primitives.TransactionID, t *tuple.Tuple) error {
	if t == nil || t.RecordID == nil {
		return dberrors.New(dberrors.ErrCategoryUser, "TUPLE_NO_RECORD_ID", "tuple has no RecordID to delete")
	}

	tableID := t.RecordID.PageID.GetTableID()
	file, err := bp.catalog.GetDbFile(tableID)
	if err != nil {
		return dberrors.Wrap(err, "TABLE_NOT_FOUND", "DeleteTuple", "BufferPool")
	}

	pages, err := file.DeleteTuple(t)
	if err != nil {
		return dberrors.Wrap(err, "DELETE_FAILED", "DeleteTuple", "BufferPool")
	}
	return bp.cacheDirtyPages(tid, pages)
}

// cacheDirtyPages marks every page dirty for tid and stores it in the
// cache, evicting a victim first whenever a genuinely new entry would push
// the cache over capacity.
func (bp *BufferPool) cacheDirtyPages(tid primitives.TransactionID, pages []page.Page) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, p := range pages {
		p.MarkDirty(true, tid)

		if _, exists := bp.cache.Get(p.GetID()); !exists && bp.cache.Size() >= bp.capacity {
			if err := bp.evictLocked(); err != nil {
				return err
			}
		}
		if err := bp.cache.Put(p.GetID(), p); err != nil {
			return dberrors.Wrap(err, "CACHE_PUT_FAILED", "cacheDirtyPages", "BufferPool")
		}
	}
	return nil
}

// TransactionComplete finalizes tid, then releases every lock it holds.
//
// On abort, every cached page dirtied by tid is discarded — dropped from
// the cache without being written to disk — so an aborted transaction's
// changes never reach the table file.
//
// On commit, every cached page dirtied by tid is logged (before-image and
// current contents) and the log is forced before locks are released — the
// NO-FORCE half of the discipline: pages are not written to disk at commit,
// only the log is made durable, and each page's before-image is refreshed
// to its current contents as the new rollback baseline.
func (bp *BufferPool) TransactionComplete(tid primitives.TransactionID, commit bool) error {
	bp.mu.Lock()

	var dirty []page.Page
	for _, pid := range bp.cache.GetAll() {
		p, ok := bp.cache.Get(pid)
		if !ok {
			continue
		}
		if dtid, isDirty := p.IsDirty(); isDirty && dtid.Equals(tid) {
			dirty = append(dirty, p)
		}
	}

	if !commit {
		for _, p := range dirty {
			bp.cache.Remove(p.GetID())
		}
		bp.mu.Unlock()
		bp.locks.ReleaseAll(tid)
		return nil
	}

	for _, p := range dirty {
		before := p.GetBeforeImage().GetPageData()
		after := p.GetPageData()
		if _, err := bp.wal.LogWrite(tid, p.GetID(), before, after); err != nil {
			bp.mu.Unlock()
			return dberrors.Wrap(err, "LOG_WRITE_FAILED", "TransactionComplete", "BufferPool")
		}
	}

	if len(dirty) > 0 {
		if err := bp.wal.Force(); err != nil {
			bp.mu.Unlock()
			return dberrors.Wrap(err, "LOG_FORCE_FAILED", "TransactionComplete", "BufferPool")
		}
	}

	for _, p := range dirty {
		p.SetBeforeImage()
	}

	bp.mu.Unlock()
	bp.locks.ReleaseAll(tid)
	return nil
}

// FlushAllPages writes every dirty cached page through to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pid := range bp.cache.GetAll() {
		if err := bp.flushPageLocked(pid); err != nil {
			return err
		}
	}
	return nil
}

// FlushPages writes through to disk every cached page currently dirtied by
// tid, leaving pages dirtied by other transactions untouched.
func (bp *BufferPool) FlushPages(tid primitives.TransactionID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pid := range bp.cache.GetAll() {
		p, ok := bp.cache.Get(pid)
		if !ok {
			continue
		}
		if dtid, isDirty := p.IsDirty(); isDirty && dtid.Equals(tid) {
			if err := bp.flushPageLocked(pid); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushPage writes pid through to disk if it is dirty; a no-op otherwise or
// if pid is not cached.
func (bp *BufferPool) FlushPage(pid primitives.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushPageLocked(pid)
}

// flushPageLocked implements write-through for a single page. If the page
// is still dirtied by a transaction holding any lock on it, the update is
// logged and the log forced before the disk write — the precedence that
// makes STEAL safe for a page evicted ahead of its transaction's commit.
// Caller must hold bp.mu.
func (bp *BufferPool) flushPageLocked(pid primitives.PageID) error {
	p, ok := bp.cache.Get(pid)
	if !ok {
		return nil
	}

	tid, isDirty := p.IsDirty()
	if !isDirty {
		return nil
	}

	if bp.locks.Holds(pid, tid, lock.Any) {
		before := p.GetBeforeImage().GetPageData()
		after := p.GetPageData()
		if _, err := bp.wal.LogWrite(tid, pid, before, after); err != nil {
			return dberrors.Wrap(err, "LOG_WRITE_FAILED", "flushPage", "BufferPool")
		}
		if err := bp.wal.Force(); err != nil {
			return dberrors.Wrap(err, "LOG_FORCE_FAILED", "flushPage", "BufferPool")
		}
	}

	file, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return dberrors.Wrap(err, "TABLE_NOT_FOUND", "flushPage", "BufferPool")
	}
	if err := file.WritePage(p); err != nil {
		return dberrors.Wrap(err, "PAGE_WRITE_FAILED", "flushPage", "BufferPool")
	}

	p.MarkDirty(false, primitives.TransactionID{})
	return nil
}

// DiscardPage removes pid from the cache without writing it, regardless of
// dirty state. Used internally by abort and exposed for external recovery
// or index logic that needs to evict a rolled-back page by hand.
func (bp *BufferPool) DiscardPage(pid primitives.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.cache.Remove(pid)
}

// evictLocked selects a victim uniformly at random among the cache's
// current entries, flushes it (writing it to disk if dirty, with log
// precedence as in flushPageLocked), and removes it. STEAL is permitted —
// a dirty victim is evicted so long as its before-image has reached the
// log first. Caller must hold bp.mu.
func (bp *BufferPool) evictLocked() error {
	pids := bp.cache.GetAll()
	if len(pids) == 0 {
		return dberrors.New(dberrors.ErrCategorySystem, "EMPTY_CACHE", "cannot evict from an empty cache")
	}

	victim := pids[rand.Intn(len(pids))]
	if err := bp.flushPageLocked(victim); err != nil {
		return dberrors.Wrap(err, "EVICTION_FLUSH_FAILED", "evict", "BufferPool")
	}
	bp.cache.Remove(victim)
	return nil
}
