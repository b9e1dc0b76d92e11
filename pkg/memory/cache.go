// Package memory implements the buffer pool: the page cache, eviction, and
// transaction commit/abort machinery that sits between the tuple layer and
// on-disk storage.
package memory

import (
	"fmt"
	"storemy/pkg/storage/page"
	"storemy/pkg/primitives"
	"sync"
)

// PageCache stores and retrieves pages in memory. It knows nothing about
// transactions, locks, durability, or eviction policy — those are the
// buffer pool's concerns, layered on top.
type PageCache interface {
	Get(pid primitives.PageID) (page.Page, bool)
	Put(pid primitives.PageID, p page.Page) error
	Remove(pid primitives.PageID)
	Size() int
	Clear()
	// GetAll returns every cached page ID, in no particular order — the
	// buffer pool's eviction policy picks a victim uniformly at random
	// from this set, so ordering here carries no meaning.
	GetAll() []primitives.PageID
}

// mapPageCache is a plain capacity-bounded map of pages. Unlike an LRU
// cache, it keeps no access-recency ordering: the buffer pool's eviction
// policy selects victims uniformly at random among whatever GetAll returns,
// so there is nothing for the cache itself to track beyond membership.
type mapPageCache struct {
	maxSize int
	pages   map[primitives.PageID]page.Page
	mutex   sync.RWMutex
}

// NewPageCache creates a page cache bounded at maxSize entries.
func NewPageCache(maxSize int) PageCache {
	return &mapPageCache{
		maxSize: maxSize,
		pages:   make(map[primitives.PageID]page.Page),
	}
}

func (c *mapPageCache) Get(pid primitives.PageID) (page.Page, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	p, ok := c.pages[pid]
	return p, ok
}

func (c *mapPageCache) Put(pid primitives.PageID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.pages[pid]; !exists && len(c.pages) >= c.maxSize {
		return fmt.Errorf("cache full, cannot add page %v", pid)
	}
	c.pages[pid] = p
	return nil
}

func (c *mapPageCache) Remove(pid primitives.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.pages, pid)
}

func (c *mapPageCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.pages)
}

func (c *mapPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.pages = make(map[primitives.PageID]page.Page)
}

func (c *mapPageCache) GetAll() []primitives.PageID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	pids := make([]primitives.PageID, 0, len(c.pages))
	for pid := range c.pages {
		pids = append(pids, pid)
	}
	return pids
}
