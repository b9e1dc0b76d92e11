package memory

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"sync"
)

// Catalog resolves a table's backing file by ID. It is the buffer pool's
// only view of "which tables exist" — schema, statistics, and naming live
// above this layer and are out of scope here; the buffer pool only ever
// needs a table's DbFile.
type Catalog struct {
	files map[primitives.TableID]page.DbFile
	mutex sync.RWMutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{files: make(map[primitives.TableID]page.DbFile)}
}

// AddTable registers f under its own ID, replacing any previous file with
// the same ID.
func (c *Catalog) AddTable(f page.DbFile) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.files[f.GetID()] = f
	return nil
}

// GetDbFile resolves tableID to its backing file, implementing the
// catalog's get_database_file contract.
func (c *Catalog) GetDbFile(tableID primitives.TableID) (page.DbFile, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	f, exists := c.files[tableID]
	if !exists {
		return nil, fmt.Errorf("table with ID %d not found", tableID)
	}
	return f, nil
}

// RemoveTable drops tableID from the catalog and closes its file.
func (c *Catalog) RemoveTable(tableID primitives.TableID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	f, exists := c.files[tableID]
	if !exists {
		return fmt.Errorf("table with ID %d not found", tableID)
	}
	delete(c.files, tableID)
	return f.Close()
}

// Clear removes every table from the catalog, closing each file. Close
// errors are collected and joined rather than aborting partway through.
func (c *Catalog) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var firstErr error
	for id, f := range c.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close file for table %d: %v", id, err)
		}
	}
	c.files = make(map[primitives.TableID]page.DbFile)
	return firstErr
}
