package page

import (
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// DbFile represents a database file that stores tuples and provides operations for
// reading, writing, and managing data pages. It serves as the primary interface
// for file-based storage operations in the database system.
//
// DbFile is an external collaborator from the buffer pool's point of view: the
// buffer pool only ever resolves a page through a DbFile it obtained from the
// catalog, and never assumes anything about how pages are laid out on disk.
type DbFile interface {
	// ReadPage retrieves a specific page from the database file by its page ID.
	ReadPage(pid primitives.PageID) (Page, error)

	// WritePage persists a page to the database file.
	WritePage(p Page) error

	// GetID returns the unique identifier of the database file.
	GetID() primitives.TableID

	// GetTupleDesc returns the tuple description associated with the database file.
	GetTupleDesc() *tuple.TupleDescription

	// AllocatePage reserves and returns the ID of a newly allocated page.
	AllocatePage() (primitives.PageID, error)

	// NumPages returns the number of pages currently in the file.
	NumPages() (primitives.PageNumber, error)

	// InsertTuple adds a tuple to the file, allocating a new page if none of
	// the existing pages have room, and returns every page it dirtied.
	InsertTuple(t *tuple.Tuple) ([]Page, error)

	// DeleteTuple removes a tuple from the page it was read from and returns
	// that page.
	DeleteTuple(t *tuple.Tuple) ([]Page, error)

	// Close releases any resources held by the database file.
	Close() error
}
