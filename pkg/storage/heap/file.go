package heap

import (
	"fmt"
	"io"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
)

// HeapFile represents a collection of pages stored in a single OS file on disk.
// It implements the page.DbFile interface and manages heap pages that store tuples
// in a row-oriented format with bitmap headers.
//
// Storage Layout:
//   - Each page is exactly page.PageSize bytes
//   - Pages are numbered sequentially starting from 0
//   - Page offsets are calculated as: pageNo * page.PageSize
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription // Schema definition for tuples in this file
}

// NewHeapFile creates a new HeapFile backed by the specified file on disk.
// The file will be created if it doesn't exist, or opened for read-write if it does.
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}

	return &HeapFile{
		BaseFile:  baseFile,
		tupleDesc: td,
	}, nil
}

// GetTupleDesc returns the schema definition for tuples stored in this file.
func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// GetID returns this file's table identity, overriding the embedded
// BaseFile.GetID (which yields the untyped FileID the table ID is derived from).
func (hf *HeapFile) GetID() primitives.TableID {
	return hf.tableID()
}

func (hf *HeapFile) tableID() primitives.TableID {
	return primitives.NewTableIDFromFileID(hf.BaseFile.GetID())
}

// ReadPage reads the specified page from disk into memory. Returns a blank
// page if reading past EOF; this is how pages come into existence the first
// time a transaction inserts into a brand-new table.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	if pid.GetTableID() != hf.tableID() {
		return nil, fmt.Errorf("page ID table mismatch: expected %d, got %d", hf.tableID(), pid.GetTableID())
	}

	pageData, err := hf.ReadPageData(pid.PageNo())
	if err != nil {
		if err == io.EOF {
			return NewHeapPage(pid, make([]byte, page.PageSize), hf.tupleDesc)
		}
		return nil, fmt.Errorf("failed to read page data: %w", err)
	}

	return NewHeapPage(pid, pageData, hf.tupleDesc)
}

// WritePage writes the given page to disk at its designated location.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}

	return hf.WritePageData(p.GetID().PageNo(), p.GetPageData())
}

// AllocatePage reserves a new page at the end of the file and returns its ID.
func (hf *HeapFile) AllocatePage() (primitives.PageID, error) {
	pageNo, err := hf.AllocateNewPage()
	if err != nil {
		return primitives.PageID{}, err
	}
	return primitives.NewPageID(hf.tableID(), pageNo), nil
}

// InsertTuple adds a tuple to the first page with room for it, allocating a
// new page if every existing page is full, and returns every page it dirtied.
func (hf *HeapFile) InsertTuple(t *tuple.Tuple) ([]page.Page, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := primitives.NewPageID(hf.tableID(), pageNo)
		p, err := hf.ReadPage(pid)
		if err != nil {
			return nil, err
		}

		hp, ok := p.(*HeapPage)
		if !ok || hp.GetNumEmptySlots() == 0 {
			continue
		}

		if err := hp.AddTuple(t); err != nil {
			continue
		}
		return []page.Page{hp}, nil
	}

	newPid, err := hf.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate new page: %w", err)
	}

	hp, err := NewEmptyHeapPage(newPid, hf.tupleDesc)
	if err != nil {
		return nil, err
	}

	if err := hp.AddTuple(t); err != nil {
		return nil, fmt.Errorf("failed to insert into freshly allocated page: %w", err)
	}

	return []page.Page{hp}, nil
}

// DeleteTuple removes a tuple from the page it was read from and returns
// that page so the caller can mark it dirty.
func (hf *HeapFile) DeleteTuple(t *tuple.Tuple) ([]page.Page, error) {
	if t.RecordID == nil {
		return nil, fmt.Errorf("tuple has no record ID, cannot locate its page")
	}

	p, err := hf.ReadPage(t.RecordID.PageID)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("unexpected page type for heap file")
	}

	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}

	return []page.Page{hp}, nil
}
