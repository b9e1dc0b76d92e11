package heap

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// HeapFileIterator provides iteration over all tuples in a HeapFile, reading
// pages directly rather than through the buffer pool. It exists for catalog
// and recovery code that needs to scan a table without transactional locking.
type HeapFileIterator struct {
	file        *HeapFile
	currentPage primitives.PageNumber
	pageIter    *HeapPageIterator
	isOpen      bool
}

// NewHeapFileIterator creates a new iterator for the given HeapFile.
func NewHeapFileIterator(file *HeapFile) *HeapFileIterator {
	return &HeapFileIterator{
		file:        file,
		currentPage: 0,
		isOpen:      false,
	}
}

// Open initializes the iterator.
func (it *HeapFileIterator) Open() error {
	it.currentPage = 0
	it.pageIter = nil
	it.isOpen = true
	return it.moveToNextPage(true)
}

// HasNext returns true if there are more tuples.
func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, fmt.Errorf("iterator not opened")
	}

	if it.pageIter != nil {
		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			return false, err
		}
		if hasNext {
			return true, nil
		}
	}

	numPages, err := it.file.NumPages()
	if err != nil {
		return false, err
	}

	return it.currentPage < numPages, nil
}

// Next returns the next tuple.
func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	if !it.isOpen {
		return nil, fmt.Errorf("iterator not opened")
	}

	if it.pageIter != nil {
		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			return nil, err
		}
		if hasNext {
			return it.pageIter.Next()
		}
	}

	if err := it.moveToNextPage(false); err != nil {
		return nil, err
	}

	if it.pageIter == nil {
		return nil, fmt.Errorf("no more tuples")
	}

	return it.pageIter.Next()
}

// Rewind resets the iterator.
func (it *HeapFileIterator) Rewind() error {
	return it.Open()
}

// Close releases iterator resources.
func (it *HeapFileIterator) Close() error {
	if it.pageIter != nil {
		it.pageIter.Close()
		it.pageIter = nil
	}
	it.isOpen = false
	return nil
}

// moveToNextPage advances to the next page with tuples. firstCall skips the
// increment so Open() starts scanning from page 0 rather than page 1.
func (it *HeapFileIterator) moveToNextPage(firstCall bool) error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}

	for {
		if !firstCall {
			it.currentPage++
		}
		firstCall = false

		if it.currentPage >= numPages {
			it.pageIter = nil
			return nil
		}

		pid := primitives.NewPageID(it.file.tableID(), it.currentPage)
		p, err := it.file.ReadPage(pid)
		if err != nil {
			it.currentPage++
			continue
		}

		heapPage, ok := p.(*HeapPage)
		if !ok {
			it.currentPage++
			continue
		}

		it.pageIter = NewHeapPageIterator(heapPage)
		if err := it.pageIter.Open(); err != nil {
			it.currentPage++
			continue
		}

		hasNext, err := it.pageIter.HasNext()
		if err != nil {
			it.currentPage++
			continue
		}
		if hasNext {
			return nil
		}
		it.currentPage++
	}
}
