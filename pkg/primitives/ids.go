package primitives

import (
	"fmt"
	"sync/atomic"
)

// TableID identifies a table's backing file within the catalog. It is derived
// by hashing the table's file path, so the same file always resolves to the
// same ID across process restarts.
type TableID uint64

// IndexID identifies an index's backing file, derived the same way as TableID.
type IndexID uint64

// PageID is a concrete, comparable identifier for a page within a table. Unlike
// an interface, two PageID values with equal fields are == in Go, so PageID
// works directly as a map key without a HashCode/Equals dance.
type PageID struct {
	TableID TableID
	PageNum PageNumber
}

// NewPageID builds a PageID for the given table and page number.
func NewPageID(tableID TableID, pageNum PageNumber) PageID {
	return PageID{TableID: tableID, PageNum: pageNum}
}

func (p PageID) GetTableID() TableID    { return p.TableID }
func (p PageID) PageNo() PageNumber     { return p.PageNum }
func (p PageID) Equals(other PageID) bool {
	return p.TableID == other.TableID && p.PageNum == other.PageNum
}

func (p PageID) String() string {
	return fmt.Sprintf("PageID(table=%d, page=%d)", p.TableID, p.PageNum)
}

// Serialize returns a fixed-width byte representation, used by the WAL to
// persist before/after image records.
func (p PageID) Serialize() []byte {
	buf := make([]byte, 16)
	putUint64(buf[0:8], uint64(p.TableID))
	putUint64(buf[8:16], uint64(p.PageNum))
	return buf
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
}

// transactionCounter generates process-unique transaction identifiers.
var transactionCounter int64

// TransactionID names a transaction. It is a plain comparable value, not a
// pointer, so it can be used as a map key or passed by value without the two
// callers ending up with different identities for "the same" transaction.
type TransactionID struct {
	id int64
}

// NewTransactionID allocates the next transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID{id: atomic.AddInt64(&transactionCounter, 1)}
}

func (t TransactionID) ID() int64 { return t.id }

func (t TransactionID) String() string {
	return fmt.Sprintf("Txn(%d)", t.id)
}

func (t TransactionID) Equals(other TransactionID) bool {
	return t.id == other.id
}

// Permission describes the access level a transaction requests when fetching
// a page from the buffer pool.
type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

func (p Permission) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}
