package tuple

import (
	"fmt"
	"storemy/pkg/primitives"
)

// TupleRecordID locates a specific tuple within the heap: the page it lives on
// and its slot number within that page.
type TupleRecordID struct {
	PageID   primitives.PageID
	TupleNum primitives.SlotID
}

// NewTupleRecordID creates a new TupleRecordID.
func NewTupleRecordID(pageID primitives.PageID, tupleNum primitives.SlotID) *TupleRecordID {
	return &TupleRecordID{
		PageID:   pageID,
		TupleNum: tupleNum,
	}
}

func (rid *TupleRecordID) Equals(other *TupleRecordID) bool {
	if other == nil {
		return false
	}
	return rid.PageID.Equals(other.PageID) && rid.TupleNum == other.TupleNum
}

func (rid *TupleRecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, tuple=%d)", rid.PageID.String(), rid.TupleNum)
}
