package primitives

import "fmt"

// FileID Methods
// =============================================================================

// IsValid checks if the FileID is a valid non-zero identifier.
// A FileID of 0 is typically considered invalid or uninitialized.
func (f FileID) IsValid() bool {
	return f != 0
}

// AsUint64 returns the FileID as a uint64 for serialization or storage.
func (f FileID) AsUint64() uint64 {
	return uint64(f)
}

// String returns a string representation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("FileID(%d)", f)
}

// NewFileIDFromUint64 builds a FileID from a raw value, used when a caller
// already has a hash or a deserialized identifier on hand.
func NewFileIDFromUint64(v uint64) FileID {
	return FileID(v)
}

// TableID Methods
// =============================================================================

func (t TableID) IsValid() bool {
	return t != 0
}

func (t TableID) AsUint64() uint64 {
	return uint64(t)
}

func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", t)
}

// ToFileID widens a TableID back to the FileID it was derived from.
func (t TableID) ToFileID() FileID {
	return FileID(t)
}

// AsIndexID reinterprets a TableID as an IndexID over the same backing file.
// Used when a table and one of its indexes happen to share a lookup path.
func (t TableID) AsIndexID() IndexID {
	return IndexID(t)
}

func NewTableIDFromUint64(v uint64) TableID {
	return TableID(v)
}

func NewTableIDFromFileID(f FileID) TableID {
	return TableID(f)
}

// IndexID Methods
// =============================================================================

func (i IndexID) IsValid() bool {
	return i != 0
}

func (i IndexID) AsUint64() uint64 {
	return uint64(i)
}

func (i IndexID) String() string {
	return fmt.Sprintf("IndexID(%d)", i)
}

func (i IndexID) ToFileID() FileID {
	return FileID(i)
}

func (i IndexID) AsTableID() TableID {
	return TableID(i)
}

func NewIndexIDFromUint64(v uint64) IndexID {
	return IndexID(v)
}

func NewIndexIDFromFileID(f FileID) IndexID {
	return IndexID(f)
}
