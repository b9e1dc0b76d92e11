package log

import (
	"bytes"
	"encoding/binary"
)

// RecordSize is the width, in bytes, of the leading length prefix on every
// serialized record.
const RecordSize = 4

// Serialize encodes a Record using a simple, forward-scannable layout:
// [total length][type][tid][prevLSN][timestamp][type-specific payload].
func Serialize(record *Record) []byte {
	var buf bytes.Buffer

	buf.WriteByte(byte(record.Type))
	binary.Write(&buf, binary.BigEndian, uint64(record.TID.ID()))
	binary.Write(&buf, binary.BigEndian, uint64(record.PrevLSN))
	binary.Write(&buf, binary.BigEndian, uint64(record.Timestamp.Unix()))

	if record.Type == UpdateRecord {
		buf.Write(record.PageID.Serialize())
		writeImage(&buf, record.BeforeImage)
		writeImage(&buf, record.AfterImage)
	}

	body := buf.Bytes()
	out := make([]byte, RecordSize+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(out)))
	copy(out[RecordSize:], body)
	return out
}

func writeImage(buf *bytes.Buffer, image []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(image)))
	buf.Write(image)
}
