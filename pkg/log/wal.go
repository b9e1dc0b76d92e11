package log

import (
	"fmt"
	"io"
	"os"
	"storemy/pkg/primitives"
	"sync"
	"time"
)

// WAL is the append-only write-ahead log the buffer pool logs through before
// evicting a dirty page or committing a transaction. It implements the two
// operations the buffer pool actually needs: log_write (an update record
// carrying a before/after image pair) and force (durably flush everything
// buffered so far). There is no replay/recovery path here — reconstructing
// database state from the log after a crash is left to an external recovery
// manager; this package only guarantees the log itself is durable and
// ordered before the corresponding page write happens.
type WAL struct {
	file   *os.File
	writer *LogWriter

	activeTxns map[primitives.TransactionID]*TxnLogInfo
	mutex      sync.Mutex
}

// NewWAL opens (or creates) the log file at logPath and buffers up to
// bufferSize bytes of records before an implicit flush.
func NewWAL(logPath string, bufferSize int) (*WAL, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %v", err)
	}

	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek to end of WAL: %v", err)
	}

	return &WAL{
		file:       file,
		writer:     NewLogWriter(file, bufferSize, LSN(pos), LSN(pos)),
		activeTxns: make(map[primitives.TransactionID]*TxnLogInfo),
	}, nil
}

// LogBegin appends a BEGIN record for tid, opening its chain of log entries.
func (w *WAL) LogBegin(tid primitives.TransactionID) (LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.append(&Record{Type: BeginRecord, TID: tid, PrevLSN: FirstLSN, Timestamp: time.Now()})
	if err != nil {
		return 0, err
	}

	w.activeTxns[tid] = &TxnLogInfo{FirstLSN: lsn, LastLSN: lsn}
	return lsn, nil
}

// LogWrite appends an UPDATE record carrying pid's before and after images.
// This is the buffer pool's log_write hook, called both when a dirty page is
// evicted (STEAL) and when a transaction commits (NO-FORCE) — in either case
// the record must be durable (via Force) before the corresponding page state
// change becomes visible outside the log.
func (w *WAL) LogWrite(tid primitives.TransactionID, pid primitives.PageID, beforeImage, afterImage []byte) (LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	prev := w.lastLSN(tid)
	lsn, err := w.append(&Record{
		Type:        UpdateRecord,
		TID:         tid,
		PrevLSN:     prev,
		PageID:      pid,
		BeforeImage: beforeImage,
		AfterImage:  afterImage,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return 0, err
	}

	info, ok := w.activeTxns[tid]
	if !ok {
		info = &TxnLogInfo{FirstLSN: lsn}
		w.activeTxns[tid] = info
	}
	info.LastLSN = lsn
	return lsn, nil
}

// LogCommit appends a COMMIT record for tid. The caller is still responsible
// for calling Force afterward — commit durability comes from forcing the
// log, not from this call alone.
func (w *WAL) LogCommit(tid primitives.TransactionID) (LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.append(&Record{Type: CommitRecord, TID: tid, PrevLSN: w.lastLSN(tid), Timestamp: time.Now()})
	if err != nil {
		return 0, err
	}
	delete(w.activeTxns, tid)
	return lsn, nil
}

// LogAbort appends an ABORT record for tid, marking it as rolled back for
// the benefit of an external recovery manager.
func (w *WAL) LogAbort(tid primitives.TransactionID) (LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.append(&Record{Type: AbortRecord, TID: tid, PrevLSN: w.lastLSN(tid), Timestamp: time.Now()})
	if err != nil {
		return 0, err
	}
	delete(w.activeTxns, tid)
	return lsn, nil
}

// lastLSN returns tid's most recent LSN, or FirstLSN if it has none yet.
// Caller must hold w.mutex.
func (w *WAL) lastLSN(tid primitives.TransactionID) LSN {
	if info, ok := w.activeTxns[tid]; ok {
		return info.LastLSN
	}
	return FirstLSN
}

// append serializes record and hands it to the underlying writer. Caller
// must hold w.mutex.
func (w *WAL) append(record *Record) (LSN, error) {
	lsn := w.writer.CurrentLSN()
	record.LSN = lsn

	assigned, err := w.writer.Write(Serialize(record))
	if err != nil {
		return 0, fmt.Errorf("failed to write log record: %v", err)
	}
	return assigned, nil
}

// Force flushes every buffered record to durable storage. Called by the
// buffer pool after logging and before the corresponding disk write, per the
// WAL-before-data ordering that makes STEAL and NO-FORCE safe.
func (w *WAL) Force() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writer.Force(w.writer.CurrentLSN())
}

// Close forces any remaining buffered records and closes the underlying file.
func (w *WAL) Close() error {
	if err := w.Force(); err != nil {
		return err
	}
	return w.file.Close()
}
