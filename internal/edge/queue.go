package edge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/models"
)

// journalEntry is one line of the append-only queue journal.
type journalEntry struct {
	Op     string               `json:"op"` // enqueue | delivered | failed
	ID     uuid.UUID            `json:"id"`
	Record *models.QueuedRecord `json:"record,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// DurableLocalQueue is the edge's crash-safe buffer of attendance events.
// Every mutation is appended to a JSONL journal and fsynced before the call
// returns; reopening the journal reconstructs the queue, which is what gives
// the pipeline its at-least-once guarantee. Records found in-flight at replay
// are demoted to pending: a crash between upload and acknowledgement means
// the batch must be redelivered, and the cloud's duplicate guard absorbs it.
type DurableLocalQueue struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	records     map[uuid.UUID]*models.QueuedRecord
	order       []uuid.UUID
	maxAttempts int
}

func OpenDurableLocalQueue(path string, maxAttempts int) (*DurableLocalQueue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	q := &DurableLocalQueue{
		path:        path,
		records:     make(map[uuid.UUID]*models.QueuedRecord),
		maxAttempts: maxAttempts,
	}

	if err := q.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue journal: %w", err)
	}
	q.file = file
	return q, nil
}

func (q *DurableLocalQueue) replay() error {
	file, err := os.Open(q.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open queue journal for replay: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry journalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// A torn final line from a crash mid-append is expected; every
			// complete line before it has already been applied
			continue
		}
		q.apply(&entry)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to replay queue journal: %w", err)
	}

	// Crash while a batch was in flight: redeliver
	for _, rec := range q.records {
		if rec.State == models.DeliveryInFlight {
			rec.State = models.DeliveryPending
		}
	}
	return nil
}

func (q *DurableLocalQueue) apply(entry *journalEntry) {
	switch entry.Op {
	case "enqueue":
		if entry.Record == nil {
			return
		}
		rec := *entry.Record
		q.records[rec.ID] = &rec
		q.order = append(q.order, rec.ID)
	case "delivered":
		if rec, ok := q.records[entry.ID]; ok {
			rec.State = models.DeliveryDelivered
		}
	case "failed":
		if rec, ok := q.records[entry.ID]; ok {
			rec.Attempts++
			rec.LastError = entry.Error
			if rec.Attempts >= rec.MaxAttempts {
				rec.State = models.DeliveryFailed
			} else {
				rec.State = models.DeliveryPending
			}
		}
	}
}

func (q *DurableLocalQueue) append(entry *journalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := q.file.Write(data); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	if err := q.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	return nil
}

// Enqueue persists the event as a pending record and returns its ID.
func (q *DurableLocalQueue) Enqueue(event models.AttendanceEvent) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec := &models.QueuedRecord{
		ID:          uuid.New(),
		Event:       event,
		State:       models.DeliveryPending,
		MaxAttempts: q.maxAttempts,
		EnqueuedAt:  time.Now(),
	}

	if err := q.append(&journalEntry{Op: "enqueue", ID: rec.ID, Record: rec}); err != nil {
		return uuid.Nil, err
	}

	q.records[rec.ID] = rec
	q.order = append(q.order, rec.ID)
	return rec.ID, nil
}

// PeekBatch returns up to n pending records in enqueue order and marks them
// in-flight. The in-flight mark is deliberately not journaled: after a crash
// those records must come back as pending anyway.
func (q *DurableLocalQueue) PeekBatch(n int) []models.QueuedRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []models.QueuedRecord
	for _, id := range q.order {
		if len(batch) >= n {
			break
		}
		rec := q.records[id]
		if rec.State != models.DeliveryPending {
			continue
		}
		rec.State = models.DeliveryInFlight
		batch = append(batch, *rec)
	}
	return batch
}

// MarkDelivered acknowledges the records of a successfully uploaded batch.
func (q *DurableLocalQueue) MarkDelivered(ids []uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range ids {
		rec, ok := q.records[id]
		if !ok {
			continue
		}
		if err := q.append(&journalEntry{Op: "delivered", ID: id}); err != nil {
			return err
		}
		rec.State = models.DeliveryDelivered
	}
	return nil
}

// MarkFailed records a failed delivery attempt. At MaxAttempts the record
// transitions to failed and is excluded from future batches but retained for
// inspection.
func (q *DurableLocalQueue) MarkFailed(id uuid.UUID, cause string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return fmt.Errorf("unknown record %s", id)
	}

	if err := q.append(&journalEntry{Op: "failed", ID: id, Error: cause}); err != nil {
		return err
	}

	rec.Attempts++
	rec.LastError = cause
	if rec.Attempts >= rec.MaxAttempts {
		rec.State = models.DeliveryFailed
	} else {
		rec.State = models.DeliveryPending
	}
	return nil
}

// Depth is the number of records still waiting to be uploaded.
func (q *DurableLocalQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, rec := range q.records {
		if rec.State == models.DeliveryPending || rec.State == models.DeliveryInFlight {
			n++
		}
	}
	return n
}

// FailedRecords returns records that exhausted their attempts, for audit.
func (q *DurableLocalQueue) FailedRecords() []models.QueuedRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []models.QueuedRecord
	for _, id := range q.order {
		if rec := q.records[id]; rec.State == models.DeliveryFailed {
			failed = append(failed, *rec)
		}
	}
	return failed
}

// Compact rewrites the journal keeping only undelivered records, bounding
// journal growth across long sessions.
func (q *DurableLocalQueue) Compact() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tmpPath := q.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create compact journal: %w", err)
	}

	var keepOrder []uuid.UUID
	keep := make(map[uuid.UUID]*models.QueuedRecord)
	for _, id := range q.order {
		rec := q.records[id]
		if rec.State == models.DeliveryDelivered {
			continue
		}
		data, err := json.Marshal(&journalEntry{Op: "enqueue", ID: rec.ID, Record: rec})
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to marshal record during compact: %w", err)
		}
		if _, err := tmp.Write(append(data, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write compact journal: %w", err)
		}
		keep[id] = rec
		keepOrder = append(keepOrder, id)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync compact journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact journal: %w", err)
	}

	if err := q.file.Close(); err != nil {
		return fmt.Errorf("failed to close old journal: %w", err)
	}
	if err := os.Rename(tmpPath, q.path); err != nil {
		return fmt.Errorf("failed to swap compacted journal: %w", err)
	}

	file, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to reopen journal: %w", err)
	}

	q.file = file
	q.records = keep
	q.order = keepOrder
	return nil
}

func (q *DurableLocalQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.file.Close()
}
