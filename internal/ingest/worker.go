package ingest

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/vikramraju/attendedge/internal/models"
	"github.com/vikramraju/attendedge/internal/repositories"
)

// Worker consumes accepted batches from the work queue and persists their
// events. Duplicate suppression happens here, not at the gateway: redelivery
// is expected under at-least-once upload semantics, so a duplicate is an
// idempotent no-op rather than an error.
type Worker struct {
	queue       *WorkQueue
	store       repositories.AttendanceRepository
	deadLetters repositories.DeadLetterRepository
	dedupWindow time.Duration
	maxAttempts int
	retryDelay  time.Duration

	persisted atomic.Int64
	discarded atomic.Int64
	deadends  atomic.Int64
}

func NewWorker(queue *WorkQueue, store repositories.AttendanceRepository, deadLetters repositories.DeadLetterRepository, dedupWindow time.Duration, maxAttempts int) *Worker {
	return &Worker{
		queue:       queue,
		store:       store,
		deadLetters: deadLetters,
		dedupWindow: dedupWindow,
		maxAttempts: maxAttempts,
		retryDelay:  time.Second,
	}
}

// Run processes batches until the context is cancelled. Multiple workers may
// run concurrently; the store serializes writers per (student, course) key,
// which is the only cross-worker coordination required.
func (w *Worker) Run(ctx context.Context) error {
	for {
		batch, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		w.processBatch(ctx, batch)
	}
}

// processBatch handles events strictly in submission order, so an earlier
// event in the batch can suppress a later duplicate.
func (w *Worker) processBatch(ctx context.Context, batch *models.AttendanceBatch) {
	for i := range batch.Records {
		event := batch.Records[i]
		if event.DeviceID == "" {
			event.DeviceID = batch.DeviceID
		}
		w.processEvent(ctx, &event)
	}
}

func (w *Worker) processEvent(ctx context.Context, event *models.AttendanceEvent) {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		inserted, err := w.store.InsertUnlessDuplicate(ctx, event, w.dedupWindow)
		if err == nil {
			if inserted {
				w.persisted.Add(1)
			} else {
				w.discarded.Add(1)
			}
			return
		}

		if errors.Is(err, repositories.ErrPartitionMissing) {
			// Fatal for this event, retrying cannot help
			w.toDeadLetter(ctx, event, err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		lastErr = err
		log.Printf("ingest: attempt %d/%d failed for student %s: %v", attempt, w.maxAttempts, event.StudentID, err)

		if attempt < w.maxAttempts {
			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	w.toDeadLetter(ctx, event, lastErr)
}

func (w *Worker) toDeadLetter(ctx context.Context, event *models.AttendanceEvent, cause error) {
	w.deadends.Add(1)
	if err := w.deadLetters.Record(ctx, event, cause.Error()); err != nil {
		// Last resort is the log; the worker must keep going either way
		log.Printf("ingest: failed to dead-letter event for student %s: %v (original: %v)", event.StudentID, err, cause)
	}
}

// Stats reports lifetime counters for observability endpoints and tests.
func (w *Worker) Stats() (persisted, discarded, deadLettered int64) {
	return w.persisted.Load(), w.discarded.Load(), w.deadends.Load()
}
