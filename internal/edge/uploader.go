package edge

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/models"
)

// AttendanceTransport is the upload call the uploader drives.
type AttendanceTransport interface {
	PostAttendance(ctx context.Context, events []models.AttendanceEvent) error
}

// BatchUploader drains the durable queue in batches on its own goroutine: a
// recurring interval, a queue-depth trigger, or a retry timer after failures.
// The recognition path never waits on it.
type BatchUploader struct {
	queue     *DurableLocalQueue
	transport AttendanceTransport

	batchSize      int
	interval       time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration

	backoff     time.Duration
	nextAttempt time.Time
	notify      chan struct{}
}

func NewBatchUploader(queue *DurableLocalQueue, transport AttendanceTransport, batchSize int, interval, maxBackoff time.Duration) *BatchUploader {
	return &BatchUploader{
		queue:          queue,
		transport:      transport,
		batchSize:      batchSize,
		interval:       interval,
		initialBackoff: 2 * time.Second,
		maxBackoff:     maxBackoff,
		notify:         make(chan struct{}, 1),
	}
}

// Notify nudges the uploader without blocking the caller. The admission path
// calls this when queue depth crosses the batch size.
func (u *BatchUploader) Notify() {
	select {
	case u.notify <- struct{}{}:
	default:
	}
}

// Run uploads until the context is cancelled, then makes one final drain
// attempt so a clean shutdown ships whatever is still queued.
func (u *BatchUploader) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.finalDrain()
			return nil
		case <-ticker.C:
		case <-u.notify:
		}
		u.drain(ctx)
	}
}

// drain uploads batches until the queue is empty, a failure starts a backoff
// period, or the context is cancelled.
func (u *BatchUploader) drain(ctx context.Context) {
	if time.Now().Before(u.nextAttempt) {
		return
	}

	for ctx.Err() == nil {
		batch := u.queue.PeekBatch(u.batchSize)
		if len(batch) == 0 {
			return
		}

		if err := u.uploadBatch(ctx, batch); err != nil {
			u.scheduleRetry(err)
			return
		}
		u.backoff = 0
		u.nextAttempt = time.Time{}
	}
}

func (u *BatchUploader) uploadBatch(ctx context.Context, batch []models.QueuedRecord) error {
	events := make([]models.AttendanceEvent, len(batch))
	ids := make([]uuid.UUID, len(batch))
	for i, rec := range batch {
		events[i] = rec.Event
		ids[i] = rec.ID
	}

	err := u.transport.PostAttendance(ctx, events)
	if err == nil {
		if markErr := u.queue.MarkDelivered(ids); markErr != nil {
			// Upload succeeded but the ack was not journaled; redelivery is
			// safe, the cloud dedups
			log.Printf("uploader: failed to mark batch delivered: %v", markErr)
		}
		log.Printf("uploader: delivered %d record(s)", len(batch))
		return nil
	}

	// A transport failure fails the whole attempt; each record carries its
	// own attempt counter
	for _, id := range ids {
		if markErr := u.queue.MarkFailed(id, err.Error()); markErr != nil {
			log.Printf("uploader: failed to mark record %s failed: %v", id, markErr)
		}
	}

	if errors.Is(err, ErrRejected) {
		log.Printf("uploader: batch rejected as invalid, will not retry past max attempts: %v", err)
	}
	return err
}

func (u *BatchUploader) scheduleRetry(cause error) {
	if u.backoff == 0 {
		u.backoff = u.initialBackoff
	} else {
		u.backoff *= 2
		if u.backoff > u.maxBackoff {
			u.backoff = u.maxBackoff
		}
	}
	u.nextAttempt = time.Now().Add(u.backoff)
	log.Printf("uploader: upload failed (%v), next attempt in %s", cause, u.backoff)

	time.AfterFunc(u.backoff, u.Notify)
}

// finalDrain gives the queue one last chance on shutdown, with its own
// bounded deadline since the run context is already cancelled.
func (u *BatchUploader) finalDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u.nextAttempt = time.Time{}
	u.drain(ctx)
}
