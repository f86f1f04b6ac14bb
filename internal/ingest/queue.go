package ingest

import (
	"context"
	"errors"

	"github.com/vikramraju/attendedge/internal/models"
)

// ErrQueueFull signals that the internal work queue is saturated. Callers map
// it to a retry-later response; the edge device keeps the batch in its own
// durable queue, so nothing is lost.
var ErrQueueFull = errors.New("ingest queue is full")

// WorkQueue is the bounded buffer between the ingestion gateway and the
// async workers. Enqueue never blocks: when the queue is saturated the
// gateway must shed load instead of buffering without bound.
type WorkQueue struct {
	ch chan *models.AttendanceBatch
}

func NewWorkQueue(capacity int) *WorkQueue {
	return &WorkQueue{ch: make(chan *models.AttendanceBatch, capacity)}
}

func (q *WorkQueue) Enqueue(batch *models.AttendanceBatch) error {
	select {
	case q.ch <- batch:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a batch is available or the context is cancelled.
func (q *WorkQueue) Dequeue(ctx context.Context) (*models.AttendanceBatch, error) {
	select {
	case batch := <-q.ch:
		return batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *WorkQueue) Depth() int {
	return len(q.ch)
}
