package edge

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

type fakeTransport struct {
	mu      sync.Mutex
	err     error
	batches [][]models.AttendanceEvent
}

func (f *fakeTransport) PostAttendance(ctx context.Context, events []models.AttendanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copied := make([]models.AttendanceEvent, len(events))
	copy(copied, events)
	f.batches = append(f.batches, copied)
	return nil
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTransport) delivered() [][]models.AttendanceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func newTestUploader(t *testing.T, transport AttendanceTransport, maxAttempts int) (*BatchUploader, *DurableLocalQueue) {
	t.Helper()
	queue, err := OpenDurableLocalQueue(filepath.Join(t.TempDir(), "queue.jsonl"), maxAttempts)
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	uploader := NewBatchUploader(queue, transport, 10, time.Minute, time.Minute)
	return uploader, queue
}

func TestBatchUploader_DeliversWholeBatch(t *testing.T) {
	transport := &fakeTransport{}
	uploader, queue := newTestUploader(t, transport, 3)

	for _, student := range []string{"S001", "S002", "S003"} {
		_, err := queue.Enqueue(testEvent(student))
		require.NoError(t, err)
	}

	uploader.drain(context.Background())

	batches := transport.delivered()
	require.Len(t, batches, 1, "three events fit one batch")
	assert.Len(t, batches[0], 3)
	assert.Equal(t, 0, queue.Depth())
}

func TestBatchUploader_OfflineThenRecovered(t *testing.T) {
	// Device queues events while offline, then connectivity returns and one
	// batch carries everything
	transport := &fakeTransport{}
	transport.setErr(errors.New("network is unreachable"))
	uploader, queue := newTestUploader(t, transport, 5)

	for _, student := range []string{"S001", "S002", "S003"} {
		_, err := queue.Enqueue(testEvent(student))
		require.NoError(t, err)
	}

	uploader.drain(context.Background())
	assert.Empty(t, transport.delivered())
	assert.Equal(t, 3, queue.Depth(), "failed records requeued, nothing lost")

	// Connectivity restored; backoff window forced open for the test
	transport.setErr(nil)
	uploader.nextAttempt = time.Time{}
	uploader.drain(context.Background())

	batches := transport.delivered()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, 0, queue.Depth())
}

func TestBatchUploader_FailureStartsBackoff(t *testing.T) {
	transport := &fakeTransport{}
	transport.setErr(errors.New("timeout"))
	uploader, queue := newTestUploader(t, transport, 5)

	_, err := queue.Enqueue(testEvent("S001"))
	require.NoError(t, err)

	uploader.drain(context.Background())
	firstBackoff := uploader.backoff
	assert.Equal(t, uploader.initialBackoff, firstBackoff)
	assert.True(t, uploader.nextAttempt.After(time.Now()))

	// While the backoff window is open, drain is a no-op
	uploader.drain(context.Background())
	assert.Empty(t, transport.delivered())

	// The next real failure doubles the backoff
	uploader.nextAttempt = time.Time{}
	uploader.drain(context.Background())
	assert.Equal(t, 2*firstBackoff, uploader.backoff)
}

func TestBatchUploader_BackoffCappedAtMax(t *testing.T) {
	transport := &fakeTransport{}
	transport.setErr(errors.New("timeout"))
	uploader, queue := newTestUploader(t, transport, 100)
	uploader.maxBackoff = 5 * time.Second

	_, err := queue.Enqueue(testEvent("S001"))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		uploader.nextAttempt = time.Time{}
		uploader.drain(context.Background())
	}
	assert.Equal(t, 5*time.Second, uploader.backoff)
}

func TestBatchUploader_ExhaustedRecordsLeaveTheQueue(t *testing.T) {
	transport := &fakeTransport{}
	transport.setErr(ErrRejected)
	uploader, queue := newTestUploader(t, transport, 2)

	_, err := queue.Enqueue(testEvent("S001"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		uploader.nextAttempt = time.Time{}
		uploader.drain(context.Background())
	}

	assert.Equal(t, 0, queue.Depth())
	require.Len(t, queue.FailedRecords(), 1, "permanently failed record kept for audit")
}
