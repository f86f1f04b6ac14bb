package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

func TestWorkQueue_RejectsWhenFull(t *testing.T) {
	queue := NewWorkQueue(2)

	require.NoError(t, queue.Enqueue(&models.AttendanceBatch{DeviceID: "d1"}))
	require.NoError(t, queue.Enqueue(&models.AttendanceBatch{DeviceID: "d2"}))

	// Saturated: shed load instead of blocking
	err := queue.Enqueue(&models.AttendanceBatch{DeviceID: "d3"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, queue.Depth())
}

func TestWorkQueue_DequeueOrder(t *testing.T) {
	queue := NewWorkQueue(4)
	require.NoError(t, queue.Enqueue(&models.AttendanceBatch{DeviceID: "d1"}))
	require.NoError(t, queue.Enqueue(&models.AttendanceBatch{DeviceID: "d2"}))

	ctx := context.Background()
	first, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d1", first.DeviceID)

	second, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d2", second.DeviceID)
}

func TestWorkQueue_DequeueHonorsCancellation(t *testing.T) {
	queue := NewWorkQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
