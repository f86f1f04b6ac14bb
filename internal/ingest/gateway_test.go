package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

func validBatch(n int) *models.AttendanceBatch {
	records := make([]models.AttendanceEvent, n)
	for i := range records {
		records[i] = models.AttendanceEvent{
			StudentID:  "S001",
			CourseID:   "CS101",
			Timestamp:  time.Now().Add(-time.Minute),
			Confidence: 0.92,
		}
	}
	return &models.AttendanceBatch{DeviceID: "dev-1", Records: records}
}

func TestGateway_AcceptsValidBatch(t *testing.T) {
	queue := NewWorkQueue(4)
	gateway := NewGateway(queue)

	require.NoError(t, gateway.Accept(validBatch(3)))
	assert.Equal(t, 1, queue.Depth(), "batch handed to the work queue")
}

func TestGateway_RejectsEmptyBatch(t *testing.T) {
	gateway := NewGateway(NewWorkQueue(1))

	err := gateway.Accept(&models.AttendanceBatch{DeviceID: "dev-1"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "records", validationErr.Field)
}

func TestGateway_RejectsOversizedBatch(t *testing.T) {
	gateway := NewGateway(NewWorkQueue(1))

	err := gateway.Accept(validBatch(101))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "records", validationErr.Field)
	assert.Contains(t, validationErr.Reason, "max 100")
}

func TestGateway_RejectsMissingStudentID(t *testing.T) {
	gateway := NewGateway(NewWorkQueue(1))

	batch := validBatch(1)
	batch.Records[0].StudentID = ""

	err := gateway.Accept(batch)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "StudentID", validationErr.Field)
}

func TestGateway_RejectsConfidenceOutOfRange(t *testing.T) {
	gateway := NewGateway(NewWorkQueue(1))

	batch := validBatch(1)
	batch.Records[0].Confidence = 1.7

	err := gateway.Accept(batch)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Confidence", validationErr.Field)
}

func TestGateway_RejectsFutureTimestamp(t *testing.T) {
	gateway := NewGateway(NewWorkQueue(1))

	batch := validBatch(2)
	batch.Records[1].Timestamp = time.Now().Add(time.Hour)

	err := gateway.Accept(batch)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "records[1].timestamp", validationErr.Field)
}

func TestGateway_SaturationSignalsRetryLater(t *testing.T) {
	queue := NewWorkQueue(1)
	gateway := NewGateway(queue)

	require.NoError(t, gateway.Accept(validBatch(1)))

	// Queue full: the caller gets a retry-later signal, never a hang; the
	// device's own durable queue still holds the records
	err := gateway.Accept(validBatch(10))
	assert.ErrorIs(t, err, ErrQueueFull)
}
