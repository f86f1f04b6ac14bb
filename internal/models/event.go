package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the recorded outcome for a student sighting.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
)

// AttendanceEvent is a single recognition result captured at an edge device.
// Immutable once created.
type AttendanceEvent struct {
	StudentID   string           `json:"student_id" validate:"required"`
	CourseID    string           `json:"course_id" validate:"required"`
	ClassroomID string           `json:"classroom_id"`
	DeviceID    string           `json:"device_id"`
	Timestamp   time.Time        `json:"timestamp" validate:"required"`
	Confidence  float64          `json:"confidence" validate:"gte=0,lte=1"`
	Status      AttendanceStatus `json:"status"`
}

// DeliveryState tracks a queued event through the edge upload pipeline.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryInFlight  DeliveryState = "in-flight"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
)

// QueuedRecord wraps an AttendanceEvent while it waits in the edge's durable
// queue. Attempts never exceeds MaxAttempts before the record is marked failed.
type QueuedRecord struct {
	ID          uuid.UUID       `json:"id"`
	Event       AttendanceEvent `json:"event"`
	State       DeliveryState   `json:"state"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// AttendanceBatch is the wire payload uploaded by an edge device.
type AttendanceBatch struct {
	DeviceID string            `json:"device_id" validate:"required"`
	Records  []AttendanceEvent `json:"records" validate:"required,min=1,max=100,dive"`
}

// BatchResponse acknowledges an accepted batch. Acceptance means the batch was
// admitted for asynchronous processing, not that any record was persisted.
type BatchResponse struct {
	Status          string `json:"status"`
	RecordsReceived int    `json:"records_received"`
	Message         string `json:"message"`
}
