package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vikramraju/attendedge/internal/models"
)

// Timestamps further ahead of server time than this are structurally invalid
const maxClockSkew = 5 * time.Minute

// ValidationError names the first violated field of a rejected batch.
// Validation failures are user-correctable and rejected synchronously.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// Gateway accepts attendance batches from edge devices. Validation is purely
// structural; a valid batch is handed to the work queue and acknowledged
// without waiting for persistence.
type Gateway struct {
	queue    *WorkQueue
	validate *validator.Validate
	now      func() time.Time
}

func NewGateway(queue *WorkQueue) *Gateway {
	return &Gateway{
		queue:    queue,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Accept validates the batch and enqueues it for asynchronous processing.
// Returns *ValidationError for structurally invalid input and ErrQueueFull
// when the work queue is saturated.
func (g *Gateway) Accept(batch *models.AttendanceBatch) error {
	if err := g.validateBatch(batch); err != nil {
		return err
	}
	return g.queue.Enqueue(batch)
}

func (g *Gateway) validateBatch(batch *models.AttendanceBatch) error {
	if len(batch.Records) == 0 {
		return &ValidationError{Field: "records", Reason: "no records provided"}
	}
	if len(batch.Records) > 100 {
		return &ValidationError{Field: "records", Reason: "batch size too large (max 100)"}
	}

	if err := g.validate.Struct(batch); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return &ValidationError{Field: "batch", Reason: "malformed payload"}
		}
		for _, fieldErr := range err.(validator.ValidationErrors) {
			return &ValidationError{
				Field:  fieldErr.Field(),
				Reason: fmt.Sprintf("failed %s constraint", fieldErr.Tag()),
			}
		}
	}

	horizon := g.now().Add(maxClockSkew)
	for i, record := range batch.Records {
		if record.Timestamp.After(horizon) {
			return &ValidationError{
				Field:  fmt.Sprintf("records[%d].timestamp", i),
				Reason: "timestamp is in the future",
			}
		}
	}
	return nil
}
