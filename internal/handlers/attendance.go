package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/ingest"
	"github.com/vikramraju/attendedge/internal/models"
)

type AttendanceHandler struct {
	gateway *ingest.Gateway
}

func NewAttendanceHandler(gateway *ingest.Gateway) *AttendanceHandler {
	return &AttendanceHandler{gateway: gateway}
}

// Submit accepts a batch of attendance events from an edge device. A valid
// batch is acknowledged with 202 before anything is persisted; per-record
// outcomes are never confirmed synchronously.
func (h *AttendanceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var batch models.AttendanceBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	// The token, not the payload, decides which device this is
	if deviceID := DeviceIDFromContext(r.Context()); deviceID != uuid.Nil {
		batch.DeviceID = deviceID.String()
	}

	if err := h.gateway.Accept(&batch); err != nil {
		var validationErr *ingest.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, ingest.ErrQueueFull):
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusServiceUnavailable, "ingest queue is saturated, retry later")
		default:
			writeError(w, http.StatusInternalServerError, "failed to accept batch")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, models.BatchResponse{
		Status:          "accepted",
		RecordsReceived: len(batch.Records),
		Message:         fmt.Sprintf("%d attendance records queued for processing", len(batch.Records)),
	})
}
