package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/models"
	"github.com/vikramraju/attendedge/internal/services"
)

type HeartbeatHandler struct {
	registry *services.DeviceRegistry
}

func NewHeartbeatHandler(registry *services.DeviceRegistry) *HeartbeatHandler {
	return &HeartbeatHandler{registry: registry}
}

// Receive records a device heartbeat. The acknowledgement is fire-and-forget;
// devices do not act on its contents.
func (h *HeartbeatHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req models.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	deviceID := DeviceIDFromContext(r.Context())
	if deviceID == uuid.Nil {
		parsed, err := uuid.Parse(req.DeviceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "device_id must be a UUID")
			return
		}
		deviceID = parsed
	}

	at := req.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	if _, err := h.registry.Heartbeat(r.Context(), deviceID, req.Metrics, at); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process heartbeat")
		return
	}

	writeJSON(w, http.StatusOK, models.HeartbeatResponse{
		Status:     "acknowledged",
		ServerTime: time.Now().UTC().Format(time.RFC3339),
		Message:    "Heartbeat received",
	})
}
