package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/repositories"
	"github.com/vikramraju/attendedge/internal/services"
)

type DevicesHandler struct {
	registry *services.DeviceRegistry
}

func NewDevicesHandler(registry *services.DeviceRegistry) *DevicesHandler {
	return &DevicesHandler{registry: registry}
}

// List returns every registered device with its live presence, for the
// operator fleet view.
func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.registry.Overview(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch device statuses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_devices": len(statuses),
		"devices":       statuses,
	})
}

// Get returns one device with its live presence.
func (h *DevicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "deviceID must be a UUID")
		return
	}

	status, err := h.registry.Status(r.Context(), deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch device status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
