package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/vikramraju/attendedge/internal/repositories"
)

type ScheduleHandler struct {
	schedules repositories.ScheduleRepository
}

func NewScheduleHandler(schedules repositories.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Current returns the active class and roster for a room, or 204 when no
// class is scheduled right now. Edge devices poll this on their sync interval.
func (h *ScheduleHandler) Current(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	snapshot, err := h.schedules.GetActiveSchedule(r.Context(), roomID, time.Now())
	if errors.Is(err, repositories.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// Preview returns the room's weekly schedule for operator debugging.
func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	preview, err := h.schedules.GetWeekPreview(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch schedule preview")
		return
	}

	writeJSON(w, http.StatusOK, preview)
}
