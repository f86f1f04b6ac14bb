package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vikramraju/attendedge/internal/repositories"
)

type ReportsHandler struct {
	attendance repositories.AttendanceRepository
}

func NewReportsHandler(attendance repositories.AttendanceRepository) *ReportsHandler {
	return &ReportsHandler{attendance: attendance}
}

// ByStudent returns the student's most recent attendance rows, optionally
// filtered by course.
func (h *ReportsHandler) ByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	courseID := r.URL.Query().Get("course_id")

	rows, err := h.attendance.GetByStudent(r.Context(), studentID, courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch attendance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id":    studentID,
		"total_records": len(rows),
		"attendance":    rows,
	})
}

// ByCourse returns the per-student presence summary for a course on a given
// date (today when omitted).
func (h *ReportsHandler) ByCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := h.attendance.GetCourseSummary(r.Context(), courseID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch course attendance")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
