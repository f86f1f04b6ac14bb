package models

import "time"

// RosterEntry is one enrolled student with their face embedding. The embedding
// is opaque to this system beyond its fixed dimensionality.
type RosterEntry struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// ScheduleSnapshot is the active class for a room together with its roster.
// Owned by the edge process and replaced atomically on refresh; readers never
// see a partially built roster.
type ScheduleSnapshot struct {
	ScheduleID  string        `json:"schedule_id"`
	CourseID    string        `json:"course_id"`
	CourseCode  string        `json:"course_code"`
	CourseName  string        `json:"course_name"`
	ClassroomID string        `json:"classroom_id"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	Roster      []RosterEntry `json:"roster"`
	FetchedAt   time.Time     `json:"-"`
}

// SchedulePreviewEntry is one slot in a room's weekly schedule preview.
type SchedulePreviewEntry struct {
	Day           string `json:"day"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Course        string `json:"course"`
	EnrolledCount int    `json:"enrolled_students"`
}
