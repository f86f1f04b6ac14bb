package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/vikramraju/attendedge/internal/models"
)

type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

// GetActiveSchedule resolves the class scheduled in the room at the given
// instant and loads the roster of enrolled, active students that have a face
// embedding on file. Returns ErrNotFound when no class is active.
func (r *PostgresScheduleRepository) GetActiveSchedule(ctx context.Context, roomID string, at time.Time) (*models.ScheduleSnapshot, error) {
	query := `SELECT s.schedule_id, s.course_id, c.course_code, c.course_name,
	                 s.start_time, s.end_time, s.classroom_id
	          FROM schedules s
	          JOIN courses c ON s.course_id = c.course_id
	          WHERE s.classroom_id = $1
	            AND s.is_active = TRUE
	            AND c.is_active = TRUE
	            AND s.day_of_week = $2
	            AND $3::time BETWEEN s.start_time AND s.end_time
	            AND $4::date BETWEEN s.effective_from AND s.effective_to
	          LIMIT 1`

	// Schedules store Monday as day 0
	dayOfWeek := (int(at.Weekday()) + 6) % 7

	var (
		snapshot  models.ScheduleSnapshot
		startTime time.Time
		endTime   time.Time
	)
	err := r.pool.QueryRow(ctx, query,
		roomID,
		dayOfWeek,
		at.Format("15:04:05"),
		at.Format("2006-01-02"),
	).Scan(
		&snapshot.ScheduleID,
		&snapshot.CourseID,
		&snapshot.CourseCode,
		&snapshot.CourseName,
		&startTime,
		&endTime,
		&snapshot.ClassroomID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active schedule: %w", err)
	}

	snapshot.StartTime = startTime.Format("15:04:05")
	snapshot.EndTime = endTime.Format("15:04:05")
	snapshot.FetchedAt = at

	roster, err := r.loadRoster(ctx, snapshot.CourseID)
	if err != nil {
		return nil, err
	}
	snapshot.Roster = roster
	return &snapshot, nil
}

func (r *PostgresScheduleRepository) loadRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	query := `SELECT DISTINCT s.student_id, s.first_name, s.last_name, s.face_embedding
	          FROM students s
	          JOIN enrollments e ON s.student_id = e.student_id
	          WHERE e.course_id = $1
	            AND e.status = 'enrolled'
	            AND s.status = 'active'
	            AND s.face_embedding IS NOT NULL
	          ORDER BY s.student_id`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var roster []models.RosterEntry
	for rows.Next() {
		var (
			studentID, firstName, lastName string
			embedding                      pgvector.Vector
		)
		if err := rows.Scan(&studentID, &firstName, &lastName, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		roster = append(roster, models.RosterEntry{
			StudentID: studentID,
			Name:      firstName + " " + lastName,
			Embedding: embedding.Slice(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster: %w", err)
	}
	return roster, nil
}

// GetWeekPreview returns the room's weekly schedule with enrolled counts, for
// operator debugging.
func (r *PostgresScheduleRepository) GetWeekPreview(ctx context.Context, roomID string) ([]models.SchedulePreviewEntry, error) {
	query := `SELECT s.day_of_week, s.start_time, s.end_time,
	                 c.course_code, c.course_name,
	                 COUNT(DISTINCT e.student_id) AS enrolled_count
	          FROM schedules s
	          JOIN courses c ON s.course_id = c.course_id
	          LEFT JOIN enrollments e ON c.course_id = e.course_id AND e.status = 'enrolled'
	          WHERE s.classroom_id = $1
	            AND s.is_active = TRUE
	            AND c.is_active = TRUE
	            AND CURRENT_DATE BETWEEN s.effective_from AND s.effective_to
	          GROUP BY s.day_of_week, s.start_time, s.end_time, c.course_code, c.course_name
	          ORDER BY s.day_of_week, s.start_time`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule preview: %w", err)
	}
	defer rows.Close()

	dayNames := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

	var preview []models.SchedulePreviewEntry
	for rows.Next() {
		var (
			dayOfWeek          int
			startTime, endTime time.Time
			code, name         string
			enrolled           int
		)
		if err := rows.Scan(&dayOfWeek, &startTime, &endTime, &code, &name, &enrolled); err != nil {
			return nil, fmt.Errorf("failed to scan preview row: %w", err)
		}
		preview = append(preview, models.SchedulePreviewEntry{
			Day:           dayNames[dayOfWeek],
			StartTime:     startTime.Format("15:04:05"),
			EndTime:       endTime.Format("15:04:05"),
			Course:        code + " - " + name,
			EnrolledCount: enrolled,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preview rows: %w", err)
	}
	return preview, nil
}
