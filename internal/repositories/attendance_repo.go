package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vikramraju/attendedge/internal/models"
)

// SQLSTATE raised when a row lands outside every partition of a
// range-partitioned table.
const checkViolationCode = "23514"

type StudentAttendanceRow struct {
	Timestamp  time.Time `json:"timestamp"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
}

type CourseStudentStatus struct {
	StudentID  string     `json:"student_id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

type CourseAttendanceSummary struct {
	CourseID             string                `json:"course_id"`
	Date                 string                `json:"date"`
	TotalEnrolled        int                   `json:"total_enrolled"`
	Present              int                   `json:"present"`
	Absent               int                   `json:"absent"`
	AttendancePercentage float64               `json:"attendance_percentage"`
	Students             []CourseStudentStatus `json:"students"`
}

type PostgresAttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAttendanceRepository(pool *pgxpool.Pool) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{pool: pool}
}

// InsertUnlessDuplicate serializes concurrent writers on the (student, course)
// key with a transaction-scoped advisory lock, then checks the duplicate
// window and inserts. Two workers racing on the same key therefore cannot
// both pass the check.
func (r *PostgresAttendanceRepository) InsertUnlessDuplicate(ctx context.Context, event *models.AttendanceEvent, window time.Duration) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lockKey := event.StudentID + ":" + event.CourseID
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return false, fmt.Errorf("failed to acquire dedup lock: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM attendance_logs
		     WHERE student_id = $1 AND course_id = $2
		       AND timestamp BETWEEN $3 AND $4
		 )`,
		event.StudentID,
		event.CourseID,
		event.Timestamp.Add(-window),
		event.Timestamp.Add(window),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate window: %w", err)
	}

	if exists {
		// Idempotent discard, commit releases the lock
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("failed to commit: %w", err)
		}
		return false, nil
	}

	status := event.Status
	if status == "" {
		status = models.StatusPresent
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO attendance_logs
		     (student_id, course_id, classroom_id, device_id, timestamp, confidence_score, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.StudentID,
		event.CourseID,
		event.ClassroomID,
		event.DeviceID,
		event.Timestamp,
		event.Confidence,
		status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolationCode {
			return false, ErrPartitionMissing
		}
		return false, fmt.Errorf("failed to insert attendance event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// EnsurePartitions creates monthly partitions of attendance_logs covering
// [now, now + horizonMonths). Safe to call repeatedly: CREATE TABLE IF NOT
// EXISTS makes each month a no-op once present, and month boundaries can
// never overlap.
func (r *PostgresAttendanceRepository) EnsurePartitions(ctx context.Context, now time.Time, horizonMonths int) error {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < horizonMonths; i++ {
		from := monthStart.AddDate(0, i, 0)
		to := from.AddDate(0, 1, 0)
		name := fmt.Sprintf("attendance_logs_%04d_%02d", from.Year(), int(from.Month()))

		// Partition bounds are DDL, not parameterizable
		stmt := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF attendance_logs
			 FOR VALUES FROM ('%s') TO ('%s')`,
			name,
			from.Format("2006-01-02"),
			to.Format("2006-01-02"),
		)

		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create partition %s: %w", name, err)
		}
	}
	return nil
}

func (r *PostgresAttendanceRepository) GetByStudent(ctx context.Context, studentID, courseID string) ([]StudentAttendanceRow, error) {
	query := `SELECT al.timestamp, al.course_id, c.course_name, al.confidence_score, al.status
	          FROM attendance_logs al
	          JOIN courses c ON al.course_id = c.course_id
	          WHERE al.student_id = $1 AND ($2 = '' OR al.course_id = $2)
	          ORDER BY al.timestamp DESC
	          LIMIT 100`

	rows, err := r.pool.Query(ctx, query, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query student attendance: %w", err)
	}
	defer rows.Close()

	var result []StudentAttendanceRow
	for rows.Next() {
		var row StudentAttendanceRow
		if err := rows.Scan(&row.Timestamp, &row.CourseID, &row.CourseName, &row.Confidence, &row.Status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}
	return result, nil
}

// GetCourseSummary lists every enrolled student for the course with their
// presence status on the given date. A student with no attendance row that
// day is reported absent.
func (r *PostgresAttendanceRepository) GetCourseSummary(ctx context.Context, courseID string, date time.Time) (*CourseAttendanceSummary, error) {
	query := `SELECT s.student_id, s.first_name, s.last_name, al.timestamp, al.confidence_score
	          FROM students s
	          JOIN enrollments e ON s.student_id = e.student_id
	          LEFT JOIN attendance_logs al ON s.student_id = al.student_id
	              AND al.course_id = $1
	              AND DATE(al.timestamp) = $2
	          WHERE e.course_id = $1 AND e.status = 'enrolled'
	          ORDER BY s.last_name, s.first_name`

	rows, err := r.pool.Query(ctx, query, courseID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query course attendance: %w", err)
	}
	defer rows.Close()

	summary := &CourseAttendanceSummary{
		CourseID: courseID,
		Date:     date.Format("2006-01-02"),
	}

	for rows.Next() {
		var (
			studentID, firstName, lastName string
			ts                             *time.Time
			confidence                     *float64
		)
		if err := rows.Scan(&studentID, &firstName, &lastName, &ts, &confidence); err != nil {
			return nil, fmt.Errorf("failed to scan course attendance row: %w", err)
		}

		status := "absent"
		if ts != nil {
			status = "present"
			summary.Present++
		}
		summary.Students = append(summary.Students, CourseStudentStatus{
			StudentID:  studentID,
			Name:       firstName + " " + lastName,
			Status:     status,
			Timestamp:  ts,
			Confidence: confidence,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course attendance rows: %w", err)
	}

	summary.TotalEnrolled = len(summary.Students)
	summary.Absent = summary.TotalEnrolled - summary.Present
	if summary.TotalEnrolled > 0 {
		summary.AttendancePercentage = float64(summary.Present) / float64(summary.TotalEnrolled) * 100
	}
	return summary, nil
}
