package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vikramraju/attendedge/internal/models"
)

// PostgresDeadLetterRepository holds events that permanently failed ingest
// processing, for manual review. Nothing reads this table on the hot path.
type PostgresDeadLetterRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeadLetterRepository(pool *pgxpool.Pool) *PostgresDeadLetterRepository {
	return &PostgresDeadLetterRepository{pool: pool}
}

func (r *PostgresDeadLetterRepository) Record(ctx context.Context, event *models.AttendanceEvent, reason string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter payload: %w", err)
	}

	query := `INSERT INTO attendance_dead_letters (student_id, course_id, device_id, payload, reason)
	          VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, event.StudentID, event.CourseID, event.DeviceID, payload, reason); err != nil {
		return fmt.Errorf("failed to record dead letter: %w", err)
	}
	return nil
}

func (r *PostgresDeadLetterRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_dead_letters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return n, nil
}
