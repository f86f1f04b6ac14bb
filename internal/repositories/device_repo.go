package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vikramraju/attendedge/internal/models"
)

type PostgresDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepository(pool *pgxpool.Pool) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{pool: pool}
}

// RecordHeartbeat updates last-seen and health columns for the device,
// auto-registering devices the registry has never seen. Field installs come
// online before anyone files paperwork, so an unknown device is normal.
func (r *PostgresDeviceRepository) RecordHeartbeat(ctx context.Context, deviceID uuid.UUID, metrics models.HealthMetrics, at time.Time) (*models.Device, error) {
	query := `UPDATE edge_devices
	          SET last_heartbeat = $1,
	              status = 'online',
	              cpu_temp_celsius = $2,
	              disk_usage_percent = $3,
	              app_version = COALESCE(NULLIF($4, ''), app_version),
	              updated_at = NOW()
	          WHERE id = $5
	          RETURNING id, name, classroom_id, status, app_version, last_heartbeat, created_at, updated_at`

	var device models.Device
	err := r.pool.QueryRow(ctx, query,
		at,
		metrics.CPUTempCelsius,
		metrics.DiskUsagePercent,
		metrics.AppVersion,
		deviceID,
	).Scan(
		&device.ID,
		&device.Name,
		&device.ClassroomID,
		&device.Status,
		&device.AppVersion,
		&device.LastHeartbeat,
		&device.CreatedAt,
		&device.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return r.register(ctx, deviceID, metrics, at)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) register(ctx context.Context, deviceID uuid.UUID, metrics models.HealthMetrics, at time.Time) (*models.Device, error) {
	name := "EDGE-" + deviceID.String()[:8]

	query := `INSERT INTO edge_devices (id, name, classroom_id, status, last_heartbeat, cpu_temp_celsius, disk_usage_percent, app_version)
	          VALUES ($1, $2, '', 'online', $3, $4, $5, NULLIF($6, ''))
	          RETURNING id, name, classroom_id, status, app_version, last_heartbeat, created_at, updated_at`

	var device models.Device
	err := r.pool.QueryRow(ctx, query,
		deviceID,
		name,
		at,
		metrics.CPUTempCelsius,
		metrics.DiskUsagePercent,
		metrics.AppVersion,
	).Scan(
		&device.ID,
		&device.Name,
		&device.ClassroomID,
		&device.Status,
		&device.AppVersion,
		&device.LastHeartbeat,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-register device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	query := `SELECT id, name, classroom_id, status, app_version, last_heartbeat, created_at, updated_at
	          FROM edge_devices
	          WHERE id = $1`

	var device models.Device
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&device.ID,
		&device.Name,
		&device.ClassroomID,
		&device.Status,
		&device.AppVersion,
		&device.LastHeartbeat,
		&device.CreatedAt,
		&device.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	query := `SELECT id, name, classroom_id, status, app_version, last_heartbeat, created_at, updated_at
	          FROM edge_devices
	          ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var device models.Device
		if err := rows.Scan(
			&device.ID,
			&device.Name,
			&device.ClassroomID,
			&device.Status,
			&device.AppVersion,
			&device.LastHeartbeat,
			&device.CreatedAt,
			&device.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}
	return devices, nil
}

func (r *PostgresDeviceRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE edge_devices
	          SET status = 'offline', updated_at = NOW()
	          WHERE status <> 'offline' AND (last_heartbeat IS NULL OR last_heartbeat < $1)`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale devices offline: %w", err)
	}
	return result.RowsAffected(), nil
}
