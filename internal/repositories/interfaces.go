package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/models"
)

type AttendanceRepository interface {
	// InsertUnlessDuplicate writes the event unless another event for the same
	// (student, course) already exists within +/- window of its timestamp.
	// Returns false with a nil error on a duplicate; redelivery is expected
	// under at-least-once semantics and is not an error.
	InsertUnlessDuplicate(ctx context.Context, event *models.AttendanceEvent, window time.Duration) (bool, error)

	// EnsurePartitions idempotently creates monthly partitions covering
	// [now, now + horizonMonths).
	EnsurePartitions(ctx context.Context, now time.Time, horizonMonths int) error

	GetByStudent(ctx context.Context, studentID, courseID string) ([]StudentAttendanceRow, error)
	GetCourseSummary(ctx context.Context, courseID string, date time.Time) (*CourseAttendanceSummary, error)
}

type DeadLetterRepository interface {
	Record(ctx context.Context, event *models.AttendanceEvent, reason string) error
	Count(ctx context.Context) (int64, error)
}

type ScheduleRepository interface {
	// GetActiveSchedule resolves the class scheduled in room at the given
	// instant, with the roster of enrolled students holding face embeddings.
	// Returns ErrNotFound when no class is active.
	GetActiveSchedule(ctx context.Context, roomID string, at time.Time) (*models.ScheduleSnapshot, error)
	GetWeekPreview(ctx context.Context, roomID string) ([]models.SchedulePreviewEntry, error)
}

type DeviceRepository interface {
	// RecordHeartbeat updates last-seen and health columns, auto-registering
	// unknown devices. Returns the stored device.
	RecordHeartbeat(ctx context.Context, deviceID uuid.UUID, metrics models.HealthMetrics, at time.Time) (*models.Device, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
	// MarkStaleOffline flips devices with no heartbeat since the cutoff to
	// offline. Returns the number of devices transitioned.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.DevicePresence) error
	GetPresence(ctx context.Context, deviceID uuid.UUID) (*models.DevicePresence, error)
	GetBulkPresence(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]models.DevicePresence, error)
}
