package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

// getTestPool connects to the database named by TEST_DATABASE_URL, which must
// already have the migrations applied. Tests are skipped when it is unset.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// uniqueEvent builds an event with IDs no other test run can collide with.
func uniqueEvent(ts time.Time) *models.AttendanceEvent {
	return &models.AttendanceEvent{
		StudentID:   "test-s-" + uuid.NewString(),
		CourseID:    "test-c-" + uuid.NewString(),
		ClassroomID: "test-room",
		DeviceID:    "test-dev",
		Timestamp:   ts,
		Confidence:  0.91,
	}
}

func TestEnsurePartitions_Idempotent(t *testing.T) {
	repo := NewPostgresAttendanceRepository(getTestPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.EnsurePartitions(ctx, now, 3))
	require.NoError(t, repo.EnsurePartitions(ctx, now, 3), "second run is a no-op")
}

func TestInsertUnlessDuplicate_WindowSemantics(t *testing.T) {
	repo := NewPostgresAttendanceRepository(getTestPool(t))
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.EnsurePartitions(ctx, now, 2))

	event := uniqueEvent(now)
	window := 30 * time.Second

	inserted, err := repo.InsertUnlessDuplicate(ctx, event, window)
	require.NoError(t, err)
	assert.True(t, inserted, "first sighting persists")

	dup := *event
	dup.Timestamp = now.Add(10 * time.Second)
	inserted, err = repo.InsertUnlessDuplicate(ctx, &dup, window)
	require.NoError(t, err)
	assert.False(t, inserted, "sighting inside the window is discarded")

	later := *event
	later.Timestamp = now.Add(5 * time.Minute)
	inserted, err = repo.InsertUnlessDuplicate(ctx, &later, window)
	require.NoError(t, err)
	assert.True(t, inserted, "sighting outside the window persists")
}

func TestInsertUnlessDuplicate_IndependentKeys(t *testing.T) {
	repo := NewPostgresAttendanceRepository(getTestPool(t))
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.EnsurePartitions(ctx, now, 2))

	first := uniqueEvent(now)
	second := uniqueEvent(now)
	window := 30 * time.Second

	inserted, err := repo.InsertUnlessDuplicate(ctx, first, window)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertUnlessDuplicate(ctx, second, window)
	require.NoError(t, err)
	assert.True(t, inserted, "a different (student, course) key is not a duplicate")
}

func TestInsertUnlessDuplicate_MissingPartition(t *testing.T) {
	repo := NewPostgresAttendanceRepository(getTestPool(t))
	ctx := context.Background()

	// A timestamp far in the past has no partition
	event := uniqueEvent(time.Date(1999, 1, 15, 9, 0, 0, 0, time.UTC))

	_, err := repo.InsertUnlessDuplicate(ctx, event, 30*time.Second)
	assert.ErrorIs(t, err, ErrPartitionMissing)
}
