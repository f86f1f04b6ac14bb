package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vikramraju/attendedge/internal/models"
)

func TestRecordHeartbeat_AutoRegistersUnknownDevice(t *testing.T) {
	repo := NewPostgresDeviceRepository(getTestPool(t))
	ctx := context.Background()

	deviceID := uuid.New()
	temp := 51.2
	device, err := repo.RecordHeartbeat(ctx, deviceID, models.HealthMetrics{CPUTempCelsius: &temp}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, deviceID, device.ID)
	assert.Equal(t, models.DeviceOnline, device.Status)
	require.NotNil(t, device.LastHeartbeat)

	fetched, err := repo.GetByID(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, device.Name, fetched.Name)
}

func TestMarkStaleOffline_FlipsOnlySilentDevices(t *testing.T) {
	repo := NewPostgresDeviceRepository(getTestPool(t))
	ctx := context.Background()

	now := time.Now()
	staleID := uuid.New()
	freshID := uuid.New()

	_, err := repo.RecordHeartbeat(ctx, staleID, models.HealthMetrics{}, now.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = repo.RecordHeartbeat(ctx, freshID, models.HealthMetrics{}, now)
	require.NoError(t, err)

	n, err := repo.MarkStaleOffline(ctx, now.Add(-90*time.Second))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	stale, err := repo.GetByID(ctx, staleID)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceOffline, stale.Status)

	fresh, err := repo.GetByID(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceOnline, fresh.Status)
}

func TestList_IncludesRegisteredDevices(t *testing.T) {
	repo := NewPostgresDeviceRepository(getTestPool(t))
	ctx := context.Background()

	deviceID := uuid.New()
	_, err := repo.RecordHeartbeat(ctx, deviceID, models.HealthMetrics{}, time.Now())
	require.NoError(t, err)

	devices, err := repo.List(ctx)
	require.NoError(t, err)

	found := false
	for _, device := range devices {
		if device.ID == deviceID {
			found = true
		}
	}
	assert.True(t, found, "freshly registered device appears in the list")
}

func TestGetByID_UnknownDevice(t *testing.T) {
	repo := NewPostgresDeviceRepository(getTestPool(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
