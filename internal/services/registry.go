package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/models"
	"github.com/vikramraju/attendedge/internal/repositories"
)

// DeviceRegistry tracks device identity and health. Its connectivity view is
// advisory, used for operational alerting; ingestion never consults it, since
// the durability guarantee lives in the edge's own queue.
type DeviceRegistry struct {
	devices           repositories.DeviceRepository
	presence          repositories.PresenceRepository
	heartbeatInterval time.Duration
}

func NewDeviceRegistry(devices repositories.DeviceRepository, presence repositories.PresenceRepository, heartbeatInterval time.Duration) *DeviceRegistry {
	return &DeviceRegistry{
		devices:           devices,
		presence:          presence,
		heartbeatInterval: heartbeatInterval,
	}
}

// Heartbeat records a device check-in: durable last-seen in Postgres, live
// presence with TTL in Redis.
func (r *DeviceRegistry) Heartbeat(ctx context.Context, deviceID uuid.UUID, metrics models.HealthMetrics, at time.Time) (*models.Device, error) {
	device, err := r.devices.RecordHeartbeat(ctx, deviceID, metrics, at)
	if err != nil {
		return nil, err
	}

	presence := &models.DevicePresence{
		DeviceID: deviceID,
		Status:   models.DeviceOnline,
		Metrics:  metrics,
		LastSeen: at,
	}
	if err := r.presence.SetPresence(ctx, presence); err != nil {
		// Postgres already has the heartbeat; a presence miss self-heals on
		// the next check-in
		log.Printf("registry: failed to set presence for %s: %v", deviceID, err)
	}
	return device, nil
}

// DeviceStatus pairs the durable device row with its live presence view.
type DeviceStatus struct {
	Device   models.Device         `json:"device"`
	Presence models.DevicePresence `json:"presence"`
}

// Status returns one device with its live presence. Presence falls back to a
// synthesized offline record when the TTL key has expired.
func (r *DeviceRegistry) Status(ctx context.Context, deviceID uuid.UUID) (*DeviceStatus, error) {
	device, err := r.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	presence, err := r.presence.GetPresence(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return &DeviceStatus{Device: *device, Presence: *presence}, nil
}

// Overview returns every registered device with its live presence, fetched in
// one bulk Redis round trip.
func (r *DeviceRegistry) Overview(ctx context.Context) ([]DeviceStatus, error) {
	devices, err := r.devices.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(devices))
	for i, device := range devices {
		ids[i] = device.ID
	}

	presences, err := r.presence.GetBulkPresence(ctx, ids)
	if err != nil {
		return nil, err
	}

	statuses := make([]DeviceStatus, len(devices))
	for i, device := range devices {
		statuses[i] = DeviceStatus{Device: device, Presence: presences[device.ID]}
	}
	return statuses, nil
}

// StaleTimeout is how long a device may go silent before the sweep marks it
// offline: 3x the expected heartbeat interval.
func (r *DeviceRegistry) StaleTimeout() time.Duration {
	return 3 * r.heartbeatInterval
}

// SweepStale marks devices offline when their last heartbeat is older than
// the stale timeout.
func (r *DeviceRegistry) SweepStale(ctx context.Context, now time.Time) (int64, error) {
	return r.devices.MarkStaleOffline(ctx, now.Add(-r.StaleTimeout()))
}

// RunSweeper runs SweepStale on the heartbeat interval until the context is
// cancelled.
func (r *DeviceRegistry) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			swept, err := r.SweepStale(ctx, now)
			if err != nil {
				log.Printf("registry: sweep failed: %v", err)
				continue
			}
			if swept > 0 {
				log.Printf("registry: marked %d device(s) offline", swept)
			}
		}
	}
}
