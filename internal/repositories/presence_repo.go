package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vikramraju/attendedge/internal/models"
)

const (
	presenceKeyPrefix = "presence:"
	// Presence expires after 90 seconds without a heartbeat (3x the default
	// heartbeat interval), so staleness falls out of Redis TTLs
	presenceTTL = 90 * time.Second
)

type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

// SetPresence sets or refreshes the presence for a device with automatic TTL.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.DevicePresence) error {
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	key := presenceKey(presence.DeviceID)
	if err := r.client.Set(ctx, key, data, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, deviceID uuid.UUID) (*models.DevicePresence, error) {
	data, err := r.client.Get(ctx, presenceKey(deviceID)).Result()
	if err == redis.Nil {
		// No presence key = device is offline
		return offlinePresence(deviceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.DevicePresence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

// GetBulkPresence retrieves presence for multiple devices in one round trip.
func (r *RedisPresenceRepository) GetBulkPresence(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]models.DevicePresence, error) {
	if len(deviceIDs) == 0 {
		return make(map[uuid.UUID]models.DevicePresence), nil
	}

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	presenceMap := make(map[uuid.UUID]models.DevicePresence)
	for i, result := range results {
		deviceID := deviceIDs[i]

		data, ok := result.(string)
		if !ok {
			presenceMap[deviceID] = *offlinePresence(deviceID)
			continue
		}

		var presence models.DevicePresence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			presenceMap[deviceID] = *offlinePresence(deviceID)
			continue
		}
		presenceMap[deviceID] = presence
	}
	return presenceMap, nil
}

func offlinePresence(deviceID uuid.UUID) *models.DevicePresence {
	return &models.DevicePresence{
		DeviceID: deviceID,
		Status:   models.DeviceOffline,
		LastSeen: time.Time{}, // Zero time indicates unknown
	}
}

// Helper: build Redis key for presence
func presenceKey(deviceID uuid.UUID) string {
	return presenceKeyPrefix + deviceID.String()
}
