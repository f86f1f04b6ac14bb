package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectivityState is the advisory health classification of an edge device.
// It is used for alerting only; ingestion never checks it.
type ConnectivityState string

const (
	DeviceOnline   ConnectivityState = "online"
	DeviceDegraded ConnectivityState = "degraded"
	DeviceOffline  ConnectivityState = "offline"
)

// Device is a registered edge capture device.
type Device struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	ClassroomID   string            `json:"classroom_id"`
	Status        ConnectivityState `json:"status"`
	AppVersion    *string           `json:"app_version,omitempty"`
	LastHeartbeat *time.Time        `json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     *time.Time        `json:"updated_at,omitempty"`
}

// HealthMetrics is the self-reported health payload carried by a heartbeat.
type HealthMetrics struct {
	CPUTempCelsius   *float64 `json:"cpu_temp,omitempty"`
	DiskUsagePercent *float64 `json:"disk_usage,omitempty"`
	QueueDepth       *int     `json:"queue_depth,omitempty"`
	AppVersion       string   `json:"app_version,omitempty"`
	UptimeSeconds    *int64   `json:"uptime_seconds,omitempty"`
}

// DevicePresence is the live last-seen view of a device, kept in Redis with a
// TTL so staleness falls out naturally.
type DevicePresence struct {
	DeviceID uuid.UUID         `json:"device_id"`
	Status   ConnectivityState `json:"status"`
	Metrics  HealthMetrics     `json:"metrics"`
	LastSeen time.Time         `json:"last_seen"`
}

// HeartbeatRequest is the wire payload posted by an edge device.
type HeartbeatRequest struct {
	DeviceID  string        `json:"device_id" validate:"required"`
	Timestamp time.Time     `json:"timestamp" validate:"required"`
	Metrics   HealthMetrics `json:"metrics"`
}

// HeartbeatResponse is the fire-and-forget acknowledgement.
type HeartbeatResponse struct {
	Status     string `json:"status"`
	ServerTime string `json:"server_time"`
	Message    string `json:"message"`
}
