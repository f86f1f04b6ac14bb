package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vikramraju/attendedge/internal/models"
)

// ErrRejected means the cloud rejected the payload as structurally invalid.
// Retrying an invalid payload can never succeed.
var ErrRejected = errors.New("payload rejected by cloud")

// ErrRetryLater means the cloud asked us to back off (ingest queue full).
var ErrRetryLater = errors.New("cloud asked to retry later")

// CloudClient talks to the cloud API with bounded timeouts and a device
// bearer token.
type CloudClient struct {
	baseURL  string
	token    string
	deviceID string
	client   *http.Client
}

func NewCloudClient(baseURL, token, deviceID string, timeout time.Duration) *CloudClient {
	return &CloudClient{
		baseURL:  baseURL,
		token:    token,
		deviceID: deviceID,
		client:   &http.Client{Timeout: timeout},
	}
}

// FetchSchedule returns the active class and roster for the room, or nil when
// no class is scheduled (204 from the cloud).
func (c *CloudClient) FetchSchedule(ctx context.Context, roomID string) (*models.ScheduleSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/schedule?room_id=%s", c.baseURL, roomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schedule request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var snapshot models.ScheduleSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode schedule: %w", err)
		}
		snapshot.FetchedAt = time.Now()
		return &snapshot, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("schedule request returned status %d", resp.StatusCode)
	}
}

// PostAttendance uploads a batch of events. A 202 means the whole batch was
// admitted; a 400 is permanent and must not be retried; a 503 means back off.
func (c *CloudClient) PostAttendance(ctx context.Context, events []models.AttendanceEvent) error {
	payload := models.AttendanceBatch{
		DeviceID: c.deviceID,
		Records:  events,
	}

	resp, err := c.postJSON(ctx, "/api/v1/attendance", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s", ErrRejected, string(body))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return ErrRetryLater
	default:
		return fmt.Errorf("attendance upload returned status %d", resp.StatusCode)
	}
}

// PostHeartbeat is fire-and-forget; any response except success is just an
// error for the caller to log.
func (c *CloudClient) PostHeartbeat(ctx context.Context, metrics models.HealthMetrics) error {
	payload := models.HeartbeatRequest{
		DeviceID:  c.deviceID,
		Timestamp: time.Now().UTC(),
		Metrics:   metrics,
	}

	resp, err := c.postJSON(ctx, "/api/v1/heartbeat", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *CloudClient) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (c *CloudClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "attendedge-edge/"+c.deviceID)
}
