package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EdgeConfig configures the edge agent. Devices ship with a provisioning YAML
// file; environment variables override individual fields.
type EdgeConfig struct {
	DeviceID    string `yaml:"device_id"`
	DeviceName  string `yaml:"device_name"`
	ClassroomID string `yaml:"classroom_id"`

	APIBaseURL string `yaml:"api_base_url"`
	APIToken   string `yaml:"api_token"`

	APITimeout        time.Duration `yaml:"api_timeout"`
	SyncInterval      time.Duration `yaml:"sync_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DebounceWindow    time.Duration `yaml:"debounce_window"`
	BatchSize         int           `yaml:"batch_size"`
	BatchInterval     time.Duration `yaml:"batch_interval"`
	MaxUploadBackoff  time.Duration `yaml:"max_upload_backoff"`
	MaxAttempts       int           `yaml:"max_attempts"`

	QueuePath          string  `yaml:"queue_path"`
	MatchThreshold     float64 `yaml:"match_threshold"`
	EmbeddingDimension int     `yaml:"embedding_dimension"`
}

// LoadEdgeConfig reads the YAML file at path (optional, "" skips it), applies
// environment overrides, fills defaults, and validates required fields.
func LoadEdgeConfig(path string) (*EdgeConfig, error) {
	cfg := &EdgeConfig{
		APITimeout:         30 * time.Second,
		SyncInterval:       10 * time.Minute,
		HeartbeatInterval:  30 * time.Second,
		DebounceWindow:     30 * time.Second,
		BatchSize:          10,
		BatchInterval:      60 * time.Second,
		MaxUploadBackoff:   5 * time.Minute,
		MaxAttempts:        5,
		QueuePath:          "./data/attendance_queue.jsonl",
		MatchThreshold:     0.6,
		EmbeddingDimension: 128,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("DEVICE_ID"); v != "" {
		cfg.DeviceID = v
	}
	if v := os.Getenv("DEVICE_NAME"); v != "" {
		cfg.DeviceName = v
	}
	if v := os.Getenv("CLASSROOM_ID"); v != "" {
		cfg.ClassroomID = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("DEBOUNCE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBOUNCE_WINDOW: %q", v)
		}
		cfg.DebounceWindow = d
	}
	if v := os.Getenv("QUEUE_PATH"); v != "" {
		cfg.QueuePath = v
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("device_id is required")
	}
	if cfg.ClassroomID == "" {
		return nil, errors.New("classroom_id is required")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api_base_url is required")
	}
	if cfg.APIToken == "" {
		return nil, errors.New("api_token is required")
	}

	return cfg, nil
}
