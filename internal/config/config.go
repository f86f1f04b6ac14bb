package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type ServerConfig struct {
	ServerPort        string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	IngestQueueSize   int
	IngestWorkers     int
	IngestMaxAttempts int
	DedupWindow       time.Duration
	HeartbeatInterval time.Duration
	PartitionHorizon  int // months of partitions kept ahead of now
	PartitionSweep    time.Duration
}

func LoadServerConfig() (*ServerConfig, error) {
	queueSize, err := getEnvInt("INGEST_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("INGEST_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getEnvInt("INGEST_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	dedupWindow, err := getEnvDuration("DEDUP_WINDOW", 30*time.Second)
	if err != nil {
		return nil, err
	}
	heartbeatInterval, err := getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	horizon, err := getEnvInt("PARTITION_HORIZON_MONTHS", 3)
	if err != nil {
		return nil, err
	}
	partitionSweep, err := getEnvDuration("PARTITION_SWEEP_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		IngestQueueSize:   queueSize,
		IngestWorkers:     workers,
		IngestMaxAttempts: maxAttempts,
		DedupWindow:       dedupWindow,
		HeartbeatInterval: heartbeatInterval,
		PartitionHorizon:  horizon,
		PartitionSweep:    partitionSweep,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return d, nil
}
