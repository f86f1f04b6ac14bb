package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadEdgeConfig_FileWithDefaults(t *testing.T) {
	path := writeConfigFile(t, `
device_id: dev-12
classroom_id: room-12
api_base_url: http://cloud.example:8080
api_token: tok-abc
`)

	cfg, err := LoadEdgeConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dev-12", cfg.DeviceID)
	assert.Equal(t, "room-12", cfg.ClassroomID)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.DebounceWindow)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 0.6, cfg.MatchThreshold)
	assert.Equal(t, 128, cfg.EmbeddingDimension)
}

func TestLoadEdgeConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
device_id: dev-12
classroom_id: room-12
api_base_url: http://cloud.example:8080
api_token: tok-abc
debounce_window: 30s
`)

	t.Setenv("DEVICE_ID", "dev-99")
	t.Setenv("DEBOUNCE_WINDOW", "45s")

	cfg, err := LoadEdgeConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dev-99", cfg.DeviceID)
	assert.Equal(t, 45*time.Second, cfg.DebounceWindow)
	assert.Equal(t, "room-12", cfg.ClassroomID, "file value kept where env is unset")
}

func TestLoadEdgeConfig_MissingRequiredField(t *testing.T) {
	path := writeConfigFile(t, `
device_id: dev-12
api_base_url: http://cloud.example:8080
api_token: tok-abc
`)

	_, err := LoadEdgeConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classroom_id")
}

func TestLoadEdgeConfig_BadDurationEnv(t *testing.T) {
	path := writeConfigFile(t, `
device_id: dev-12
classroom_id: room-12
api_base_url: http://cloud.example:8080
api_token: tok-abc
`)

	t.Setenv("DEBOUNCE_WINDOW", "soon")

	_, err := LoadEdgeConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEBOUNCE_WINDOW")
}
