package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  backend: memory\n")
	require.NoError(t, loadConfig(path))

	assert.Equal(t, "memory", config.Storage.Backend)
	assert.Equal(t, 5, config.Catalog.CommitMaxRetries)
	assert.Equal(t, 100, config.Catalog.CommitBaseIntervalMs)
	assert.Equal(t, 5000, config.Catalog.CommitMaxIntervalMs)
	assert.InDelta(t, 0.2, config.Catalog.CommitJitter, 0.0001)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 9090, config.Metrics.Port)
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  backend: s3\n")
	err := loadConfig(path)
	assert.ErrorContains(t, err, "storage.s3.bucket")
}

func TestLoadConfigValidatesRetentionSchedule(t *testing.T) {
	path := writeConfigFile(t, "retention:\n  enabled: true\n  schedule: not-a-cron-expr\n")
	err := loadConfig(path)
	assert.ErrorContains(t, err, "retention.schedule")
}

func TestLoadConfigRejectsBadLoggingLevel(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: shout\n")
	err := loadConfig(path)
	assert.ErrorContains(t, err, "logging level")
}

func TestLoadConfigAcceptsValidS3Config(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  backend: s3\n  s3:\n    bucket: my-bucket\n    region: us-east-1\n")
	require.NoError(t, loadConfig(path))
	assert.Equal(t, "my-bucket", config.Storage.S3.Bucket)
}
