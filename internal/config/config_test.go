package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_FillsUnsetFields(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, DefaultWorkerMaxConcurrent, cfg.Worker.MaxConcurrent)
	assert.Equal(t, DefaultWorkerInvokeTimeout, cfg.Worker.InvokeTimeout)
	assert.Equal(t, DefaultCrossThreshold, cfg.Matcher.CrossThreshold)
	assert.Equal(t, DefaultWithinThreshold, cfg.Matcher.WithinThreshold)
	assert.Equal(t, "csv", cfg.Matcher.RecordSource)
	assert.Equal(t, DefaultTopK, cfg.Knowledge.TopK)
	assert.Equal(t, "memory", cfg.Knowledge.VectorBackend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Server.Port = 9999
	cfg.Matcher.CrossThreshold = 0.8
	cfg.Worker.Runtime = "python3.11"
	ApplyDefaults(&cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 0.8, cfg.Matcher.CrossThreshold)
	assert.Equal(t, "python3.11", cfg.Worker.Runtime)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := func() Config {
		var c Config
		ApplyDefaults(&c)
		return c
	}

	c := base()
	c.Matcher.CrossThreshold = 1.5
	assert.Error(t, c.Validate())

	c = base()
	c.Server.Mode = "staging"
	assert.Error(t, c.Validate())

	c = base()
	c.Knowledge.ChunkOverlap = c.Knowledge.ChunkSize
	assert.Error(t, c.Validate())

	c = base()
	c.Matcher.RecordSource = "sqlite"
	assert.Error(t, c.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8181
  mode: debug
worker:
  max_concurrent: 4
  invoke_timeout: 90s
matcher:
  cross_threshold: 0.6
  within_threshold: 0.25
knowledge:
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 4, cfg.Worker.MaxConcurrent)
	assert.Equal(t, 90*time.Second, cfg.Worker.InvokeTimeout)
	assert.Equal(t, 0.6, cfg.Matcher.CrossThreshold)
	assert.Equal(t, 0.25, cfg.Matcher.WithinThreshold)
	assert.Equal(t, 3, cfg.Knowledge.TopK)

	// Unset sections still get defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EmptyPathFallsBackToEnv(t *testing.T) {
	t.Setenv("CYBERTRACE_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matcher:\n  cross_threshold: 2.0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
