package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := write(t, `
runtime:
  frame_rate: 30
  tracing: true
compiler:
  constant_folding: true
store:
  backend: redis
  redis_addr: localhost:6379
  ttl: 1h
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Runtime.FrameRate)
	assert.Equal(t, 1024, cfg.Runtime.MaxNodesPerFrame, "unset keys keep their default")
	assert.True(t, cfg.Runtime.Tracing)
	assert.True(t, cfg.Compiler.ConstantFolding)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "runtime: [", "failed to parse"},
		{"backend", "store: {backend: s3}", "unknown store backend"},
		{"redis addr", "store: {backend: redis}", "redis_addr"},
		{"rate", "runtime: {frame_rate: -1}", "frame_rate"},
		{"level", "log_level: loud", "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
