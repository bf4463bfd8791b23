package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.World.TickInterval())
	assert.Equal(t, 5*time.Minute, cfg.World.AutosaveInterval())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Storage.Placements)
	assert.Equal(t, 256, cfg.Sync.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Storage.Redis.TTL())
}

func TestRedisTTLWithoutExpiry(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  redis:\n    ttl_seconds: -1\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Storage.Redis.TTL())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  rest_port: 9000
world:
  maps: [1, 3]
  tick_ms: 100
storage:
  backend: badger
  placements: redis
  redis:
    addr: redis:6379
    ttl_seconds: 60
eventbus:
  url: nats://localhost:4222
`))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.Equal(t, []uint32{1, 3}, cfg.World.Maps)
	assert.Equal(t, 100*time.Millisecond, cfg.World.TickInterval())
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 60*time.Second, cfg.Storage.Redis.TTL())
	assert.Equal(t, "BUBBLE_EVENTS", cfg.EventBus.Stream, "умолчание для незаданного поля")
}

func TestParseRejectsUnknownBackends(t *testing.T) {
	_, err := Parse([]byte("storage:\n  backend: s3\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("storage:\n  placements: maria\n"))
	assert.Error(t, err, "нужен maria_dsn")
	_, err = Parse([]byte("storage:\n  placements: tiered\n"))
	assert.Error(t, err, "нужен maria_dsn")
	cfg, err := Parse([]byte("storage:\n  placements: tiered\n  maria_dsn: user@/db\n"))
	require.NoError(t, err)
	assert.Equal(t, "tiered", cfg.Storage.Placements)

	_, err = Parse([]byte("storage: [\n"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  tick_ms: 20\n"), 0644))

	t.Setenv("BW_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.World.TickMs)

	t.Setenv("BW_CONFIG", "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.World.TickMs)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPortFallbacks(t *testing.T) {
	var s ServerConfig
	t.Setenv("BW_REST_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("BW_REST_PORT", "9100")
	assert.Equal(t, 9100, s.GetRESTPort())

	t.Setenv("BW_METRICS_PORT", "not-a-port")
	assert.Equal(t, 2112, s.GetMetricsPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort(), "значение из конфига важнее env")
}
