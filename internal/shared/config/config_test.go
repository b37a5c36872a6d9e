package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "memory")

	require.NoError(t, Init())
	cfg := GlobalConfig

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "content", cfg.Simulation.ContentDir)
	assert.Equal(t, time.Second, cfg.Simulation.TickInterval)
	assert.True(t, cfg.Simulation.StrictAnchors)
	assert.Equal(t, "autosave", cfg.Simulation.SnapshotName)
	assert.Equal(t, 200, cfg.Messaging.InboxCapacity)
	assert.Error(t, cfg.ValidateServer(), "server requires a JWT secret")
}

func TestInitOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_SQLITE_PATH", "/tmp/astral-test.db")
	t.Setenv("SIM_TICK_INTERVAL", "250ms")
	t.Setenv("SIM_SEED", "99")
	t.Setenv("SIM_STRICT_ANCHORS", "false")
	t.Setenv("LOG_FORMAT", "json")

	require.NoError(t, Init())
	cfg := GlobalConfig

	assert.Equal(t, 250*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, int64(99), cfg.Simulation.Seed)
	assert.False(t, cfg.Simulation.StrictAnchors)
	assert.True(t, cfg.Logging.JSONFormat)
	assert.Equal(t, "/tmp/astral-test.db", cfg.DataSourceName())
	assert.NoError(t, cfg.ValidateServer())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "negative autosave", env: map[string]string{"DB_DRIVER": "memory", "SIM_AUTOSAVE_EVERY_TICKS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := load()
			require.NoError(t, err)
			assert.Error(t, cfg.validate())
		})
	}
}
