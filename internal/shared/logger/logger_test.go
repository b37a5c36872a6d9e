package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"astral-server/internal/shared/config"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelDebug, parseLogLevel("verbose"))
}

func TestNewHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, config.LoggingConfig{Level: "info", JSONFormat: true}))
	log.Debug("hidden")
	log.Info("spawned", "faction", "Pirates")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"faction":"Pirates"`)
}
