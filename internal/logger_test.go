package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "info")

	logger.Debug("hidden")
	logger.Info("quote computed", "product_id", "fp-001")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "quote computed", entry["msg"])
	assert.Equal(t, "fp-001", entry["product_id"])
	assert.Equal(t, "monfournisseur", entry["service"])
}

func TestNewLogger_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "development", "debug")

	logger.Debug("starting")

	assert.Contains(t, buf.String(), "msg=starting")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
