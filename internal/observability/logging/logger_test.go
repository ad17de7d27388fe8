package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "docsearch", "info", "json")

	logger.Debug("hidden")
	logger.Info("indexed", slog.Int("documents", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "indexed", entry["msg"])
	assert.Equal(t, "docsearch", entry["service"])
	assert.Equal(t, float64(3), entry["documents"])
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "docsearch", "debug", "text")

	logger.Debug("search completed")
	assert.Contains(t, buf.String(), "msg=\"search completed\"")
	assert.Contains(t, buf.String(), "service=docsearch")
}
