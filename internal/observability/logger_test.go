package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggingConfig()
	cfg.Writer = &buf

	logger := NewLogger(cfg)
	logger.Debug().Msg("hidden")
	logger.Info().Str("source", "openalex").Msg("ingestion finished")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "ingestion finished", entry["message"])
	assert.Equal(t, "openalex", entry["source"])
	assert.Equal(t, "bibliometrics-service", entry["service"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "console", Writer: &buf})
	logger.Debug().Msg("pretty line")

	out := buf.String()
	assert.Contains(t, out, "pretty line")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestNewLogger_AddSource(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "info", Writer: &buf, AddSource: true})
	logger.Info().Msg("with caller")

	assert.Contains(t, decodeEntry(t, &buf)["caller"], "logger_test.go")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("adds present fields", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithRunContext(context.Background(), RunContext{RequestID: "req-1", Job: "train", RunID: "run-1"})

		logger := LoggerFromContext(ctx, zerolog.New(&buf))
		logger.Info().Msg("chained context")

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "train", entry["job"])
		assert.Equal(t, "run-1", entry["run_id"])
	})

	t.Run("omits missing fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
		logger.Info().Msg("bare")

		entry := decodeEntry(t, &buf)
		assert.NotContains(t, entry, "request_id")
		assert.NotContains(t, entry, "job")
	})
}
