package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelInfo, WithOutput(&buf))

	logger.Debug("hidden")
	logger.Info("Saved", "doc", "main.json", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "document=main.json")
	assert.Contains(t, out, "err=boom")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelDebug, WithOutput(&buf), WithFormat(FormatJSON))
	logger.Debug("Expanded", "error", "missing subtree")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Expanded", record["msg"])
	assert.Equal(t, "missing subtree", record["err"])
	assert.NotContains(t, record, "error")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}
