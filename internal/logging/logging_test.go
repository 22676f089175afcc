package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/config"
	"kbase/internal/domain"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf, false)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "source", "a.txt")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown source=a.txt")
}

func TestNew_JSONVerbose(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "error", Format: "json"}, &buf, true)
	require.NoError(t, err)

	log.Debug("detail", "chunks", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "detail", rec["msg"])
	assert.Equal(t, float64(3), rec["chunks"])
}

func TestNew_BadFormat(t *testing.T) {
	_, err := New(config.LogConfig{Format: "xml"}, &bytes.Buffer{}, false)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
