package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&EnvConfig{Level: level, Format: "json", ServiceName: "test", Output: &buf}), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m))
	return m
}

func TestNew_JSONFields(t *testing.T) {
	log, buf := newBufferLogger(t, "info")
	log.WithField(FieldFeed, "popular").Info("page fetched")

	line := lastLine(t, buf)
	assert.Equal(t, "page fetched", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "popular", line[FieldFeed])
	assert.Contains(t, line, "timestamp")
	assert.Contains(t, line["file"], "logger_test.go:")
}

func TestNew_LevelFiltersAndBadLevel(t *testing.T) {
	log, buf := newBufferLogger(t, "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log, _ = newBufferLogger(t, "loud")
	assert.Equal(t, "info", log.Logger.GetLevel().String())
}

func TestContextPropagation(t *testing.T) {
	log, buf := newBufferLogger(t, "debug")

	ctx := log.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetSessionID(ctx, "sess-1")
	ctx = SetComponent(ctx, "api")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Empty(t, fieldString(ctx, "missing"))

	CtxWarn(ctx, "slow page %d", 3)
	line := lastLine(t, buf)
	assert.Equal(t, "slow page 3", line["message"])
	assert.Equal(t, "req-1", line[FieldRequestID])
	assert.Equal(t, "api", line[FieldComponent])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	//nolint:staticcheck // a nil context is accepted
	assert.Same(t, GetDefault(), FromContext(nil))
}

func TestEntry_MergesMetricFields(t *testing.T) {
	log, buf := newBufferLogger(t, "debug")
	ctx := log.WithContext(context.Background())

	base := With(Fields{FieldOutcome: "applied"})
	base.WithDuration(12).WithCount(5).Info(ctx, "done")

	line := lastLine(t, buf)
	assert.Equal(t, "applied", line[FieldOutcome])
	assert.EqualValues(t, 12, line[FieldDurationMs])
	assert.EqualValues(t, 5, line[FieldCount])

	base.Debug(ctx, "again")
	line = lastLine(t, buf)
	assert.NotContains(t, line, FieldCount)
}

func TestSetDefaultLogger_IgnoresNil(t *testing.T) {
	prev := GetDefault()
	t.Cleanup(func() { SetDefaultLogger(prev) })

	SetDefaultLogger(nil)
	assert.Same(t, prev, GetDefault())

	nop := NewNop()
	SetDefaultLogger(nop)
	assert.Same(t, nop, GetDefault())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE_ONLY", "true")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")
	t.Setenv("SERVICE_NAME", "")

	cfg := LoadFromEnv("")
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.LogFileOnly)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, "rawgdex", cfg.ServiceName)
}

func TestOutput_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(&EnvConfig{
		Level:       "info",
		Format:      "text",
		ServiceName: "tui",
		Environment: "tui",
		LogFile:     path,
		LogFileOnly: true,
		MaxSize:     1,
	})
	log.Info("to file")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
