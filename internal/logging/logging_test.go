package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1063537326/video-warning-0127/internal/config"
	clog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("HOME", tmp)
	config.Load()
	return tmp
}

// lastEntry reads the last JSON line of the only log file in the state dir.
func lastEntry(t *testing.T) map[string]interface{} {
	t.Helper()
	logDir := filepath.Join(config.Get("state_dir", ""), "logs")
	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	data, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestConfigFromGlobal(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	t.Setenv("ALERTWATCH_LOGGING_LEVEL", "debug")
	t.Setenv("ALERTWATCH_LOGGING_MAX_FILES", "5")
	config.Load()

	cfg := FromGlobalConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, "debug", cfg.Level)
	require.Equal(t, 5, cfg.MaxFiles)
	require.Equal(t, filepath.Base(os.Args[0]), cfg.Command)
	require.Equal(t, os.Getpid(), cfg.PID)
}

func TestLogLevelMapping(t *testing.T) {
	tests := []struct {
		name  string
		debug string
		quiet string
		level string
		want  string
	}{
		{"debug overrides level", "true", "", "info", "debug"},
		{"debug wins over quiet", "true", "true", "info", "debug"},
		{"quiet maps to error", "", "true", "info", "error"},
		{"configured level kept", "", "", "warn", "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTest(t)
			t.Setenv("ALERTWATCH_DEBUG", tt.debug)
			t.Setenv("ALERTWATCH_QUIET", tt.quiet)
			t.Setenv("ALERTWATCH_LOGGING_LEVEL", tt.level)
			config.Load()
			require.Equal(t, tt.want, FromGlobalConfig().Level)
		})
	}
}

func TestLogDir(t *testing.T) {
	tmp := setupTest(t)

	stateDir := config.Get("state_dir", "")
	require.True(t, strings.HasPrefix(stateDir, tmp), "state_dir %s not in temp dir %s", stateDir, tmp)

	logDir, err := LogDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateDir, "logs"), logDir)
	info, err := os.Stat(logDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLogDirFallback(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_STATE_DIR", "/proc/alertwatch-nope")
	config.Load()

	logDir, err := LogDir()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(logDir, os.TempDir()))
	require.True(t, strings.HasSuffix(logDir, filepath.Join("alertwatch", "logs")))
}

func TestInitDisabled(t *testing.T) {
	logger, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	require.IsType(t, noopLogger{}, logger)
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	require.NoError(t, logger.Shutdown())
}

func TestInitEnabledCreatesFile(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	config.Load()

	cfg := FromGlobalConfig()
	cfg.Command = "watch cmd"
	logger, err := Init(cfg)
	require.NoError(t, err)
	defer logger.Shutdown()

	logDir := filepath.Join(config.Get("state_dir", ""), "logs")
	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	fname := entries[0].Name()
	require.True(t, strings.HasPrefix(fname, "alertwatch_"))
	require.Contains(t, fname, fmt.Sprintf("_PID%d_", os.Getpid()))
	require.True(t, strings.HasSuffix(fname, "_watch_cmd.log"))
	info, err := os.Stat(filepath.Join(logDir, fname))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoggingWritesJSON(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	config.Load()

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	logger.Info("test message", "key1", "value1", "key2", 42)
	require.NoError(t, logger.Shutdown())

	entry := lastEntry(t)
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "test message", entry["msg"])
	require.Equal(t, float64(os.Getpid()), entry["pid"])
	require.Equal(t, "value1", entry["key1"])
	require.Equal(t, float64(42), entry["key2"])
	require.NotEmpty(t, entry["session"])
}

func TestRedaction(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	config.Load()

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	logger.Info("dial ws://cams/ws?token=abc",
		"password", "supersecret",
		"token", "xyz",
		"url", "ws://cams/ws?token=abc&x=1",
		"normal", "ok")
	require.NoError(t, logger.Shutdown())

	entry := lastEntry(t)
	require.Equal(t, "dial ws://cams/ws?token=[REDACTED]", entry["msg"])
	require.Equal(t, "[REDACTED]", entry["password"])
	require.Equal(t, "[REDACTED]", entry["token"])
	require.Equal(t, "ws://cams/ws?token=[REDACTED]&x=1", entry["url"])
	require.Equal(t, "ok", entry["normal"])
}

func TestRedactionEdgeCases(t *testing.T) {
	r := newRedactor()

	require.Equal(t, []any{"password", "[REDACTED]"}, r.redact([]any{"password", "secret"}))
	require.Equal(t, []any{"PASSWORD", "[REDACTED]"}, r.redact([]any{"PASSWORD", "secret"}))
	require.Equal(t, []any{"api_token", "[REDACTED]"}, r.redact([]any{"api_token", "xyz"}))
	require.Equal(t, []any{"api-token", "[REDACTED]"}, r.redact([]any{"api-token", "xyz"}))
	require.Equal(t, []any{"api.token", "[REDACTED]"}, r.redact([]any{"api.token", "xyz"}))

	require.Equal(t, []any{"apitoken", "xyz"}, r.redact([]any{"apitoken", "xyz"}))
	require.Equal(t, []any{"secretary", "value"}, r.redact([]any{"secretary", "value"}))

	input := []any{"password", "hidden", "camera", 3, "token", "abc"}
	require.Equal(t, []any{"password", "[REDACTED]", "camera", 3, "token", "[REDACTED]"}, r.redact(input))
	require.Equal(t, "hidden", input[1], "input must not be modified")

	require.Equal(t, []any{"password", "[REDACTED]", "extra"}, r.redact([]any{"password", "hidden", "extra"}))
	require.Empty(t, r.redact([]any{}))

	err := errors.New("dial wss://cams/ws?token=abc: refused")
	require.Equal(t, []any{"error", "dial wss://cams/ws?token=[REDACTED]: refused"}, r.redact([]any{"error", err}))
	plain := errors.New("refused")
	require.Equal(t, []any{"error", plain}, r.redact([]any{"error", plain}))
}

func TestRotation(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	t.Setenv("ALERTWATCH_LOGGING_MAX_FILES", "2")
	config.Load()

	logDir, err := LogDir()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		path := filepath.Join(logDir, fmt.Sprintf("alertwatch_20250101_12000%d_PID999_test.log", i))
		require.NoError(t, os.WriteFile(path, nil, 0600))
		old := time.Now().Add(-time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, old, old))
	}
	// unrelated files are never touched
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "other.log"), nil, 0600))

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	require.NoError(t, logger.Shutdown())

	_, err = os.Stat(filepath.Join(logDir, "alertwatch_20250101_120002_PID999_test.log"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(logDir, "alertwatch_20250101_120000_PID999_test.log"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(logDir, "other.log"))
	require.NoError(t, err)
}

func TestRotationInvalidMaxFilesUsesDefault(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	t.Setenv("ALERTWATCH_LOGGING_MAX_FILES", "0")
	config.Load()

	cfg := FromGlobalConfig()
	require.Equal(t, 10, cfg.MaxFiles)

	logDir, err := LogDir()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		path := filepath.Join(logDir, fmt.Sprintf("alertwatch_20250101_12000%d_PID999_test.log", i))
		require.NoError(t, os.WriteFile(path, nil, 0600))
	}

	logger, err := Init(cfg)
	require.NoError(t, err)
	require.NoError(t, logger.Shutdown())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 6)
}

func TestWith(t *testing.T) {
	setupTest(t)
	t.Setenv("ALERTWATCH_LOGGING_ENABLED", "true")
	config.Load()

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)

	child := logger.With("component", "reconnect", "auth", "x")
	child.Info("with context", "attempt", 2)
	require.NoError(t, child.Shutdown(), "children do not own the file")
	require.NoError(t, logger.Shutdown())

	entry := lastEntry(t)
	require.Equal(t, "reconnect", entry["component"])
	require.Equal(t, "[REDACTED]", entry["auth"])
	require.Equal(t, float64(2), entry["attempt"])
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("connection lost", "code", 1006, "url", "ws://h/ws?token=t")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "connection lost")
	assert.Contains(t, out, "code=1006")
	assert.NotContains(t, out, "token=t")
	assert.NoError(t, logger.Shutdown())
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.With("a", 1).Error("nothing")
	assert.NoError(t, logger.Shutdown())
}

func TestLevelParsing(t *testing.T) {
	require.Equal(t, clog.DebugLevel, parseLevel("debug"))
	require.Equal(t, clog.InfoLevel, parseLevel("info"))
	require.Equal(t, clog.WarnLevel, parseLevel("warn"))
	require.Equal(t, clog.WarnLevel, parseLevel("warning"))
	require.Equal(t, clog.ErrorLevel, parseLevel("error"))
	require.Equal(t, clog.InfoLevel, parseLevel("unknown"))
}
