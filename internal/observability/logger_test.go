// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/tsanko9k/inkclip/internal/config"
)

// resetGlobalLogger is critical for ensuring test isolation, as the logger
// is a global singleton. We must reset it before each test.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

func TestInitialize(t *testing.T) {
	t.Run("console format with colors", func(t *testing.T) {
		resetGlobalLogger()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}, zapcore.AddSync(&buf))

		GetLogger().Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, "TestService.")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
	})

	t.Run("json format", func(t *testing.T) {
		resetGlobalLogger()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "jsonsvc",
		}, zapcore.AddSync(&buf))

		GetLogger().Info("structured entry")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "structured entry", entry["msg"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		resetGlobalLogger()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{
			Level:  "shouting",
			Format: "json",
		}, zapcore.AddSync(&buf))

		GetLogger().Debug("should be suppressed")
		GetLogger().Info("should appear")

		assert.NotContains(t, buf.String(), "should be suppressed")
		assert.Contains(t, buf.String(), "should appear")
	})

	t.Run("file core writes json", func(t *testing.T) {
		resetGlobalLogger()
		var buf bytes.Buffer
		logFile := filepath.Join(t.TempDir(), "inkclip.log")

		Initialize(config.LoggerConfig{
			Level:   "info",
			Format:  "console",
			LogFile: logFile,
		}, zapcore.AddSync(&buf))

		GetLogger().Info("file entry")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"file entry"`)
	})
}

func TestGetLoggerFallback(t *testing.T) {
	resetGlobalLogger()
	logger := GetLogger()
	require.NotNil(t, logger, "fallback logger must never be nil")
}
