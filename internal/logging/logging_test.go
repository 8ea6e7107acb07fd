package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cirruslabs/catcache/internal/logging"
	"github.com/cirruslabs/catcache/internal/logginglevel"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "catcache.log")

	logger := logging.New(logFile)
	logger.Info("cache directory created", zap.String("dir", "/tmp/cats"))
	logger.Debug("not enabled by default")
	_ = logger.Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "cache directory created", entry["msg"])
	require.Equal(t, "/tmp/cats", entry["dir"])
}

func TestLevel(t *testing.T) {
	logginglevel.Level.SetLevel(zap.DebugLevel)
	t.Cleanup(func() {
		logginglevel.Level.SetLevel(zap.InfoLevel)
	})

	logFile := filepath.Join(t.TempDir(), "catcache.log")

	logger := logging.New(logFile)
	logger.Debug("now enabled")
	_ = logger.Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(content), "now enabled")
}
