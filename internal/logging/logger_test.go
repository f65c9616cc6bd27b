package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := Build(Options{Development: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	require.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestBuildProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := Build(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestBuildWritesJSONToOutputPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := Build(Options{OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("run started", zap.String("run_id", "abc"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	require.Equal(t, "run started", entry["msg"])
	require.Equal(t, "abc", entry["run_id"])
	require.Contains(t, entry, "ts")
}

func TestBuildRejectsBadOutputPath(t *testing.T) {
	t.Parallel()

	_, err := Build(Options{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "run.log")}})
	require.ErrorContains(t, err, "build prod logger")
}
