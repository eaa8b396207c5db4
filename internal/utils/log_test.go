package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trader.log")

	logger, err := NewLogger(path, false)
	require.NoError(t, err)
	logger.Sugar().Infow("order placed", "side", "buy")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"order placed"`)
	assert.Contains(t, string(data), `"side":"buy"`)
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	logger, err := NewLogger("", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1)) // debug
}
