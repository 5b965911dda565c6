package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"table-reservation-api/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, closer, err := New(
		config.LoggingConfig{Level: "debug", Output: "file", FilePath: path},
		config.AppConfig{Name: "reservations", Environment: "test", Version: "0.1.0"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	logger.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"app":"reservations"`), line)
	assert.True(t, strings.Contains(line, `"message":"hello"`), line)
}

func TestNewFileLoggerRequiresPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "nonsense"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
