package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/books", cfg.BooksPath)
	assert.Equal(t, "/books/metadata.db", cfg.DatabaseFilePath)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 1580, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DatabaseDebug)
}

func TestNewDevelopmentDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "./books", cfg.BooksPath)
	assert.Equal(t, "./books/metadata.db", cfg.DatabaseFilePath)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewTestDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Zero(t, cfg.ServerPort)
	assert.Equal(t, 1, cfg.DatabaseConnectRetryCount)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CALIBRE_DB_PATH", "/library/metadata.db")
	t.Setenv("CALIBRE_BOOKS_PATH", "/library")
	t.Setenv("OPDS_HOST", "10.0.0.5")
	t.Setenv("OPDS_PORT", "8123")
	t.Setenv("DB_CONNECTION_TIMEOUT", "2.5")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/library/metadata.db", cfg.DatabaseFilePath)
	assert.Equal(t, "/library", cfg.BooksPath)
	assert.Equal(t, "10.0.0.5", cfg.ServerHost)
	assert.Equal(t, 8123, cfg.ServerPort)
	assert.Equal(t, 2500*time.Millisecond, cfg.ConnectionTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestNewIgnoresMalformedPort(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OPDS_PORT", "not-a-port")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 1580, cfg.ServerPort)
}
