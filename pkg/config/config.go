package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. The catalog database and the
// content store are external and read-only; everything here is consumed
// once at startup.
type Config struct {
	BooksPath                 string
	ConnectionTimeout         time.Duration
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	LogLevel                  string
	ServerHost                string
	ServerPort                int
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	cfg := &Config{
		BooksPath:                 "/books",
		ConnectionTimeout:         30 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseFilePath:          "/books/metadata.db",
		DatabaseMaxRetries:        3,
		LogLevel:                  "info",
		ServerHost:                "0.0.0.0",
		ServerPort:                1580,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	loadEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvOverrides applies the environment variables shared by all
// environments. Names match what the container image documents.
func loadEnvOverrides(cfg *Config) {
	if v := os.Getenv("CALIBRE_DB_PATH"); v != "" {
		cfg.DatabaseFilePath = v
	}
	if v := os.Getenv("CALIBRE_BOOKS_PATH"); v != "" {
		cfg.BooksPath = v
	}
	if v := os.Getenv("OPDS_HOST"); v != "" {
		cfg.ServerHost = v
	}
	if port, err := strconv.Atoi(os.Getenv("OPDS_PORT")); err == nil {
		cfg.ServerPort = port
	}
	if secs, err := strconv.ParseFloat(os.Getenv("DB_CONNECTION_TIMEOUT"), 64); err == nil && secs > 0 {
		cfg.ConnectionTimeout = time.Duration(secs * float64(time.Second))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
