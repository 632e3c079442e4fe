package main

import (
	"fmt"
	"os"
	"sync"

	"ikb/internal/config"
	"ikb/internal/logging"
	"ikb/internal/storage"
)

var (
	dbOnce   sync.Once
	sharedDB *storage.DB
	dbErr    error
)

// getDB returns a shared store handle, lazily opened on first use.
func getDB(repoRoot string, logger *logging.Logger) (*storage.DB, error) {
	dbOnce.Do(func() {
		db, err := storage.Open(repoRoot, logger)
		if err != nil {
			dbErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		sharedDB = db
	})

	return sharedDB, dbErr
}

// mustGetDB returns the shared store or exits on error.
func mustGetDB(repoRoot string, logger *logging.Logger) *storage.DB {
	db, err := getDB(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return db
}

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// loadConfig loads the repo config, falling back to defaults on failure.
func loadConfig(repoRoot string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return config.DefaultConfig()
	}
	return cfg
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  logging.InfoLevel,
	})
}
