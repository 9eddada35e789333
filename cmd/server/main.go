// Package main is the entry point for the revision tracker API server.
//
// The main package stays small. It:
// 1. Sets up logging
// 2. Loads configuration (.env file, then environment variables)
// 3. Prepares the data directory
// 4. Builds the server and blocks until shutdown
//
// Everything else lives in internal/ so it can be tested without a process.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/revision-tracker/internal/config"
	"github.com/sakif/revision-tracker/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// Text output for terminals; LOG_LEVEL=debug turns on request-level detail.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// === 2. READ CONFIGURATION ===
	// See internal/config for every key and its default.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; an in-memory database needs nothing.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
