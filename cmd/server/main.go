// Command server runs the ForgeNotes HTTP server.
//
// All settings come from the environment (or a .env file), see
// internal/config. main only builds the logger and starts the server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/forgenotes/internal/config"
	"github.com/sakif/forgenotes/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	// Handlers without an injected logger use the default.
	slog.SetDefault(logger)

	if !cfg.WriteProtected() {
		logger.Warn("JWT_SECRET not set: the API accepts writes from anyone")
	}

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
