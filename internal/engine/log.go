package engine

import (
	"log/slog"
	"os"
)

// SetupLogging configures the process-wide logger. Verbose enables debug
// records; quiet drops everything below warning.
func SetupLogging(verbose, quiet bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
