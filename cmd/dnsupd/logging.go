package main

import (
	"io"
	"log/slog"

	"github.com/natefinch/lumberjack"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
)

// setupLogger builds the diagnostic logger. Reports go to stdout, so logs
// always go to w (stderr in production).
func setupLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// logLevel applies --verbose and --debug on top of the configured level.
// The flags only ever make logging louder.
func logLevel(configured string, verbose, debug bool) slog.Level {
	level := parseLogLevel(configured)
	if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}
	return level
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// setupAuditLogger returns a JSON logger writing to the rotated audit file,
// or nil when no audit file is configured.
func setupAuditLogger(cfg config.AuditConfig) (*slog.Logger, io.Closer) {
	if !cfg.Enabled() {
		return nil, nil
	}

	w := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})), w
}
