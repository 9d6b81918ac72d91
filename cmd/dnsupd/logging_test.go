package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		configured string
		verbose    bool
		debug      bool
		want       slog.Level
	}{
		{configured: "warn", want: slog.LevelWarn},
		{configured: "", want: slog.LevelWarn},
		{configured: "error", want: slog.LevelError},
		{configured: "warn", verbose: true, want: slog.LevelInfo},
		{configured: "debug", verbose: true, want: slog.LevelDebug},
		{configured: "warn", debug: true, want: slog.LevelDebug},
		{configured: "error", verbose: true, debug: true, want: slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := logLevel(tt.configured, tt.verbose, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %v, %v) = %v, want %v", tt.configured, tt.verbose, tt.debug, got, tt.want)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	setupLogger(&buf, slog.LevelInfo, "json").Info("hello", slog.String("k", "v"))
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	logger := setupLogger(&buf, slog.LevelWarn, "text")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("text output = %q", buf.String())
	}
}
