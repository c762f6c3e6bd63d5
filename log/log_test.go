package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerSeverity(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		expected string
	}{
		{name: "debug", level: slog.LevelDebug, expected: "DEBUG"},
		{name: "info", level: slog.LevelInfo, expected: "INFO"},
		{name: "warn", level: slog.LevelWarn, expected: "WARNING"},
		{name: "error", level: slog.LevelError, expected: "ERROR"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := severity(test.level); got != test.expected {
				t.Errorf("severity(%v) = %q; want %q", test.level, got, test.expected)
			}
		})
	}
}

func TestHandlerWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCloudLoggingHandlerAt(&buf, slog.LevelInfo)).With(slog.String("userID", "u1"))

	logger.Info("hello", slog.String("chatID", "c1"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON entry: %v", err)
	}
	if entry["message"] != "hello" || entry["userID"] != "u1" || entry["chatID"] != "c1" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["severity"] != "INFO" {
		t.Errorf("severity = %v; want INFO", entry["severity"])
	}
}

func TestHandlerLevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCloudLoggingHandlerAt(&buf, slog.LevelWarn))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written below warn gate: %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	ctx := context.Background()
	if LoggerFromContext(ctx) == nil {
		t.Fatal("LoggerFromContext returned nil for empty context")
	}

	var buf bytes.Buffer
	logger := slog.New(NewCloudLoggingHandlerAt(&buf, slog.LevelInfo))
	ctx = WithLogger(ctx, logger)
	if LoggerFromContext(ctx) != logger {
		t.Error("LoggerFromContext did not return the stored logger")
	}
}
