// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	defer Init(DefaultConfig())

	Info().Int("year", 2024).Msg("index synced")

	output := buf.String()
	if !strings.Contains(output, "index synced") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"year":2024`) {
		t.Errorf("expected output to contain year field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("warn") {
		t.Error("expected warn to be valid")
	}
	if ValidLevel("loud") {
		t.Error("expected loud to be invalid")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	setLogger(newTestLogger(&buf))
	defer Init(DefaultConfig())

	l := WithComponent("fetch")
	l.Info().Msg("attempt")

	if !strings.Contains(buf.String(), `"component":"fetch"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer Init(DefaultConfig())

	logger := slog.New(newSlogHandler(newTestLogger(&buf)))
	logger.WithGroup("supervisor").Info("service restarted", "service", "interval-sync", "restarts", 2)

	output := buf.String()
	for _, want := range []string{
		`"message":"service restarted"`,
		`"supervisor.service":"interval-sync"`,
		`"supervisor.restarts":2`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestSlogHandlerNestedGroupAndContext(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer Init(DefaultConfig())

	logger := slog.New(newSlogHandler(newTestLogger(&buf)))
	ctx := contextWithCorrelationID(context.Background(), "abcd1234")
	logger.InfoContext(ctx, "nested", slog.Group("outer", slog.Group("inner", slog.Int("n", 1))))

	output := buf.String()
	if !strings.Contains(output, `"outer.inner.n":1`) {
		t.Errorf("expected dotted group key, got: %s", output)
	}
	if !strings.Contains(output, `"correlation_id":"abcd1234"`) {
		t.Errorf("expected correlation_id, got: %s", output)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	defer Init(DefaultConfig())
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	h := newSlogHandler(zerolog.New(nil))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
