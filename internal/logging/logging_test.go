package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"  info  ", zapcore.InfoLevel, false},
		{"verbose", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSetLevelAtRuntime(t *testing.T) {
	logger, err := New(&Config{Level: "info", Format: "json", Environment: "development"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if logger.GetLevel() != "info" {
		t.Errorf("expected info, got %s", logger.GetLevel())
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.GetLevel() != "debug" {
		t.Errorf("expected debug, got %s", logger.GetLevel())
	}

	if err := logger.SetLevel("bogus"); err == nil {
		t.Error("expected error for bogus level")
	}
	if logger.GetLevel() != "debug" {
		t.Errorf("level must not change on bad input, got %s", logger.GetLevel())
	}
}

func TestNamedSharesLevel(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := logger.Named("session")
	if err := child.SetLevel("error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.GetLevel() != "error" {
		t.Error("expected parent to share the child's level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}
