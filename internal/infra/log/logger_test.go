package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_Level(t *testing.T) {
	dev := NewLogger("dev")
	if dev.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level in dev, got %s", dev.GetLevel())
	}

	prod := NewLogger("production")
	if prod.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level outside dev, got %s", prod.GetLevel())
	}
}

func TestNewStderrLogger_KeepsLevel(t *testing.T) {
	// Loggers are returned by value, so callers bind them before logging
	logger := NewStderrLogger("dev")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", logger.GetLevel())
	}
	logger.Debug().Msg("stderr logger ready")
}
