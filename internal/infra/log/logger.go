package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the process logger. Debug level in dev.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}

// NewStderrLogger is for binaries whose stdout carries a protocol
func NewStderrLogger(appEnv string) zerolog.Logger {
	return NewLogger(appEnv).Output(os.Stderr)
}
