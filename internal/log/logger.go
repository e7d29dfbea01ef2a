// Package log builds the zap loggers used by the command-line hosts.
//
// Processors themselves never log per frame; the engine only reports
// lifecycle events (resolution, stop, done, cleanup failures) through the
// logger handed to it with frame.WithLogger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level, encoding and destination of a logger.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New creates a logger from cfg. An empty Level means "info", an empty
// Format means console output and a nil Output means os.Stderr.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		NameKey:     "logger",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	var encoder zapcore.Encoder

	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", FormatConsole:
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	return zap.New(core), nil
}

// ParseLevel maps a level name such as "debug" or "WARN" to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}

	var level zapcore.Level

	err := level.UnmarshalText([]byte(strings.ToLower(name)))
	if err != nil {
		return level, fmt.Errorf("log: %w", err)
	}

	return level, nil
}
