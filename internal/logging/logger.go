// Package logging provides zerolog construction and context helpers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName   = "touchicons.log"
	logDirPerm    = 0o750
	logMaxSizeMB  = 10
	logMaxBackups = 3
)

// Config holds logging configuration
type Config struct {
	Level      zerolog.Level
	Format     string // "json" or "console"
	TimeFormat string

	// LevelVar, when set, replaces Level with a threshold that can be
	// changed while the logger is in use.
	LevelVar *LevelVar
}

// LevelVar is a log level shared by loggers and adjustable at runtime.
type LevelVar struct {
	v atomic.Int32
}

// NewLevelVar returns a LevelVar set to level.
func NewLevelVar(level zerolog.Level) *LevelVar {
	lv := &LevelVar{}
	lv.Set(level)
	return lv
}

// Set changes the threshold.
func (lv *LevelVar) Set(level zerolog.Level) {
	lv.v.Store(int32(level))
}

// Level returns the current threshold.
func (lv *LevelVar) Level() zerolog.Level {
	return zerolog.Level(lv.v.Load())
}

// levelFilter drops events below a LevelVar before they reach out.
type levelFilter struct {
	out   io.Writer
	level *LevelVar
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.level.Level() {
		return len(p), nil
	}
	if lw, ok := f.out.(zerolog.LevelWriter); ok {
		return lw.WriteLevel(level, p)
	}
	return f.out.Write(p)
}

// FileConfig controls the optional rotating log file.
type FileConfig struct {
	Enabled       bool
	LogDir        string
	MaxAgeDays    int
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Format:     "console",
		TimeFormat: time.RFC3339,
	}
}

// New creates a new zerolog logger with the given configuration
func New(cfg Config) zerolog.Logger {
	return newLogger(formatWriter(os.Stderr, cfg), cfg)
}

// NewFromEnv creates a logger based on environment variables
// TOUCHICONS_LOG_LEVEL: trace, debug, info, warn, error (default: info)
// TOUCHICONS_LOG_FORMAT: json, console (default: console)
func NewFromEnv() zerolog.Logger {
	return NewFromConfigValues(os.Getenv("TOUCHICONS_LOG_LEVEL"), os.Getenv("TOUCHICONS_LOG_FORMAT"))
}

// NewFromConfigValues creates a stderr logger from raw config strings.
// Unknown values fall back to the defaults.
func NewFromConfigValues(level, format string) zerolog.Logger {
	cfg := DefaultConfig()
	if level != "" {
		cfg.Level = ParseLevel(level)
	}
	switch format {
	case "json", "console":
		cfg.Format = format
	}
	return New(cfg)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewWithFile creates a logger that writes to a rotating file in fileCfg.LogDir.
// The returned cleanup closes the file; it is never nil.
func NewWithFile(cfg Config, fileCfg FileConfig) (zerolog.Logger, func(), error) {
	noop := func() {}

	if !fileCfg.Enabled || fileCfg.LogDir == "" {
		if fileCfg.WriteToStderr {
			return New(cfg), noop, nil
		}
		return zerolog.Nop(), noop, nil
	}

	if err := os.MkdirAll(fileCfg.LogDir, logDirPerm); err != nil {
		return New(cfg), noop, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(fileCfg.LogDir, logFileName),
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     fileCfg.MaxAgeDays,
		Compress:   true,
	}

	// File output is always JSON so it stays machine-readable.
	var output io.Writer = rotator
	if fileCfg.WriteToStderr {
		output = zerolog.MultiLevelWriter(formatWriter(os.Stderr, cfg), rotator)
	}

	cleanup := func() { _ = rotator.Close() }
	return newLogger(output, cfg), cleanup, nil
}

func formatWriter(out io.Writer, cfg Config) io.Writer {
	if cfg.Format == "console" {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		return zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}
	return out
}

func newLogger(output io.Writer, cfg Config) zerolog.Logger {
	level := cfg.Level
	if cfg.LevelVar != nil {
		output = levelFilter{out: output, level: cfg.LevelVar}
		level = zerolog.TraceLevel
	}
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
