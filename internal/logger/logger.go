// Package logger is a thin structured-logging layer over charmbracelet/log.
package logger

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Logger is what the rest of the module logs through.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

type Config struct {
	Level      Level
	Output     io.Writer
	JSON       bool
	TimeFormat string
	Prefix     string
}

func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: "15:04:05",
		Prefix:     "taskcards",
	}
}

// ParseLevel accepts the usual level names; anything else is info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case DebugLevel:
		return DebugLevel
	case WarnLevel, "warning":
		return WarnLevel
	case ErrorLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (lv Level) charm() charmlog.Level {
	switch lv {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: cfg.TimeFormat != "",
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level.charm(),
		Prefix:          cfg.Prefix,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return &charmLogger{l: l}
}

var defaultLogger = NewLogger(nil)

// Setup replaces the package default, typically once from main.
func Setup(level string, json bool) Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.JSON = json
	defaultLogger = NewLogger(cfg)
	return defaultLogger
}

func Default() Logger { return defaultLogger }

// Discard drops everything; handy in tests.
func Discard() Logger {
	return NewLogger(&Config{Level: ErrorLevel, Output: io.Discard})
}

func Debug(msg string, keyvals ...any) { defaultLogger.Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { defaultLogger.Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { defaultLogger.Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { defaultLogger.Error(msg, keyvals...) }
