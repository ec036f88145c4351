package rtc

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LevelDebug logs verbose debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo logs normal operational messages.
	LevelInfo
	// LevelWarn logs warning messages.
	LevelWarn
	// LevelError logs error messages only.
	LevelError
	// LevelOff disables all logging.
	LevelOff
)

// Logger wraps slog for library logging. Disabled by default so embedding
// applications opt in.
type Logger struct {
	slog  *slog.Logger
	level LogLevel
}

var defaultLogger = &Logger{level: LevelOff}

// SetLogger sets the global default logger.
func SetLogger(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// GetLogger returns the current default logger.
func GetLogger() *Logger {
	return defaultLogger
}

// NewLogger creates a new logger with the specified level and output.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time()
				a.Value = slog.StringValue(t.Format("15:04:05.000"))
			}
			return a
		},
	}

	return &Logger{
		slog:  slog.New(slog.NewTextHandler(w, opts)),
		level: level,
	}
}

// NewLoggerFromEnv creates a logger based on the LOG_LEVEL environment
// variable. Defaults to LevelOff if not set.
func NewLoggerFromEnv() *Logger {
	var level LogLevel
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		level = LevelDebug
	case "INFO":
		level = LevelInfo
	case "WARN", "WARNING":
		level = LevelWarn
	case "ERROR":
		level = LevelError
	default:
		level = LevelOff
	}

	if level == LevelOff {
		return &Logger{level: LevelOff}
	}
	return NewLogger(level, os.Stderr)
}

// IsEnabled returns true if logging is enabled at any level.
func (l *Logger) IsEnabled() bool {
	return l != nil && l.level != LevelOff && l.slog != nil
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelDebug {
		l.slog.Debug(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelInfo {
		l.slog.Info(msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelWarn {
		l.slog.Warn(msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelError {
		l.slog.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	if !l.IsEnabled() {
		return l
	}
	return &Logger{
		slog:  l.slog.With(args...),
		level: l.level,
	}
}

// DispatchLogger times one action dispatch.
type DispatchLogger struct {
	logger  *Logger
	service string
	action  string
	id      string
	start   time.Time
}

// StartDispatch begins timing a dispatch.
func (l *Logger) StartDispatch(service, action, id string) *DispatchLogger {
	if !l.IsEnabled() {
		return &DispatchLogger{logger: l}
	}
	l.Debug("dispatch started", "service", service, "action", action, "id", id)
	return &DispatchLogger{
		logger:  l,
		service: service,
		action:  action,
		id:      id,
		start:   time.Now(),
	}
}

// Settled logs a dispatch completion.
func (d *DispatchLogger) Settled() {
	if !d.logger.IsEnabled() {
		return
	}
	d.logger.Info("dispatch settled",
		"service", d.service,
		"action", d.action,
		"id", d.id,
		"duration_ms", time.Since(d.start).Milliseconds(),
	)
}

// Failed logs a dispatch failure.
func (d *DispatchLogger) Failed(err error) {
	if !d.logger.IsEnabled() {
		return
	}
	d.logger.Error("dispatch failed",
		"service", d.service,
		"action", d.action,
		"id", d.id,
		"error", err.Error(),
		"duration_ms", time.Since(d.start).Milliseconds(),
	)
}
