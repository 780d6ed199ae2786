// Package logger provides a simple leveled logging interface for probe components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Verbosity levels accepted on the command line.
const (
	VerbosityQuiet   = 0 // results only
	VerbosityDefault = 1 // warnings and errors
	VerbosityInfo    = 2 // progress messages
	VerbosityDebug   = 3 // everything, including full worker output
)

// levelLogger writes "LEVEL: message" lines, filtered by verbosity.
type levelLogger struct {
	out       *log.Logger
	verbosity int
}

// NewLevelLogger creates a logger writing to w that shows messages allowed by
// the given verbosity. Verbosity 0 suppresses everything.
func NewLevelLogger(w io.Writer, verbosity int) Logger {
	return &levelLogger{
		out:       log.New(w, "", 0),
		verbosity: verbosity,
	}
}

func (l *levelLogger) emit(min int, level, format string, args ...interface{}) {
	if l.verbosity < min {
		return
	}
	l.out.Printf(level+": "+format, args...)
}

func (l *levelLogger) Debug(format string, args ...interface{}) {
	l.emit(VerbosityDebug, "DEBUG", format, args...)
}

func (l *levelLogger) Info(format string, args ...interface{}) {
	l.emit(VerbosityInfo, "INFO", format, args...)
}

func (l *levelLogger) Warn(format string, args ...interface{}) {
	l.emit(VerbosityDefault, "WARNING", format, args...)
}

func (l *levelLogger) Error(format string, args ...interface{}) {
	l.emit(VerbosityDefault, "ERROR", format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "debug", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "info", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "warn", Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: "error", Message: fmt.Sprintf(format, args...)})
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains returns true if any message at the given level contains substr.
func (l *BufferLogger) Contains(level, substr string) bool {
	for _, m := range l.Messages {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}
