// Package logger is the logging surface shared by every bgmd
// component. The daemon writes to stderr, optionally mirrored to a log
// file on the appliance's storage; tests swap in the recording backend.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is what components log through. Close releases any resources
// the backend holds (the file backend's handle); it is safe to call on
// backends without resources.
type Logger interface {
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Close() error
}

// StandardLogger writes severity-prefixed lines to a writer.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger builds a logger writing timestamped lines to out.
func NewStandardLogger(out io.Writer, prefix string) *StandardLogger {
	return &StandardLogger{logger: log.New(out, prefix, log.LstdFlags)}
}

// Info logs an informational message.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close implements Logger. The writer is owned by the caller.
func (s *StandardLogger) Close() error {
	return nil
}

// FileLogger appends to a log file on disk. Close releases the handle.
type FileLogger struct {
	StandardLogger
	f *os.File
}

// NewFileLogger opens (or creates) path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		StandardLogger: StandardLogger{logger: log.New(f, "", log.LstdFlags)},
		f:              f,
	}, nil
}

// Close flushes and closes the log file.
func (l *FileLogger) Close() error {
	return l.f.Close()
}

// NopLogger discards everything.
type NopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records every call for assertions in tests.
type MockLogger struct {
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger returns an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Info records the formatted message.
func (m *MockLogger) Info(format string, args ...interface{}) {
	m.InfoCalls = append(m.InfoCalls, fmt.Sprintf(format, args...))
}

// Warning records the formatted message.
func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.WarningCalls = append(m.WarningCalls, fmt.Sprintf(format, args...))
}

// Error records the formatted message.
func (m *MockLogger) Error(format string, args ...interface{}) {
	m.ErrorCalls = append(m.ErrorCalls, fmt.Sprintf(format, args...))
}

// Close records that it was called.
func (m *MockLogger) Close() error {
	m.CloseCalled = true
	return nil
}

var _ Logger = (*MockLogger)(nil)
