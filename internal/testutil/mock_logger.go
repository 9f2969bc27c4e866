// Package testutil provides shared test helpers: a recording logger and
// molecule fixtures.
package testutil

import (
	"strings"
	"sync"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
)

// LogMessage is one entry captured by MockLogger. Fields holds the call-site
// fields followed by any bound through With.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

type journal struct {
	mu      sync.Mutex
	entries []LogMessage
}

// MockLogger implements logging.Logger and records every entry. Loggers
// derived through Named and With write to the same journal as their parent.
type MockLogger struct {
	j     *journal
	name  string
	bound []logging.Field
}

// NewMockLogger returns an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{j: &journal{}}
}

func (m *MockLogger) record(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(fields)+len(m.bound))
	all = append(append(all, fields...), m.bound...)

	m.j.mu.Lock()
	m.j.entries = append(m.j.entries, LogMessage{Level: level, Logger: m.name, Message: msg, Fields: all})
	m.j.mu.Unlock()
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.record("error", msg, fields) }

// Fatal records at "fatal" and does not exit.
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.record("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	bound := make([]logging.Field, 0, len(m.bound)+len(fields))
	bound = append(append(bound, m.bound...), fields...)
	return &MockLogger{j: m.j, name: m.name, bound: bound}
}

// Named joins names with a dot, like zap.
func (m *MockLogger) Named(name string) logging.Logger {
	full := name
	if m.name != "" {
		full = strings.Join([]string{m.name, name}, ".")
	}
	return &MockLogger{j: m.j, name: full, bound: m.bound}
}

func (m *MockLogger) Sync() error { return nil }

// GetMessages returns a snapshot of everything recorded so far.
func (m *MockLogger) GetMessages() []LogMessage {
	m.j.mu.Lock()
	defer m.j.mu.Unlock()
	return append([]LogMessage(nil), m.j.entries...)
}

// Clear drops all recorded entries, including those of derived loggers.
func (m *MockLogger) Clear() {
	m.j.mu.Lock()
	m.j.entries = nil
	m.j.mu.Unlock()
}

// HasMessage reports whether msg was logged at level.
func (m *MockLogger) HasMessage(level, msg string) bool {
	return m.Count(level, msg) > 0
}

// Count returns how many times msg was logged at level.
func (m *MockLogger) Count(level, msg string) int {
	n := 0
	for _, e := range m.GetMessages() {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}

// Field returns the value of key on the first entry logged with msg.
func (m *MockLogger) Field(msg, key string) (interface{}, bool) {
	for _, e := range m.GetMessages() {
		if e.Message != msg {
			continue
		}
		for _, f := range e.Fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}
	return nil, false
}
