package logger

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockLogger records log calls for assertions in tests.
//
// Every call is recorded with two arguments: the message and the key/value slice. Tests
// that only care about some records call Allow first and inspect Messages afterwards.
type MockLogger struct {
	mock.Mock

	mu      sync.Mutex
	records []record
}

type record struct {
	method string
	msg    string
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Allow accepts any number of records on every level.
func (m *MockLogger) Allow() *MockLogger {
	for _, method := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(method, mock.Anything, mock.Anything).Maybe()
	}
	m.On("SetLevel", mock.Anything).Maybe()

	return m
}

// Messages returns the messages recorded for method ("Debug", "Info", "Warn", ...) in
// call order.
func (m *MockLogger) Messages(method string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var msgs []string
	for _, r := range m.records {
		if r.method == method {
			msgs = append(msgs, r.msg)
		}
	}

	return msgs
}

func (m *MockLogger) record(method, msg string) {
	m.mu.Lock()
	m.records = append(m.records, record{method: method, msg: msg})
	m.mu.Unlock()
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.record("Debug", msg)
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.record("Info", msg)
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.record("Warn", msg)
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.record("Error", msg)
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.record("Fatal", msg)
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

// With returns the mock itself so that child loggers record into the same expectations.
func (m *MockLogger) With(_ ...any) Logger {
	return m
}
