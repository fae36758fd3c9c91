package shmlog

import (
	"sync"

	"github.com/ehrlich-b/shmlog/internal/interfaces"
	"github.com/ehrlich-b/shmlog/internal/record"
)

// MockWriter is a downstream Writer that records everything written to it
// in memory, for use in producer/consumer tests that don't want to touch
// the filesystem or a terminal. It is exported so application code can
// reuse it in its own tests.
type MockWriter struct {
	mu         sync.Mutex
	records    []record.Record
	flushCalls int
	closed     bool
	failWrite  bool
}

// NewMockWriter creates an empty MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements interfaces.Writer.
func (m *MockWriter) Write(rec record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrite {
		return ErrMapFailed
	}
	m.records = append(m.records, rec)
	return nil
}

// Flush implements interfaces.Writer.
func (m *MockWriter) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushCalls++
	return nil
}

// Close implements interfaces.Writer.
func (m *MockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetFailWrite makes subsequent Write calls return an error, to exercise
// fallback and drop-accounting paths.
func (m *MockWriter) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// Records returns a copy of everything written so far, in order.
func (m *MockWriter) Records() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]record.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Count returns the number of records written so far.
func (m *MockWriter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// FlushCalls returns how many times Flush has been called.
func (m *MockWriter) FlushCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushCalls
}

// IsClosed reports whether Close has been called.
func (m *MockWriter) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears recorded state for reuse across subtests.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.flushCalls = 0
	m.closed = false
	m.failWrite = false
}

var _ interfaces.Writer = (*MockWriter)(nil)
