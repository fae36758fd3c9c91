// Package logging emits shmlog's own operational diagnostics — region
// attach/detach, notifier substitution and fallback routing, stale-slot
// reclamation, registry I/O — ranked on the same record.Level severity
// scale the transport carries. The log records flowing through the ring
// are payload and are never formatted here.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/shmlog/internal/record"
)

// A Logger gates diagnostic output on a record.Level threshold. The
// zero threshold (record.LevelTrace) passes everything; DefaultConfig
// starts at record.LevelInfo so attach/detach chatter stays quiet
// unless a caller opts in.
type Logger struct {
	mu        sync.Mutex
	out       *log.Logger
	threshold record.Level
}

// Config holds the diagnostic output destination and severity floor.
type Config struct {
	Threshold record.Level
	Output    io.Writer
}

// DefaultConfig writes to stderr at record.LevelInfo.
func DefaultConfig() *Config {
	return &Config{
		Threshold: record.LevelInfo,
		Output:    os.Stderr,
	}
}

// NewLogger creates a logger from cfg; nil means DefaultConfig.
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		out:       log.New(out, "shmlog ", log.LstdFlags),
		threshold: cfg.Threshold,
	}
}

// emit renders one diagnostic line: the upper-cased record.Level name,
// the event, then any key=value pairs. A trailing key with no value is
// dropped rather than guessed at.
func (l *Logger) emit(level record.Level, event string, keyvals []any) {
	if level < l.threshold {
		return
	}

	var b strings.Builder
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteByte(' ')
	b.WriteString(event)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Print(b.String())
}

// Debug reports a fine-grained transport event (slot reclaimed, wake
// skipped, registry line rewritten).
func (l *Logger) Debug(event string, keyvals ...any) {
	l.emit(record.LevelDebug, event, keyvals)
}

// Info reports a lifecycle event (region created, producer attached).
func (l *Logger) Info(event string, keyvals ...any) {
	l.emit(record.LevelInfo, event, keyvals)
}

// Warn reports a degraded-but-running condition (notifier substituted,
// record routed to fallback).
func (l *Logger) Warn(event string, keyvals ...any) {
	l.emit(record.LevelWarn, event, keyvals)
}

// Error reports a failed operation the caller is surfacing anyway.
func (l *Logger) Error(event string, keyvals ...any) {
	l.emit(record.LevelError, event, keyvals)
}

// Printf logs a preformatted line at record.LevelInfo. It exists to
// satisfy the interfaces.Logger contract consumers hand their own
// loggers through.
func (l *Logger) Printf(format string, args ...any) {
	l.emit(record.LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Debugf logs a preformatted line at record.LevelDebug.
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(record.LevelDebug, fmt.Sprintf(format, args...), nil)
}

// defaultLogger holds the process-wide logger the package-level helpers
// write through; lazily initialized on first use.
var defaultLogger atomic.Pointer[Logger]

// Default returns the process-wide logger, creating it if necessary.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := NewLogger(nil)
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// Package-level helpers writing through the Default logger.

func Debug(event string, keyvals ...any) { Default().Debug(event, keyvals...) }

func Info(event string, keyvals ...any) { Default().Info(event, keyvals...) }

func Warn(event string, keyvals ...any) { Default().Warn(event, keyvals...) }

func Error(event string, keyvals ...any) { Default().Error(event, keyvals...) }
