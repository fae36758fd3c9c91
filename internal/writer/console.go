// Package writer implements the downstream sinks that the consumer
// dispatches decoded records to: an ANSI-colored console renderer and a
// rotating-file renderer.
package writer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ehrlich-b/shmlog/internal/decode"
	"github.com/ehrlich-b/shmlog/internal/record"
)

var levelColors = map[record.Level]*color.Color{
	record.LevelTrace:    color.New(color.FgHiBlack),
	record.LevelDebug:    color.New(color.FgCyan),
	record.LevelInfo:     color.New(color.FgGreen),
	record.LevelWarn:     color.New(color.FgYellow),
	record.LevelError:    color.New(color.FgRed),
	record.LevelCritical: color.New(color.FgHiRed, color.Bold),
}

var warnColor = color.New(color.FgYellow)

// ConsoleWriter renders records to an io.Writer (normally os.Stdout)
// with ANSI color keyed on level. It is safe for the single consumer
// drain loop to call repeatedly; no other goroutine may call it
// concurrently, matching interfaces.Writer's contract.
type ConsoleWriter struct {
	out        io.Writer
	onepFormat bool
	threshold  record.Level
	mu         sync.Mutex
}

// NewConsoleWriter creates a console writer over out, dispatching only
// records at or above threshold.
func NewConsoleWriter(out io.Writer, onepFormat bool, threshold record.Level) *ConsoleWriter {
	return &ConsoleWriter{out: out, onepFormat: onepFormat, threshold: threshold}
}

// Write implements interfaces.Writer.
func (w *ConsoleWriter) Write(rec record.Record) error {
	if rec.Level < w.threshold {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	name := rec.LoggerName
	if w.onepFormat {
		name = decode.DisplayNameColored(rec.ProcessName, rec.ModuleName, func(s string) string {
			return warnColor.Sprint(s)
		})
	}

	c := levelColors[rec.Level]
	if c == nil {
		c = color.New(color.Reset)
	}

	ts := time.Unix(0, int64(rec.TimestampNs)).Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] [%d/%d] %s: %s\n", ts, rec.Level.String(), rec.Pid, rec.ThreadID, name, rec.Message)
	_, err := c.Fprint(w.out, line)
	return err
}

// Flush is a no-op; the underlying io.Writer (typically os.Stdout) has
// no internal buffering this writer introduces.
func (w *ConsoleWriter) Flush() error { return nil }

// Close is a no-op; ConsoleWriter does not own out's lifecycle.
func (w *ConsoleWriter) Close() error { return nil }
