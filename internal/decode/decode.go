// Package decode turns a ring.SlotData into a record.Record and, in the
// "process-oriented" (onep) format, composes the fixed-width
// display_name from the process and module tags.
package decode

import (
	"strings"

	"github.com/ehrlich-b/shmlog/internal/record"
	"github.com/ehrlich-b/shmlog/internal/ring"
)

const (
	processWidth = 4
	moduleWidth  = 6
	nullField    = "NULL"
)

// Options controls decoding behavior per consumer configuration.
type Options struct {
	// OnepFormat selects the process-oriented display_name composition;
	// when false, LoggerName passes through unchanged.
	OnepFormat bool
}

// ToRecord converts a drained slot into the neutral record.Record shape,
// applying the onep display_name composition when enabled.
func ToRecord(s ring.SlotData, opts Options) record.Record {
	loggerName := s.LoggerName
	if opts.OnepFormat {
		loggerName = DisplayName(s.ProcessName, s.ModuleName)
	}
	return record.Record{
		TimestampNs: s.TimestampNs,
		Level:       record.Level(s.Level),
		Pid:         s.Pid,
		ThreadID:    s.ThreadID,
		ProcessName: s.ProcessName,
		ModuleName:  s.ModuleName,
		LoggerName:  loggerName,
		Message:     string(s.Payload),
	}
}

// DisplayName composes the uncolored display_name: process padded right
// to 4 characters, module centered in 6, each substituted with the
// literal NULL when empty.
func DisplayName(processName, moduleName string) string {
	return padRight(substituteNull(processName), processWidth) + " " + center(substituteNull(moduleName), moduleWidth)
}

// DisplayNameColored is the same composition, but wraps any substituted
// NULL field in warn-color ANSI escapes for color-capable writers; the
// file-bound renderer always receives DisplayName's uncolored form.
func DisplayNameColored(processName, moduleName string, wrap func(string) string) string {
	proc := processName
	if proc == "" {
		proc = wrap(nullField)
	}
	mod := moduleName
	if mod == "" {
		mod = wrap(nullField)
	}
	return padRightVisible(proc, processWidth) + " " + centerVisible(mod, moduleWidth)
}

func substituteNull(s string) string {
	if s == "" {
		return nullField
	}
	return s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// padRightVisible/centerVisible pad based on the un-colored field width
// even though the field itself may already contain ANSI escapes (only
// happens when the field was NULL-substituted, which is always exactly
// 4 characters visible), so the alignment math only ever needs the
// plain-field length of "NULL" or the real name.
func padRightVisible(s string, width int) string {
	visible := visibleLen(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func centerVisible(s string, width int) string {
	visible := visibleLen(s)
	if visible >= width {
		return s
	}
	total := width - visible
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func visibleLen(s string) int {
	if strings.Contains(s, nullField) && strings.ContainsAny(s, "\x1b") {
		return len(nullField)
	}
	return len(s)
}
