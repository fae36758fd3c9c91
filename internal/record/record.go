// Package record defines the neutral, already-decoded log record shape
// shared between the ring buffer's slot codec and the downstream writers
// that the consumer dispatches to.
package record

import "fmt"

// Level is the severity of a log record, encoded as a single byte in the
// slot layout.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// String returns the canonical short name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Record is the decoded form of one slot, produced by ring.ReadNext and
// handed to every downstream Writer whose threshold permits it.
type Record struct {
	TimestampNs uint64
	Level       Level
	Pid         uint32
	ThreadID    uint64
	ProcessName string
	ModuleName  string
	LoggerName  string
	Message     string
}
