// Package interfaces provides internal interface definitions for shmlog.
// These are separate from the public package so that internal/consumer,
// internal/producer, internal/writer and internal/ring can all depend on
// them without importing the top-level shmlog package and creating a
// cycle.
package interfaces

import "github.com/ehrlich-b/shmlog/internal/record"

// Writer is a downstream sink that the consumer dispatches decoded
// records to. Implementations must be safe to call from the consumer's
// single drain loop only; shmlog never calls a Writer from more than one
// goroutine at a time, so Writer implementations need not be internally
// synchronized against concurrent Write calls, only against whatever
// else (e.g. a rotation timer) touches their underlying resource.
type Writer interface {
	// Write formats and emits rec. It must not retain rec's string fields
	// beyond the call if the consumer recycles record buffers.
	Write(rec record.Record) error

	// Flush forces any buffered output to its destination.
	Flush() error

	// Close releases any resource the writer holds (file handles,
	// sockets). Called once at consumer shutdown.
	Close() error
}

// Logger interface for optional internal diagnostics logging, kept
// separate from the application's own record stream.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for metrics collection. The consumer's single drain
// loop calls ObserveRead and ObserveStaleReclaimed; nothing in shmlog
// calls ObserveWrite, ObserveDrop or ObserveQueueDepth (producers count
// their writes and drops on their own Metrics).
type Observer interface {
	ObserveWrite(success bool)
	ObserveRead(success bool)
	ObserveDrop()
	ObserveQueueDepth(depth uint32)
	ObserveStaleReclaimed(count int)
}
