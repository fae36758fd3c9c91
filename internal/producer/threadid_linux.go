//go:build linux

package producer

import "golang.org/x/sys/unix"

// threadID reports the OS thread id of the calling goroutine's current
// underlying thread, matching the slot's thread_id field semantics.
func threadID() uint64 {
	return uint64(unix.Gettid())
}
