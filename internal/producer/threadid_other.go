//go:build !linux

package producer

import "os"

// threadID falls back to the process id on platforms without a cheap OS
// thread id lookup; still unique enough to distinguish concurrent
// producer processes in the recorded stream.
func threadID() uint64 {
	return uint64(os.Getpid())
}
