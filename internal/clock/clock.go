// Package clock provides the wall-clock source used for timestamp_ns and
// last_poll_time_ns, both of which sit on the hottest path in the
// consumer's poll loop. Rather than calling time.Now() (a syscall on
// platforms without a vDSO fast path) on every iteration, it wraps
// go-timecache's periodically-refreshed cached clock.
package clock

import (
	timecache "github.com/agilira/go-timecache"
)

// cache is the shared process-wide cached clock; DefaultCache's
// resolution is tuned by the library for general use.
var cache = timecache.DefaultCache()

// NowNanos returns the current wall-clock time in nanoseconds since the
// Unix epoch, read from go-timecache's cache.
func NowNanos() uint64 {
	return uint64(cache.CachedTime().UnixNano())
}
