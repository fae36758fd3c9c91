package constants

import "time"

// Wire format version. Bumping this invalidates compatibility with any
// region created by a prior version; attach_and_check_version rejects a
// mismatch rather than guessing at layout.
const Version uint32 = 1

// CacheLineSize is the assumed CPU cache line size used to lay out the
// ring header's coordination atomics and to align each slot so that
// contiguous slots never straddle a line.
const CacheLineSize = 64

// Default configuration constants
const (
	// DefaultSlotSize is the default per-record slot size in bytes,
	// including the fixed prefix (committed/length/timestamp/level/pid/
	// thread_id/process_name/module_name/logger_name).
	DefaultSlotSize = 1024

	// DefaultCapacityHint is the default number of slots when a caller
	// specifies a region size but not a slot count; capacity is derived
	// as (region_size - header size) / slot_size, so this only applies
	// when sizing a new region from scratch.
	DefaultCapacityHint = 4096

	// DefaultRegionSize is DefaultCapacityHint * DefaultSlotSize.
	// ShmRegion.Create maps exactly the size it is given; it does not round.
	DefaultRegionSize = DefaultCapacityHint * DefaultSlotSize

	// MaxLoggerNameLen is the logger_name slot field capacity.
	MaxLoggerNameLen = 64

	// MaxProcessNameLen is the process_name slot field capacity (4
	// meaningful chars, NUL-padded to 8 for alignment).
	MaxProcessNameLen = 8

	// MaxModuleNameLen is the module_name slot field capacity (6
	// meaningful chars, NUL-padded to 8 for alignment).
	MaxModuleNameLen = 8

	// MaxNotifyPathLen is sizeof(sockaddr_un.sun_path) on Linux, the
	// largest a notify_path field in the header can be.
	MaxNotifyPathLen = 108
)

// Timing constants for the consumer/producer wake-and-poll protocol.
//
// These govern the adaptive wake-and-poll state machine: a producer
// skips the wake syscall whenever it observes the consumer already inside
// its poll window, trading a slightly wider window for fewer notifier
// round-trips under burst load.
const (
	// DefaultPollDuration is how long the consumer keeps spinning/yielding
	// after the last observed commit before it falls back to blocking on
	// the notifier. 1s amortizes the notifier wake cost across a burst
	// without starving the CPU during genuinely idle periods.
	DefaultPollDuration = 1 * time.Second

	// DefaultPollInterval bounds each individual wait_for_data call made
	// by the consumer loop; shorter than DefaultPollDuration so the
	// shutdown flag and stale-slot sweep get re-checked promptly.
	DefaultPollInterval = 20 * time.Millisecond

	// DefaultStaleThreshold is how old an uncommitted-but-reserved slot's
	// timestamp must be before the consumer treats it as abandoned by a
	// crashed producer and reclaims it.
	DefaultStaleThreshold = 5 * time.Second

	// FlushInterval is how often the consumer flushes downstream writers
	// independent of drain activity.
	FlushInterval = 1 * time.Second

	// BlockSpinBound is how many busy-spin iterations reserve() attempts
	// in Block mode before yielding the OS thread; keeps reserve() out of
	// the kernel entirely for short stalls.
	BlockSpinBound = 64
)
