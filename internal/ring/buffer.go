// Package ring implements the MPSC lock-free ring buffer protocol: a
// fixed-layout header (header.go) followed by an array of fixed-size
// slots (slot.go), reserved by producers and drained by a single
// consumer.
package ring

import (
	"errors"
	"runtime"
	"time"

	"github.com/ehrlich-b/shmlog/internal/clock"
	"github.com/ehrlich-b/shmlog/internal/constants"
)

// Sentinel errors returned by Buffer operations; the top-level shmlog
// package maps these onto its structured *Error type at the API
// boundary.
var (
	ErrFull     = errors.New("ring: full")
	ErrNotReady = errors.New("ring: slot not yet committed")
)

// Buffer is the MPSC ring over a mapped region. It holds no lifecycle
// ownership of the region itself (ShmRegion does); Buffer only
// interprets the bytes. capacity, slotSize, and policy are cached from
// the header at construction — all three are written once at creation
// and never mutated, so every attached process reads the same values.
type Buffer struct {
	region   []byte
	header   *Header
	capacity uint32
	slotSize uint32
	policy   OverflowPolicy
}

// New wraps region (which must already contain an initialized header;
// either just-created via Header.Init or attached from an existing
// region) as a Buffer.
func New(region []byte) *Buffer {
	h := NewHeader(region)
	return &Buffer{
		region:   region,
		header:   h,
		capacity: h.Capacity(),
		slotSize: h.SlotSize(),
		policy:   h.OverflowPolicy(),
	}
}

// Header exposes the underlying header view, e.g. for version checks at
// attach time or for the adaptive wait state machine.
func (b *Buffer) Header() *Header { return b.header }

func (b *Buffer) slot(idx uint64) SlotView {
	return slotAt(b.region, idx%uint64(b.capacity), b.slotSize)
}

// Reserve claims the next free slot, honoring the overflow policy the
// region was created with — the header's creation-time value governs
// every attached producer; there is no per-producer override.
// Reservation is CAS-based so write_index only moves when space is
// confirmed: an increment that outran read_index would leave a sequence
// number no producer owns and no consumer can reclaim (its timestamp
// stays zero, which SkipStale treats as mid-reservation). Under Block
// policy a full ring spins for up to constants.BlockSpinBound
// iterations, then yields, repeatedly rechecking both indices; under
// Drop policy it returns ErrFull on the first full observation. It
// never blocks in the kernel.
func (b *Buffer) Reserve() (uint64, error) {
	spins := 0
	for {
		write := b.header.WriteIndexRelaxed()
		read := b.header.ReadIndexAcquire()
		if write-read < uint64(b.capacity) {
			if b.header.CompareAndSwapWriteIndex(write, write+1) {
				return write, nil
			}
			// Lost the race to another producer; retry with fresh indices.
			continue
		}

		if b.policy == PolicyDrop {
			return 0, ErrFull
		}

		spins++
		if spins < constants.BlockSpinBound {
			continue
		}
		runtime.Gosched()
	}
}

// TryReserve is the non-blocking variant: the same CAS loop, but a full
// ring returns ErrFull immediately instead of spinning.
func (b *Buffer) TryReserve() (uint64, error) {
	for {
		write := b.header.WriteIndexRelaxed()
		read := b.header.ReadIndexAcquire()
		if write-read >= uint64(b.capacity) {
			return 0, ErrFull
		}
		if b.header.CompareAndSwapWriteIndex(write, write+1) {
			return write, nil
		}
		// Lost the race to another producer; retry with fresh indices.
	}
}

// Write populates the slot at idx. processName and moduleName are
// packed 8-byte fields (see PackFixedField); payload is truncated to the
// slot's payload capacity.
func (b *Buffer) Write(idx uint64, timestampNs uint64, level uint8, pid uint32, threadID uint64, processName, moduleName [8]byte, loggerName string, payload []byte) {
	b.slot(idx).WriteBody(timestampNs, level, pid, threadID, processName, moduleName, loggerName, payload)
}

// Commit release-stores the slot's committed flag, then consults
// consumer_state and signals the given notifier unless the consumer is
// already within its poll window (a polling consumer re-examines
// committed slots on its own, so the wake syscall can be skipped).
// notify may be nil for unit tests that only exercise the buffer.
func (b *Buffer) Commit(idx uint64, notify func()) {
	b.slot(idx).SetCommittedRelease()

	if notify == nil {
		return
	}
	state := b.header.ConsumerStateAcquire()
	if state == StatePolling {
		last := b.header.LastPollTimeNsAcquire()
		now := clock.NowNanos()
		// A last-poll time ahead of this process's cached clock is still
		// inside the window; an unsigned subtraction would wrap around.
		if now < last || now-last < uint64(pollDurationNs) {
			return
		}
	}
	notify()
}

// pollDurationNs is set by the consumer via SetPollDuration; defaults to
// constants.DefaultPollDuration.
var pollDurationNs = int64(1_000_000_000)

// SetPollDuration configures the window the producer-side wake-skip
// check compares against; the consumer calls this once at startup with
// its configured poll_duration.
func SetPollDuration(d time.Duration) { pollDurationNs = int64(d) }

// IsNextCommitted reports whether the next slot to be read is committed.
func (b *Buffer) IsNextCommitted() bool {
	write := b.header.WriteIndexRelaxed()
	read := b.header.ReadIndexRelaxed()
	if read >= write {
		return false
	}
	return b.slot(read).CommittedAcquire()
}

// ReadNext returns the decoded fields of the next slot without advancing
// read_index. Callers must call Release after dispatching to downstream
// writers. The returned payload buffer is pooled; call ring.ReleasePayload
// on it once done.
type SlotData struct {
	TimestampNs uint64
	Level       uint8
	Pid         uint32
	ThreadID    uint64
	ProcessName string
	ModuleName  string
	LoggerName  string
	Payload     []byte
}

// ReadNext implements read_next(): acquire-load committed; if false
// return ErrNotReady, else copy the fixed prefix and payload.
func (b *Buffer) ReadNext() (SlotData, error) {
	write := b.header.WriteIndexRelaxed()
	read := b.header.ReadIndexRelaxed()
	if read >= write {
		return SlotData{}, ErrNotReady
	}
	s := b.slot(read)
	if !s.CommittedAcquire() {
		return SlotData{}, ErrNotReady
	}
	return SlotData{
		TimestampNs: s.TimestampNs(),
		Level:       s.Level(),
		Pid:         s.Pid(),
		ThreadID:    s.ThreadID(),
		ProcessName: s.ProcessName(),
		ModuleName:  s.ModuleName(),
		LoggerName:  s.LoggerName(),
		Payload:     s.Payload(),
	}, nil
}

// Release implements release(): clears the slot's commit flag, zeroes
// length/timestamp, then release-stores read_index+1. Only the consumer
// calls this.
func (b *Buffer) Release() {
	read := b.header.ReadIndexRelaxed()
	s := b.slot(read)
	s.ClearCommittedRelaxed()
	s.Reset()
	b.header.ReleaseStoreReadIndex(read + 1)
}

// SkipStale implements skip_stale(threshold): if the next slot is not
// committed but its timestamp_ns predates now-threshold, treat it as
// abandoned by a crashed producer and release it. Returns the count of
// slots reclaimed. Only the consumer calls this.
func (b *Buffer) SkipStale(threshold time.Duration) int {
	reclaimed := 0
	thresholdNs := uint64(threshold.Nanoseconds())
	for {
		write := b.header.WriteIndexRelaxed()
		read := b.header.ReadIndexRelaxed()
		if read >= write {
			return reclaimed
		}
		s := b.slot(read)
		if s.CommittedAcquire() {
			return reclaimed
		}
		ts := s.TimestampNs()
		if ts == 0 {
			// Never written (still mid-reservation, not yet stale by
			// definition); nothing more to reclaim this pass.
			return reclaimed
		}
		now := clock.NowNanos()
		if now < ts || now-ts < thresholdNs {
			return reclaimed
		}
		s.Reset()
		b.header.ReleaseStoreReadIndex(read + 1)
		reclaimed++
	}
}

// CurrentUsage returns write_index - read_index.
func (b *Buffer) CurrentUsage() uint32 {
	w := b.header.WriteIndexRelaxed()
	r := b.header.ReadIndexRelaxed()
	if w < r {
		return 0
	}
	return uint32(w - r)
}

// Capacity returns the region's slot count.
func (b *Buffer) Capacity() uint32 { return b.capacity }

// SlotSize returns the region's per-slot byte size.
func (b *Buffer) SlotSize() uint32 { return b.slotSize }
