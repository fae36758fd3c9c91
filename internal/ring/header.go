package ring

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/ehrlich-b/shmlog/internal/constants"
)

// Overflow policy values, stored in the header's overflow_policy field.
type OverflowPolicy uint32

const (
	PolicyBlock OverflowPolicy = iota
	PolicyDrop
)

// Notifier kind values, stored in the header's notify_kind field.
type NotifyKind uint32

const (
	NotifyDescriptor NotifyKind = iota
	NotifySocketPath
)

// ConsumerState values for the header's consumer_state atomic.
type ConsumerState uint32

const (
	StateWaiting ConsumerState = iota
	StatePolling
)

// Byte offsets of the immutable fields and the four cache-line-isolated
// atomics. The immutable block (version through notify_path) is 132
// bytes and is rounded up to three cache lines so nothing from the
// atomics region can share a line with it; each atomic then gets a full
// line of its own so the hot producer and consumer words never falsely
// share.
const (
	offVersion        = 0
	offCapacity       = 4
	offSlotSize       = 8
	offOverflowPolicy = 12
	offNotifyKind     = 16
	offNotifyFD       = 20
	offNotifyPath     = 24
	notifyPathLen     = constants.MaxNotifyPathLen

	immutableBlockLines = 3 // ceil(132 / 64)

	offWriteIndex     = immutableBlockLines * constants.CacheLineSize
	offReadIndex      = offWriteIndex + constants.CacheLineSize
	offConsumerState  = offReadIndex + constants.CacheLineSize
	offLastPollTimeNs = offConsumerState + constants.CacheLineSize

	// HeaderSize is the total header size in bytes; the slot array
	// begins here, already cache-line aligned.
	HeaderSize = offLastPollTimeNs + constants.CacheLineSize
)

// Header is a pure in-memory view over byte 0 of a mapped region. It
// owns no memory itself; all accessors read and write through the
// backing slice supplied at construction.
type Header struct {
	buf []byte
}

// NewHeader wraps buf as a Header view. It panics if buf is shorter
// than HeaderSize; ShmRegion does not check region sizes against it.
func NewHeader(buf []byte) *Header {
	if len(buf) < HeaderSize {
		panic("ring: region too small for header")
	}
	return &Header{buf: buf}
}

func (h *Header) u32ptr(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&h.buf[off]))
}

func (h *Header) u64ptr(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&h.buf[off]))
}

// Init writes the immutable fields, then zeroes the four atomics with
// Relaxed stores, finishing with a release fence (satisfied here by the
// final Store using Release-equivalent atomic semantics) before any slot
// is touched. Only the creating consumer calls Init.
func (h *Header) Init(version, capacity, slotSize uint32, policy OverflowPolicy, kind NotifyKind, notifyFD int32, notifyPath string) {
	binary.LittleEndian.PutUint32(h.buf[offVersion:], version)
	binary.LittleEndian.PutUint32(h.buf[offCapacity:], capacity)
	binary.LittleEndian.PutUint32(h.buf[offSlotSize:], slotSize)
	binary.LittleEndian.PutUint32(h.buf[offOverflowPolicy:], uint32(policy))
	binary.LittleEndian.PutUint32(h.buf[offNotifyKind:], uint32(kind))
	binary.LittleEndian.PutUint32(h.buf[offNotifyFD:], uint32(int32(notifyFD)))

	pathBytes := [notifyPathLen]byte{}
	copy(pathBytes[:], notifyPath)
	copy(h.buf[offNotifyPath:offNotifyPath+notifyPathLen], pathBytes[:])

	atomic.StoreUint64(h.u64ptr(offWriteIndex), 0)
	atomic.StoreUint64(h.u64ptr(offReadIndex), 0)
	atomic.StoreUint32(h.u32ptr(offConsumerState), uint32(StateWaiting))
	atomic.StoreUint64(h.u64ptr(offLastPollTimeNs), 0)
}

// Version reads the immutable version field (Relaxed; set once at creation).
func (h *Header) Version() uint32 { return binary.LittleEndian.Uint32(h.buf[offVersion:]) }

// Capacity reads the immutable slot count.
func (h *Header) Capacity() uint32 { return binary.LittleEndian.Uint32(h.buf[offCapacity:]) }

// SlotSize reads the immutable per-slot byte size.
func (h *Header) SlotSize() uint32 { return binary.LittleEndian.Uint32(h.buf[offSlotSize:]) }

// OverflowPolicy reads the immutable overflow policy.
func (h *Header) OverflowPolicy() OverflowPolicy {
	return OverflowPolicy(binary.LittleEndian.Uint32(h.buf[offOverflowPolicy:]))
}

// NotifyKind reads the immutable effective notifier kind.
func (h *Header) NotifyKind() NotifyKind {
	return NotifyKind(binary.LittleEndian.Uint32(h.buf[offNotifyKind:]))
}

// NotifyFD reads the reserved descriptor field; -1 when kind is SocketPath.
func (h *Header) NotifyFD() int32 {
	return int32(binary.LittleEndian.Uint32(h.buf[offNotifyFD:]))
}

// NotifyPath reads the NUL-terminated socket path field.
func (h *Header) NotifyPath() string {
	raw := h.buf[offNotifyPath : offNotifyPath+notifyPathLen]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// WriteIndexRelaxed loads the write index with relaxed (plain atomic) ordering.
func (h *Header) WriteIndexRelaxed() uint64 { return atomic.LoadUint64(h.u64ptr(offWriteIndex)) }

// ReadIndexRelaxed loads the read index with relaxed (plain atomic) ordering.
func (h *Header) ReadIndexRelaxed() uint64 { return atomic.LoadUint64(h.u64ptr(offReadIndex)) }

// ReadIndexAcquire loads the read index; Go's atomic package provides a
// single sequentially consistent ordering stronger than the acquire
// needed here, which is always safe to substitute.
func (h *Header) ReadIndexAcquire() uint64 { return atomic.LoadUint64(h.u64ptr(offReadIndex)) }

// FetchAddWriteIndex atomically increments write_index by delta and
// returns the previous value (the reservation's sequence number).
func (h *Header) FetchAddWriteIndex(delta uint64) uint64 {
	return atomic.AddUint64(h.u64ptr(offWriteIndex), delta) - delta
}

// CompareAndSwapWriteIndex implements the CAS-based try_reserve chosen
// to resolve the over-reservation open question (see DESIGN.md).
func (h *Header) CompareAndSwapWriteIndex(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(h.u64ptr(offWriteIndex), old, new)
}

// ReleaseStoreReadIndex stores read_index with at least release
// ordering, so prior slot-reset stores are visible to any producer
// checking for space.
func (h *Header) ReleaseStoreReadIndex(v uint64) { atomic.StoreUint64(h.u64ptr(offReadIndex), v) }

// ConsumerStateAcquire loads consumer_state.
func (h *Header) ConsumerStateAcquire() ConsumerState {
	return ConsumerState(atomic.LoadUint32(h.u32ptr(offConsumerState)))
}

// SetConsumerStateRelease stores consumer_state; only the consumer calls this.
func (h *Header) SetConsumerStateRelease(s ConsumerState) {
	atomic.StoreUint32(h.u32ptr(offConsumerState), uint32(s))
}

// LastPollTimeNsAcquire loads the last-poll timestamp.
func (h *Header) LastPollTimeNsAcquire() uint64 {
	return atomic.LoadUint64(h.u64ptr(offLastPollTimeNs))
}

// SetLastPollTimeNsRelease stores the last-poll timestamp; only the
// consumer calls this.
func (h *Header) SetLastPollTimeNsRelease(ns uint64) {
	atomic.StoreUint64(h.u64ptr(offLastPollTimeNs), ns)
}

// offsetsOf is used by tests to verify cache-line isolation.
func offsetsOf() (writeIdx, readIdx, consumerState, lastPoll int) {
	return offWriteIndex, offReadIndex, offConsumerState, offLastPollTimeNs
}
