package ring

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/ehrlich-b/shmlog/internal/constants"
)

// Slot field offsets, relative to the start of a slot. committed is
// stored as a uint32 (0/1) rather than a single byte so it is naturally
// aligned for atomic ops regardless of slot_size.
const (
	slotOffCommitted   = 0
	slotOffLength      = 4
	slotOffTimestampNs = 8
	slotOffLevel       = 16
	// 3 bytes of padding after level to keep pid 4-byte aligned
	slotOffPid         = 20
	slotOffThreadID    = 24
	slotOffProcessName = 32
	slotOffModuleName  = 40
	slotOffLoggerName  = 48

	// FixedPrefixSize is the number of bytes every slot spends on fixed
	// fields before the variable-length payload begins.
	FixedPrefixSize = slotOffLoggerName + constants.MaxLoggerNameLen // 48 + 64 = 112
	slotOffPayload  = FixedPrefixSize
)

// MaxPayloadSize returns the usable payload capacity for a given slot_size.
func MaxPayloadSize(slotSize uint32) uint32 {
	if slotSize <= FixedPrefixSize {
		return 0
	}
	return slotSize - FixedPrefixSize
}

// SlotView is a pure in-memory view over one slot's bytes.
type SlotView struct {
	buf []byte
}

func slotAt(regionBuf []byte, idx uint64, slotSize uint32) SlotView {
	start := HeaderSize + int(idx)*int(slotSize)
	return SlotView{buf: regionBuf[start : start+int(slotSize)]}
}

func (s SlotView) committedPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&s.buf[slotOffCommitted]))
}

// CommittedAcquire loads the commit flag.
func (s SlotView) CommittedAcquire() bool {
	return atomic.LoadUint32(s.committedPtr()) != 0
}

// SetCommittedRelease publishes the slot; producer call only.
func (s SlotView) SetCommittedRelease() {
	atomic.StoreUint32(s.committedPtr(), 1)
}

// ClearCommittedRelaxed un-publishes the slot; consumer call only, part
// of release().
func (s SlotView) ClearCommittedRelaxed() {
	atomic.StoreUint32(s.committedPtr(), 0)
}

// WriteBody populates every fixed field and up to len(payload) bytes,
// truncated to the slot's payload capacity. All stores are plain
// (Relaxed); only SetCommittedRelease carries ordering.
func (s SlotView) WriteBody(timestampNs uint64, level uint8, pid uint32, threadID uint64, processName, moduleName [8]byte, logger string, payload []byte) {
	maxPayload := len(s.buf) - slotOffPayload
	n := len(payload)
	if n > maxPayload {
		n = maxPayload
	}

	binary.LittleEndian.PutUint32(s.buf[slotOffLength:], uint32(n))
	binary.LittleEndian.PutUint64(s.buf[slotOffTimestampNs:], timestampNs)
	s.buf[slotOffLevel] = level
	binary.LittleEndian.PutUint32(s.buf[slotOffPid:], pid)
	binary.LittleEndian.PutUint64(s.buf[slotOffThreadID:], threadID)
	copy(s.buf[slotOffProcessName:slotOffProcessName+8], processName[:])
	copy(s.buf[slotOffModuleName:slotOffModuleName+8], moduleName[:])

	var loggerBuf [constants.MaxLoggerNameLen]byte
	copy(loggerBuf[:], logger)
	copy(s.buf[slotOffLoggerName:slotOffLoggerName+constants.MaxLoggerNameLen], loggerBuf[:])

	copy(s.buf[slotOffPayload:slotOffPayload+n], payload[:n])
}

// Length reads the payload byte count.
func (s SlotView) Length() uint32 { return binary.LittleEndian.Uint32(s.buf[slotOffLength:]) }

// TimestampNs reads the producer wall-clock timestamp.
func (s SlotView) TimestampNs() uint64 {
	return binary.LittleEndian.Uint64(s.buf[slotOffTimestampNs:])
}

// Level reads the severity byte.
func (s SlotView) Level() uint8 { return s.buf[slotOffLevel] }

// Pid reads the producer OS process id.
func (s SlotView) Pid() uint32 { return binary.LittleEndian.Uint32(s.buf[slotOffPid:]) }

// ThreadID reads the producer thread id.
func (s SlotView) ThreadID() uint64 { return binary.LittleEndian.Uint64(s.buf[slotOffThreadID:]) }

// ProcessName reads the NUL-padded process name field, trimmed.
func (s SlotView) ProcessName() string {
	return trimNUL(s.buf[slotOffProcessName : slotOffProcessName+8])
}

// ModuleName reads the NUL-padded module name field, trimmed.
func (s SlotView) ModuleName() string {
	return trimNUL(s.buf[slotOffModuleName : slotOffModuleName+8])
}

// LoggerName reads the NUL-terminated logger name field.
func (s SlotView) LoggerName() string {
	return trimNUL(s.buf[slotOffLoggerName : slotOffLoggerName+constants.MaxLoggerNameLen])
}

// Payload copies the first Length() bytes of the payload into a buffer
// taken from the scratch pool; return it with ReleasePayload.
func (s SlotView) Payload() []byte {
	n := s.Length()
	buf := getScratch(n)
	copy(buf, s.buf[slotOffPayload:slotOffPayload+int(n)])
	return buf
}

// ReleasePayload returns a buffer obtained from Payload to the pool.
func ReleasePayload(buf []byte) {
	putScratch(buf)
}

// Reset zeroes length and timestamp_ns; part of release().
func (s SlotView) Reset() {
	binary.LittleEndian.PutUint32(s.buf[slotOffLength:], 0)
	binary.LittleEndian.PutUint64(s.buf[slotOffTimestampNs:], 0)
}

func trimNUL(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// PackFixedField packs s into an 8-byte NUL-padded field, truncating to
// 7 chars plus NUL if s is longer. Display padding and centering happen
// at decode time, not here.
func PackFixedField(s string) [8]byte {
	var out [8]byte
	if len(s) > 7 {
		s = s[:7]
	}
	copy(out[:], s)
	return out
}
