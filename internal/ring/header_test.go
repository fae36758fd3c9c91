package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newHeaderBuf(t *testing.T, slots int) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+slots*int(DefaultTestSlotSize))
	return buf
}

const DefaultTestSlotSize = 256

func TestHeaderInitAndImmutableFields(t *testing.T) {
	buf := newHeaderBuf(t, 4)
	h := NewHeader(buf)
	h.Init(1, 4, DefaultTestSlotSize, PolicyDrop, NotifySocketPath, -1, "/tmp/shmlog_demo.sock")

	require.Equal(t, uint32(1), h.Version())
	require.Equal(t, uint32(4), h.Capacity())
	require.Equal(t, uint32(DefaultTestSlotSize), h.SlotSize())
	require.Equal(t, PolicyDrop, h.OverflowPolicy())
	require.Equal(t, NotifySocketPath, h.NotifyKind())
	require.Equal(t, int32(-1), h.NotifyFD())
	require.Equal(t, "/tmp/shmlog_demo.sock", h.NotifyPath())
}

func TestHeaderInitZeroesAtomics(t *testing.T) {
	buf := newHeaderBuf(t, 4)
	h := NewHeader(buf)
	h.Init(1, 4, DefaultTestSlotSize, PolicyBlock, NotifyDescriptor, 7, "")

	require.Zero(t, h.WriteIndexRelaxed())
	require.Zero(t, h.ReadIndexRelaxed())
	require.Equal(t, StateWaiting, h.ConsumerStateAcquire())
	require.Zero(t, h.LastPollTimeNsAcquire())
}

func TestHeaderCacheLineIsolation(t *testing.T) {
	// write_index, read_index, consumer_state, and
	// last_poll_time_ns must each occupy a distinct 64-byte cache line so
	// false sharing between the hot producer and consumer paths cannot
	// occur.
	writeIdx, readIdx, consumerState, lastPoll := offsetsOf()

	offsets := []int{writeIdx, readIdx, consumerState, lastPoll}
	for i, a := range offsets {
		for j, b := range offsets {
			if i == j {
				continue
			}
			lineA, lineB := a/64, b/64
			require.NotEqual(t, lineA, lineB, "offsets %d and %d share cache line %d", a, b, lineA)
		}
	}
}

func TestHeaderFetchAddWriteIndex(t *testing.T) {
	buf := newHeaderBuf(t, 4)
	h := NewHeader(buf)
	h.Init(1, 4, DefaultTestSlotSize, PolicyBlock, NotifyDescriptor, 1, "")

	first := h.FetchAddWriteIndex(1)
	second := h.FetchAddWriteIndex(1)
	require.Equal(t, uint64(0), first)
	require.Equal(t, uint64(1), second)
	require.Equal(t, uint64(2), h.WriteIndexRelaxed())
}

func TestHeaderCompareAndSwapWriteIndex(t *testing.T) {
	buf := newHeaderBuf(t, 4)
	h := NewHeader(buf)
	h.Init(1, 4, DefaultTestSlotSize, PolicyDrop, NotifyDescriptor, 1, "")

	require.True(t, h.CompareAndSwapWriteIndex(0, 1))
	require.False(t, h.CompareAndSwapWriteIndex(0, 2), "stale compare value must fail")
	require.Equal(t, uint64(1), h.WriteIndexRelaxed())
}

func TestHeaderPanicsOnUndersizedBuffer(t *testing.T) {
	require.Panics(t, func() {
		NewHeader(make([]byte, HeaderSize-1))
	})
}
