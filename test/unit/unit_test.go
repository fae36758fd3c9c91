// Package unit holds property-style checks that exercise the ring,
// notifier path derivation, and version gate without needing a running
// consumer process.
package unit

import (
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/shmlog/internal/config"
	"github.com/ehrlich-b/shmlog/internal/notify"
	"github.com/ehrlich-b/shmlog/internal/ring"
	"github.com/ehrlich-b/shmlog/internal/shm"
)

func withTestRegistry(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)
}

func newRing(t *testing.T, capacity int, slotSize uint32, policy ring.OverflowPolicy) *ring.Buffer {
	t.Helper()
	region := make([]byte, ring.HeaderSize+capacity*int(slotSize))
	h := ring.NewHeader(region)
	h.Init(1, uint32(capacity), slotSize, policy, ring.NotifySocketPath, -1, "")
	return ring.New(region)
}

// Derived socket path determinism: for every region name n, the path is
// "<tmp>/<prefix>_" + strip_leading_slash(n) + ".sock".
func TestDerivedSocketPathDeterminism(t *testing.T) {
	for _, name := range []string{"/appshm", "/t5", "/a-b_c", "deep"} {
		got := notify.DerivePath("/tmp", "shmlog", name)
		stripped := name
		if len(stripped) > 0 && stripped[0] == '/' {
			stripped = stripped[1:]
		}
		require.Equal(t, "/tmp/shmlog_"+stripped+".sock", got, "name %q", name)
	}
}

// A configured non-empty path always wins over the derived one.
func TestUserPathPrecedence(t *testing.T) {
	got := notify.ResolvePath("/run/custom.sock", "/tmp", "shmlog", "/appshm")
	require.Equal(t, "/run/custom.sock", got)
}

// Default-constructed configurations select the socket-path variant.
func TestDefaultNotifierKindIsSocketPath(t *testing.T) {
	require.Equal(t, ring.NotifySocketPath, config.DefaultConsumerConfig("/x").NotifyKind)
	require.Equal(t, ring.NotifySocketPath, config.DefaultProducerConfig("/x").NotifyKind)
}

// Round-trip integrity: decoded fields equal the inputs, payload
// truncated to the slot's capacity when longer.
func TestSlotRoundTripIntegrity(t *testing.T) {
	buf := newRing(t, 4, 512, ring.PolicyDrop)

	idx, err := buf.TryReserve()
	require.NoError(t, err)
	buf.Write(idx, 12345, 4, 99, 7, ring.PackFixedField("api"), ring.PackFixedField("core"), "svc.worker", []byte("hello"))
	buf.Commit(idx, nil)

	data, err := buf.ReadNext()
	require.NoError(t, err)
	require.Equal(t, uint64(12345), data.TimestampNs)
	require.Equal(t, uint8(4), data.Level)
	require.Equal(t, uint32(99), data.Pid)
	require.Equal(t, uint64(7), data.ThreadID)
	require.Equal(t, "api", data.ProcessName)
	require.Equal(t, "core", data.ModuleName)
	require.Equal(t, "svc.worker", data.LoggerName)
	require.Equal(t, "hello", string(data.Payload))
	ring.ReleasePayload(data.Payload)
	buf.Release()
}

func TestSlotRoundTripTruncatesOversizedPayload(t *testing.T) {
	slotSize := uint32(ring.FixedPrefixSize + 16)
	buf := newRing(t, 2, slotSize, ring.PolicyDrop)

	long := make([]byte, 64)
	for i := range long {
		long[i] = byte('a' + i%26)
	}

	idx, err := buf.TryReserve()
	require.NoError(t, err)
	buf.Write(idx, 1, 0, 1, 1, ring.PackFixedField(""), ring.PackFixedField(""), "l", long)
	buf.Commit(idx, nil)

	data, err := buf.ReadNext()
	require.NoError(t, err)
	require.Equal(t, string(long[:16]), string(data.Payload))
	ring.ReleasePayload(data.Payload)
}

// Drop accounting: after N try_reserve attempts with no consumer
// running, at least N - C return full (here: exactly N - C).
func TestDropAccountingWithoutConsumer(t *testing.T) {
	const slotSize = 512
	region := make([]byte, ring.HeaderSize+(1<<20))
	capacity := uint32((1 << 20) / slotSize)
	h := ring.NewHeader(region)
	h.Init(1, capacity, slotSize, ring.PolicyDrop, ring.NotifySocketPath, -1, "")
	buf := ring.New(region)

	const attempts = 10_000
	committed := 0
	full := 0
	for i := 0; i < attempts; i++ {
		idx, err := buf.TryReserve()
		if err != nil {
			full++
			continue
		}
		buf.Write(idx, 1, 2, 1, 1, ring.PackFixedField(""), ring.PackFixedField(""), "l", []byte(fmt.Sprintf("Message_%d", i)))
		buf.Commit(idx, nil)
		committed++
	}

	require.Equal(t, int(capacity), committed)
	require.Equal(t, attempts-int(capacity), full)
}

// Stale reclamation: a slot reserved and written 10s in the past but
// never committed is released by skip_stale(5s), advancing read_index.
func TestStaleSlotReclamation(t *testing.T) {
	buf := newRing(t, 8, 512, ring.PolicyBlock)

	idx, err := buf.Reserve()
	require.NoError(t, err)
	stale := uint64(time.Now().Add(-10 * time.Second).UnixNano())
	buf.Write(idx, stale, 0, 1, 1, ring.PackFixedField(""), ring.PackFixedField(""), "l", []byte("abandoned"))

	reclaimed := buf.SkipStale(5 * time.Second)
	require.Equal(t, 1, reclaimed)
	require.Equal(t, uint32(0), buf.CurrentUsage())
}

// Version gate: attaching to a region whose version was corrupted
// returns a mismatch error naming both the expected and observed values.
func TestVersionGateReportsBothVersions(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-unit-version-gate"

	region, err := shm.Create(name, 1<<16)
	require.NoError(t, err)
	defer shm.Destroy(name)

	h := ring.NewHeader(region.Data)
	h.Init(1, 4, 512, ring.PolicyDrop, ring.NotifySocketPath, -1, "")
	binary.LittleEndian.PutUint32(region.Data[0:], 0xDEADBEEF)
	require.NoError(t, region.Unmap())

	_, err = shm.AttachAndCheckVersion(name, 0, 1, func(data []byte) uint32 {
		return ring.NewHeader(data).Version()
	})
	require.Error(t, err)
	var vm *shm.VersionMismatchError
	require.ErrorAs(t, err, &vm)
	require.Equal(t, uint32(1), vm.Expected)
	require.Equal(t, uint32(0xDEADBEEF), vm.Observed)
	require.Contains(t, err.Error(), "1")
	require.Contains(t, err.Error(), fmt.Sprint(uint32(0xDEADBEEF)))
}

// Per-producer ordering at the ring level: slots drain in reservation
// order for a single producer.
func TestSingleProducerOrderingPreserved(t *testing.T) {
	buf := newRing(t, 16, 512, ring.PolicyDrop)

	for i := 0; i < 10; i++ {
		idx, err := buf.TryReserve()
		require.NoError(t, err)
		buf.Write(idx, 1, 2, 1, 1, ring.PackFixedField(""), ring.PackFixedField(""), "l", []byte(fmt.Sprintf("Message_%d", i)))
		buf.Commit(idx, nil)
	}

	for i := 0; i < 10; i++ {
		data, err := buf.ReadNext()
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Message_%d", i), string(data.Payload))
		ring.ReleasePayload(data.Payload)
		buf.Release()
	}
}
