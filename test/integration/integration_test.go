// Package integration exercises the end-to-end producer/consumer
// scenarios across a real shared-memory region and notifier socket.
package integration

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/shmlog"
	"github.com/ehrlich-b/shmlog/internal/interfaces"
)

func withTestRegistry(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)
}

func waitForCount(t *testing.T, mw *shmlog.MockWriter, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if mw.Count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records, got %d", n, mw.Count())
}

// Ten messages from a single producer arrive at the downstream writer in
// commit order.
func TestTenMessagesArriveInOrder(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-itest-order"

	mw := shmlog.NewMockWriter()
	consumer, err := shmlog.NewConsumer(shmlog.ConsumerConfig{
		ShmName:        name,
		ShmSize:        1 << 20,
		CreateShm:      true,
		SlotSize:       512,
		DisableConsole: true,
		DestroyOnExit:  true,
		Writers:        []interfaces.Writer{mw},
	})
	require.NoError(t, err)
	consumer.Start()
	defer consumer.Stop()

	producer, err := shmlog.NewProducer(shmlog.ProducerConfig{ShmName: name})
	require.NoError(t, err)
	defer producer.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, producer.Info("itest", fmt.Sprintf("Message_%d", i)))
	}

	waitForCount(t, mw, 10, 2*time.Second)

	recs := mw.Records()
	require.Len(t, recs, 10)
	for i, rec := range recs {
		require.Equal(t, fmt.Sprintf("Message_%d", i), rec.Message)
	}
}

// The consumer binds the derived socket path and a producer connects to
// it without either side being told the path explicitly.
func TestDerivedSocketPathBoundAndConnectable(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-itest-appshm"

	mw := shmlog.NewMockWriter()
	consumer, err := shmlog.NewConsumer(shmlog.ConsumerConfig{
		ShmName:        name,
		ShmSize:        1 << 20,
		CreateShm:      true,
		DisableConsole: true,
		DestroyOnExit:  true,
		Writers:        []interfaces.Writer{mw},
	})
	require.NoError(t, err)
	consumer.Start()
	defer consumer.Stop()

	want := strings.TrimSuffix(os.TempDir(), "/") + "/shmlog_" + strings.TrimPrefix(name, "/") + ".sock"
	info, err := os.Stat(want)
	require.NoError(t, err, "derived socket path should exist at %s", want)
	require.NotZero(t, info.Mode()&os.ModeSocket)

	producer, err := shmlog.NewProducer(shmlog.ProducerConfig{ShmName: name})
	require.NoError(t, err)
	defer producer.Close()

	require.NoError(t, producer.Info("itest", "over the socket"))
	waitForCount(t, mw, 1, 2*time.Second)
}

// Four producer goroutines in Block mode, small capacity, no loss: the
// writer receives every record, with per-goroutine ordering preserved.
func TestBlockModeFourProducersNoLoss(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-itest-block"
	const (
		producers   = 4
		perProducer = 1000
	)

	mw := shmlog.NewMockWriter()
	consumer, err := shmlog.NewConsumer(shmlog.ConsumerConfig{
		ShmName:        name,
		ShmSize:        1 << 17,
		CreateShm:      true,
		SlotSize:       1024,
		OverflowPolicy: shmlog.PolicyBlock,
		DisableConsole: true,
		DestroyOnExit:  true,
		Writers:        []interfaces.Writer{mw},
	})
	require.NoError(t, err)
	consumer.Start()

	producer, err := shmlog.NewProducer(shmlog.ProducerConfig{ShmName: name})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = producer.Info(fmt.Sprintf("worker-%d", p), fmt.Sprintf("%d:%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	waitForCount(t, mw, producers*perProducer, 10*time.Second)
	producer.Close()
	consumer.Stop()

	recs := mw.Records()
	require.Len(t, recs, producers*perProducer)

	seen := make(map[string]bool, len(recs))
	next := make([]int, producers)
	for _, rec := range recs {
		require.False(t, seen[rec.Message], "duplicate record %q", rec.Message)
		seen[rec.Message] = true

		var p, i int
		_, err := fmt.Sscanf(rec.Message, "%d:%d", &p, &i)
		require.NoError(t, err)
		require.Equal(t, next[p], i, "producer %d out of order", p)
		next[p]++
	}
}

// Records committed before the consumer starts all arrive at the writer
// before Stop returns.
func TestConsumerDrainsOnShutdown(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-itest-drain"
	const n = 50

	mw := shmlog.NewMockWriter()
	consumer, err := shmlog.NewConsumer(shmlog.ConsumerConfig{
		ShmName:        name,
		ShmSize:        1 << 20,
		CreateShm:      true,
		DisableConsole: true,
		DestroyOnExit:  true,
		Writers:        []interfaces.Writer{mw},
	})
	require.NoError(t, err)

	producer, err := shmlog.NewProducer(shmlog.ProducerConfig{ShmName: name})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		require.NoError(t, producer.Info("itest", fmt.Sprintf("pending-%d", i)))
	}
	producer.Close()

	consumer.Start()
	consumer.Stop()

	require.Equal(t, n, mw.Count(), "every committed record must be drained before Stop returns")
}

// With the switch off and no fallback, the shared memory is untouched:
// nothing is reserved, nothing arrives downstream.
func TestDisabledSwitchWithoutFallbackLeavesRingUntouched(t *testing.T) {
	withTestRegistry(t)
	name := "/shmlog-itest-switch"

	mw := shmlog.NewMockWriter()
	consumer, err := shmlog.NewConsumer(shmlog.ConsumerConfig{
		ShmName:        name,
		ShmSize:        1 << 20,
		CreateShm:      true,
		DisableConsole: true,
		DestroyOnExit:  true,
		Writers:        []interfaces.Writer{mw},
	})
	require.NoError(t, err)

	sw := shmlog.NewGlobalSwitch()
	sw.Disable()
	producer, err := shmlog.NewProducer(shmlog.ProducerConfig{
		ShmName:      name,
		GlobalSwitch: sw,
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, producer.Info("itest", "silently dropped"))
	}
	producer.Close()

	require.Equal(t, uint32(0), consumer.Stats().CurrentUsage, "write_index must be unchanged")

	consumer.Start()
	consumer.Stop()
	require.Zero(t, mw.Count())
}
