// Package consumer implements the background drainer that owns the
// region, adaptively waits for data, decodes committed slots,
// dispatches them to downstream writers, and reclaims stale slots left
// by crashed producers.
package consumer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/shmlog/internal/clock"
	"github.com/ehrlich-b/shmlog/internal/config"
	"github.com/ehrlich-b/shmlog/internal/constants"
	"github.com/ehrlich-b/shmlog/internal/decode"
	"github.com/ehrlich-b/shmlog/internal/interfaces"
	"github.com/ehrlich-b/shmlog/internal/logging"
	"github.com/ehrlich-b/shmlog/internal/notify"
	"github.com/ehrlich-b/shmlog/internal/ring"
	"github.com/ehrlich-b/shmlog/internal/shm"
)

// Core is the internal consumer implementation; the public shmlog
// package wraps it as Consumer.
type Core struct {
	cfg      config.ConsumerConfig
	region   *shm.Region
	buf      *ring.Buffer
	notifier notify.Notifier
	writers  []interfaces.Writer
	logger   interfaces.Logger
	observer interfaces.Observer

	stopping atomic.Bool
	done     chan struct{}
}

// New creates (or attaches to, per cfg.CreateShm) the region, binds the
// notifier, and wires the downstream writer list. It does not start the
// drain loop; call Start for that.
func New(cfg config.ConsumerConfig, writers []interfaces.Writer, logger interfaces.Logger, observer interfaces.Observer) (*Core, error) {
	if cfg.CreateShm && cfg.ShmSize < ring.HeaderSize+int(cfg.SlotSize) {
		return nil, fmt.Errorf("consumer: region size %d cannot hold the header and at least one %d-byte slot", cfg.ShmSize, cfg.SlotSize)
	}
	if cfg.CreateShm && cfg.SlotSize%constants.CacheLineSize != 0 {
		return nil, fmt.Errorf("consumer: slot size %d is not a multiple of the %d-byte cache line", cfg.SlotSize, constants.CacheLineSize)
	}

	var region *shm.Region
	var err error
	if cfg.CreateShm {
		region, err = shm.Create(cfg.ShmName, cfg.ShmSize)
	} else {
		region, err = shm.Attach(cfg.ShmName, cfg.ShmSize)
	}
	if err != nil {
		return nil, err
	}

	path := config.NotifyPathFor(cfg.NotifyPath, cfg.ShmName)
	effectiveKind := notify.EffectiveKind(notify.Kind(cfg.NotifyKind))

	var n notify.Notifier
	var notifyFD int32 = -1
	var ringKind ring.NotifyKind
	switch effectiveKind {
	case notify.KindDescriptor:
		efd, eerr := notify.NewEventfd()
		if eerr != nil {
			_ = region.Unmap()
			return nil, eerr
		}
		n = efd
		notifyFD = int32(efd.FD())
		ringKind = ring.NotifyDescriptor
	default:
		if notify.Kind(cfg.NotifyKind) == notify.KindDescriptor {
			logging.Warn("consumer: eventfd requested but unsupported on this platform, substituting socket notifier", "name", cfg.ShmName)
		}
		server, serr := notify.NewSocketServer(path)
		if serr != nil {
			_ = region.Unmap()
			return nil, serr
		}
		n = server
		ringKind = ring.NotifySocketPath
	}

	if cfg.CreateShm {
		// The slot array begins after the header, so the derived capacity
		// must not count the header's bytes.
		capacity := (uint32(cfg.ShmSize) - ring.HeaderSize) / cfg.SlotSize
		ring.NewHeader(region.Data).Init(constants.Version, capacity, cfg.SlotSize, cfg.OverflowPolicy, ringKind, notifyFD, path)
	}

	// The header must be initialized before the ring view wraps it: New
	// caches capacity, slot size, and overflow policy from the immutable
	// fields.
	buf := ring.New(region.Data)

	ring.SetPollDuration(cfg.PollDuration)

	logging.Debug("consumer: region ready", "name", cfg.ShmName, "created", cfg.CreateShm, "writers", len(writers))
	c := &Core{
		cfg:      cfg,
		region:   region,
		buf:      buf,
		notifier: n,
		writers:  writers,
		logger:   logger,
		observer: observer,
		done:     make(chan struct{}),
	}
	return c, nil
}

// Start launches the background drain loop.
func (c *Core) Start() {
	go c.loop()
}

// Stop signals cooperative shutdown and blocks until the loop has fully
// drained and returned.
func (c *Core) Stop() {
	c.stopping.Store(true)
	<-c.done
}

func (c *Core) loop() {
	defer close(c.done)

	flushTicker := time.NewTicker(constants.FlushInterval)
	defer flushTicker.Stop()

	for !c.stopping.Load() {
		c.waitForData(c.cfg.PollInterval)
		c.drainReady()
		c.reclaimStale()

		select {
		case <-flushTicker.C:
			c.flushAll()
		default:
		}
	}

	// Orderly shutdown: drain everything still committed, reclaim once
	// more, flush every writer.
	c.drainReady()
	c.reclaimStale()
	c.flushAll()

	for _, w := range c.writers {
		_ = w.Close()
	}
	_ = c.notifier.Close()
	if c.cfg.DestroyOnExit {
		_ = c.region.Unmap()
		_ = shm.Destroy(c.cfg.ShmName)
	} else {
		_ = c.region.Unmap()
	}
}

// waitForData implements the adaptive wait: keep polling inside the
// window while data flows, fall back to blocking on the notifier once
// the window expires with nothing committed.
func (c *Core) waitForData(pollInterval time.Duration) {
	state := c.buf.Header().ConsumerStateAcquire()

	if state == ring.StatePolling {
		last := c.buf.Header().LastPollTimeNsAcquire()
		if clock.NowNanos()-last >= uint64(c.cfg.PollDuration) {
			c.buf.Header().SetConsumerStateRelease(ring.StateWaiting)
			state = ring.StateWaiting
		}
	}

	if c.buf.IsNextCommitted() {
		c.buf.Header().SetConsumerStateRelease(ring.StatePolling)
		c.buf.Header().SetLastPollTimeNsRelease(clock.NowNanos())
		return
	}

	if state == ring.StatePolling {
		time.Sleep(time.Millisecond)
		return
	}

	_, _ = c.notifier.Wait(pollInterval)
}

func (c *Core) drainReady() {
	for c.buf.IsNextCommitted() {
		data, err := c.buf.ReadNext()
		if err != nil {
			break
		}
		rec := decode.ToRecord(data, decode.Options{OnepFormat: c.cfg.EnableOnepFormat})
		for _, w := range c.writers {
			if rec.Level < c.cfg.Threshold {
				continue
			}
			if err := w.Write(rec); err != nil && c.logger != nil {
				c.logger.Printf("shmlog: writer error: %v", err)
			}
		}
		ring.ReleasePayload(data.Payload)
		c.buf.Release()
		if c.observer != nil {
			c.observer.ObserveRead(true)
		}
	}
}

// reclaimStale runs skip_stale and reports any reclaimed slots to the
// observer so BufferStats.StaleReclaimed reflects crash recovery.
func (c *Core) reclaimStale() {
	n := c.buf.SkipStale(c.cfg.StaleThreshold)
	if n > 0 && c.observer != nil {
		c.observer.ObserveStaleReclaimed(n)
	}
}

func (c *Core) flushAll() {
	for _, w := range c.writers {
		_ = w.Flush()
	}
}

// CurrentUsage exposes the ring's current_usage statistic.
func (c *Core) CurrentUsage() uint32 { return c.buf.CurrentUsage() }

// Capacity exposes the ring's capacity statistic.
func (c *Core) Capacity() uint32 { return c.buf.Capacity() }
