// Package producer implements the writing side of the transport: attach
// to an existing region, validate version, initialize the matching
// notifier client, and write records for the producer's lifetime.
package producer

import (
	"fmt"
	"os"

	"github.com/ehrlich-b/shmlog/internal/clock"
	"github.com/ehrlich-b/shmlog/internal/config"
	"github.com/ehrlich-b/shmlog/internal/constants"
	"github.com/ehrlich-b/shmlog/internal/interfaces"
	"github.com/ehrlich-b/shmlog/internal/logging"
	"github.com/ehrlich-b/shmlog/internal/notify"
	"github.com/ehrlich-b/shmlog/internal/record"
	"github.com/ehrlich-b/shmlog/internal/ring"
	"github.com/ehrlich-b/shmlog/internal/shm"
)

// VersionMismatchError reports the expected and observed header version.
type VersionMismatchError = shm.VersionMismatchError

// GlobalSwitch is the minimal interface ProducerCore needs from the
// top-level GlobalSwitch type, kept here to avoid an import cycle with
// the public shmlog package.
type GlobalSwitch interface {
	IsEnabled() bool
}

// Core is the internal producer implementation; the public shmlog
// package wraps it as Producer.
type Core struct {
	cfg      config.ProducerConfig
	region   *shm.Region
	buf      *ring.Buffer
	notifier notify.Notifier
	fallback interfaces.Writer
	sw       GlobalSwitch
	pid      uint32
}

// Attach implements ProducerCore construction: attach to the region,
// verify version, and initialize the notifier client.
func Attach(cfg config.ProducerConfig, sw GlobalSwitch, fallback interfaces.Writer) (*Core, error) {
	region, err := shm.AttachAndCheckVersion(cfg.ShmName, cfg.ShmSize, constants.Version, func(data []byte) uint32 {
		return ring.NewHeader(data).Version()
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}

	buf := ring.New(region.Data)

	var n notify.Notifier
	switch buf.Header().NotifyKind() {
	case ring.NotifyDescriptor:
		n = notify.AdoptEventfd(int(buf.Header().NotifyFD()))
	default:
		path := buf.Header().NotifyPath()
		if path == "" {
			path = config.NotifyPathFor(cfg.NotifyPath, cfg.ShmName)
		}
		client, err := notify.NewSocketClient(path)
		if err != nil {
			_ = region.Unmap()
			return nil, fmt.Errorf("producer: notifier client: %w", err)
		}
		n = client
	}

	logging.Debug("producer: attached", "name", cfg.ShmName, "pid", os.Getpid())
	return &Core{
		cfg:      cfg,
		region:   region,
		buf:      buf,
		notifier: n,
		fallback: fallback,
		sw:       sw,
		pid:      uint32(os.Getpid()),
	}, nil
}

// Log writes one record into the ring. usedFallback reports whether
// the record was routed to the fallback writer instead, so callers can
// account for it separately from a hard failure.
func (c *Core) Log(level record.Level, loggerName, message string) (usedFallback bool, err error) {
	if !c.sw.IsEnabled() {
		if c.fallback != nil {
			logging.Debug("producer: global switch disabled, routing to fallback", "logger", loggerName)
			return true, c.fallback.Write(record.Record{
				TimestampNs: clock.NowNanos(),
				Level:       level,
				Pid:         c.pid,
				ThreadID:    threadID(),
				LoggerName:  loggerName,
				Message:     message,
				ProcessName: processNameTag(),
				ModuleName:  moduleNameTag(),
			})
		}
		return false, nil
	}

	// The region's creation-time overflow policy governs whether a full
	// ring blocks or drops; producers carry no policy of their own.
	idx, rerr := c.buf.Reserve()
	if rerr != nil {
		if c.cfg.EnableFallback && c.fallback != nil {
			logging.Debug("producer: reserve failed, routing to fallback", "logger", loggerName, "error", rerr)
			return true, c.fallback.Write(record.Record{
				TimestampNs: clock.NowNanos(),
				Level:       level,
				Pid:         c.pid,
				ThreadID:    threadID(),
				LoggerName:  loggerName,
				Message:     message,
				ProcessName: processNameTag(),
				ModuleName:  moduleNameTag(),
			})
		}
		return false, rerr
	}

	processName := ring.PackFixedField(processNameTag())
	moduleName := ring.PackFixedField(moduleNameTag())
	c.buf.Write(idx, clock.NowNanos(), uint8(level), c.pid, threadID(), processName, moduleName, loggerName, []byte(message))
	c.buf.Commit(idx, func() { _ = c.notifier.Signal() })
	return false, nil
}

// Close unmaps the region and closes the notifier client. It never
// unlinks or destroys the region; only the consumer owns that lifecycle.
func (c *Core) Close() error {
	if c.notifier != nil {
		_ = c.notifier.Close()
	}
	return c.region.Unmap()
}

// WriteIndex, ReadIndex and Capacity expose the fields Metrics.Snapshot
// needs to compute current_usage.
func (c *Core) WriteIndex() uint64 { return c.buf.Header().WriteIndexRelaxed() }
func (c *Core) ReadIndex() uint64  { return c.buf.Header().ReadIndexRelaxed() }
func (c *Core) Capacity() uint32   { return c.buf.Capacity() }

