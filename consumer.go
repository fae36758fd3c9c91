package shmlog

import (
	"os"
	"time"

	"github.com/ehrlich-b/shmlog/internal/config"
	"github.com/ehrlich-b/shmlog/internal/consumer"
	"github.com/ehrlich-b/shmlog/internal/interfaces"
	"github.com/ehrlich-b/shmlog/internal/logging"
	"github.com/ehrlich-b/shmlog/internal/writer"
)

// ConsumerConfig is the public consumer option set.
// Zero-valued ShmSize, SlotSize, LogDir, LogName, MaxFileSizeMB,
// MaxFiles, PollInterval, PollDuration and StaleThreshold fall back to
// DefaultConsumerConfig's values; every other field is taken at face
// value, so CreateShm, EnableRotating and DestroyOnExit default to false
// and OverflowPolicy to PolicyBlock. The console writer is on unless
// DisableConsole is set; the file writer is opt-in via EnableFile.
type ConsumerConfig struct {
	ShmName          string
	ShmSize          int
	CreateShm        bool
	SlotSize         uint32
	OverflowPolicy   OverflowPolicy
	LogDir           string
	LogName          string
	DisableConsole   bool
	EnableFile       bool
	EnableRotating   bool
	MaxFileSizeMB    int
	MaxFiles         int
	PollInterval     time.Duration
	PollDuration     time.Duration
	StaleThreshold   time.Duration
	EnableOnepFormat bool
	DestroyOnExit    bool
	NotifyPath       string
	Threshold        Level
	Writers          []interfaces.Writer
	Logger           interfaces.Logger
	Observer         Observer
}

// Consumer owns a shared-memory region's lifecycle: it creates the
// region, starts the background drain loop, and on Stop drains every
// outstanding committed slot before unmapping (and, per
// cfg.DestroyOnExit, unlinking) the region.
type Consumer struct {
	core    *consumer.Core
	metrics *Metrics
}

// NewConsumer creates (or attaches to, per cfg.CreateShm) the named
// region and wires the downstream writer list described by cfg. It does
// not start the drain loop; call Start for that.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	internalCfg := config.DefaultConsumerConfig(cfg.ShmName)
	internalCfg.CreateShm = cfg.CreateShm
	if cfg.ShmSize > 0 {
		internalCfg.ShmSize = cfg.ShmSize
	}
	if cfg.SlotSize > 0 {
		internalCfg.SlotSize = cfg.SlotSize
	}
	internalCfg.OverflowPolicy = cfg.OverflowPolicy
	if cfg.LogDir != "" {
		internalCfg.LogDir = cfg.LogDir
	}
	if cfg.LogName != "" {
		internalCfg.LogName = cfg.LogName
	}
	internalCfg.EnableRotating = cfg.EnableRotating
	if cfg.MaxFileSizeMB > 0 {
		internalCfg.MaxFileSizeMB = cfg.MaxFileSizeMB
	}
	if cfg.MaxFiles > 0 {
		internalCfg.MaxFiles = cfg.MaxFiles
	}
	if cfg.PollInterval > 0 {
		internalCfg.PollInterval = cfg.PollInterval
	}
	if cfg.PollDuration > 0 {
		internalCfg.PollDuration = cfg.PollDuration
	}
	if cfg.StaleThreshold > 0 {
		internalCfg.StaleThreshold = cfg.StaleThreshold
	}
	internalCfg.EnableOnepFormat = cfg.EnableOnepFormat
	internalCfg.DestroyOnExit = cfg.DestroyOnExit
	internalCfg.NotifyPath = cfg.NotifyPath
	internalCfg.Threshold = cfg.Threshold

	writers := cfg.Writers
	if writers == nil {
		var err error
		writers, err = defaultWriters(cfg, internalCfg)
		if err != nil {
			return nil, WrapError("CONSUMER_INIT", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	metrics := NewMetrics(0, nil, nil)
	var obs interfaces.Observer
	if cfg.Observer != nil {
		obs = &observerAdapter{o: cfg.Observer}
	} else {
		obs = &metricsObserverAdapter{m: metrics}
	}

	core, err := consumer.New(internalCfg, writers, logger, obs)
	if err != nil {
		return nil, WrapError("CREATE", err)
	}

	metrics.capacity = core.Capacity()
	return &Consumer{core: core, metrics: metrics}, nil
}

// defaultWriters builds the console/file writer pair the consumer
// dispatches to when the caller supplied no Writers slice of its own.
func defaultWriters(cfg ConsumerConfig, internalCfg config.ConsumerConfig) ([]interfaces.Writer, error) {
	var writers []interfaces.Writer

	if !cfg.DisableConsole {
		writers = append(writers, writer.NewConsoleWriter(os.Stdout, cfg.EnableOnepFormat, cfg.Threshold))
	}

	if cfg.EnableFile {
		fw, err := writer.NewFileWriter(writer.FileConfig{
			Dir:            internalCfg.LogDir,
			Name:           internalCfg.LogName,
			EnableRotating: internalCfg.EnableRotating,
			MaxFileSizeMB:  internalCfg.MaxFileSizeMB,
			MaxFiles:       internalCfg.MaxFiles,
			OnepFormat:     cfg.EnableOnepFormat,
			Threshold:      cfg.Threshold,
		})
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
	}

	return writers, nil
}

// Start launches the background drain loop.
func (c *Consumer) Start() { c.core.Start() }

// Stop signals cooperative shutdown and blocks until the drain loop has
// drained every outstanding committed slot and flushed every writer.
func (c *Consumer) Stop() { c.core.Stop() }

// Stats returns a snapshot of this consumer's observable counters.
// CurrentUsage and Capacity are read from the ring. TotalReads and
// StaleReclaimed are counted here only when no Observer is configured.
// The consumer does not count producer writes or drops, so TotalWrites,
// DroppedMessages and FallbackWrites are always zero.
func (c *Consumer) Stats() BufferStats {
	stats := c.metrics.Snapshot()
	stats.CurrentUsage = c.core.CurrentUsage()
	stats.Capacity = c.core.Capacity()
	return stats
}

// observerAdapter bridges the public Observer interface to
// internal/interfaces.Observer so application code can supply its own
// Observer without depending on internal packages.
type observerAdapter struct{ o Observer }

func (a *observerAdapter) ObserveWrite(success bool)         { a.o.ObserveWrite(success) }
func (a *observerAdapter) ObserveRead(success bool)           { a.o.ObserveRead(success) }
func (a *observerAdapter) ObserveDrop()                       { a.o.ObserveDrop() }
func (a *observerAdapter) ObserveQueueDepth(depth uint32)     { a.o.ObserveQueueDepth(depth) }
func (a *observerAdapter) ObserveStaleReclaimed(count int)    { a.o.ObserveStaleReclaimed(count) }

// metricsObserverAdapter feeds the consumer's default Observer calls
// into this Consumer's own Metrics when the caller supplies none.
type metricsObserverAdapter struct{ m *Metrics }

func (a *metricsObserverAdapter) ObserveWrite(success bool) { a.m.RecordWrite(success) }
func (a *metricsObserverAdapter) ObserveRead(success bool) {
	if success {
		a.m.RecordRead()
	}
}
func (a *metricsObserverAdapter) ObserveDrop()             { a.m.DroppedMessages.Add(1) }
func (a *metricsObserverAdapter) ObserveQueueDepth(uint32) {}
func (a *metricsObserverAdapter) ObserveStaleReclaimed(count int) {
	a.m.RecordStaleReclaimed(uint64(count))
}

var (
	_ interfaces.Observer = (*observerAdapter)(nil)
	_ interfaces.Observer = (*metricsObserverAdapter)(nil)
)
