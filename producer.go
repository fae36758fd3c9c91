package shmlog

import (
	"errors"

	"github.com/ehrlich-b/shmlog/internal/config"
	"github.com/ehrlich-b/shmlog/internal/interfaces"
	"github.com/ehrlich-b/shmlog/internal/producer"
	"github.com/ehrlich-b/shmlog/internal/record"
	"github.com/ehrlich-b/shmlog/internal/ring"
)

// Level mirrors internal/record.Level at the public API boundary.
type Level = record.Level

const (
	LevelTrace    = record.LevelTrace
	LevelDebug    = record.LevelDebug
	LevelInfo     = record.LevelInfo
	LevelWarn     = record.LevelWarn
	LevelError    = record.LevelError
	LevelCritical = record.LevelCritical
)

// OverflowPolicy mirrors internal/ring.OverflowPolicy.
type OverflowPolicy = ring.OverflowPolicy

const (
	PolicyBlock = ring.PolicyBlock
	PolicyDrop  = ring.PolicyDrop
)

// ProducerConfig is the public producer option set. The overflow policy
// is not configurable here: it is fixed when the consumer creates the
// region (ConsumerConfig.OverflowPolicy) and read back from the header
// on attach, so every producer enforces the same policy.
type ProducerConfig struct {
	ShmName          string
	ShmSize          int
	SlotSize         uint32
	EnableFallback   bool
	FallbackWriter   interfaces.Writer
	NotifyPath       string
	EnableOnepFormat bool
	GlobalSwitch     *GlobalSwitch
}

// Producer attaches to an existing region and writes records for its
// lifetime. On Close it unmaps only; it never unlinks or destroys the
// region.
type Producer struct {
	core    *producer.Core
	metrics *Metrics
}

// NewProducer attaches to cfg.ShmName, verifying version, per
// ProducerCore's construction contract. Returns *Error with
// ErrCodeVersionMismatch on a version gate failure.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	sw := cfg.GlobalSwitch
	if sw == nil {
		sw = DefaultGlobalSwitch()
	}

	internalCfg := config.DefaultProducerConfig(cfg.ShmName)
	if cfg.ShmSize > 0 {
		internalCfg.ShmSize = cfg.ShmSize
	}
	if cfg.SlotSize > 0 {
		internalCfg.SlotSize = cfg.SlotSize
	}
	internalCfg.EnableFallback = cfg.EnableFallback
	internalCfg.NotifyPath = cfg.NotifyPath
	internalCfg.EnableOnepFormat = cfg.EnableOnepFormat

	core, err := producer.Attach(internalCfg, sw, cfg.FallbackWriter)
	if err != nil {
		var vm *producer.VersionMismatchError
		if errors.As(err, &vm) {
			return nil, &Error{Op: "ATTACH", Region: cfg.ShmName, Code: ErrCodeVersionMismatch, Msg: vm.Error()}
		}
		return nil, WrapError("ATTACH", err)
	}

	metrics := NewMetrics(core.Capacity(), core.WriteIndex, core.ReadIndex)
	return &Producer{core: core, metrics: metrics}, nil
}

// Log writes one record into the ring, or routes it to the fallback
// writer when the transport is disabled or full.
func (p *Producer) Log(level Level, loggerName, message string) error {
	usedFallback, err := p.core.Log(level, loggerName, message)
	if usedFallback {
		p.metrics.RecordFallback()
		return err
	}
	p.metrics.RecordWrite(err == nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, ring.ErrFull) {
		return &Error{Op: "LOG", Code: ErrCodeFull, Msg: err.Error()}
	}
	return WrapError("LOG", err)
}

// Trace logs at LevelTrace.
func (p *Producer) Trace(loggerName, message string) error { return p.Log(LevelTrace, loggerName, message) }

// Debug logs at LevelDebug.
func (p *Producer) Debug(loggerName, message string) error { return p.Log(LevelDebug, loggerName, message) }

// Info logs at LevelInfo.
func (p *Producer) Info(loggerName, message string) error { return p.Log(LevelInfo, loggerName, message) }

// Warn logs at LevelWarn.
func (p *Producer) Warn(loggerName, message string) error { return p.Log(LevelWarn, loggerName, message) }

// ErrorLog logs at LevelError (named to avoid colliding with the Error type).
func (p *Producer) ErrorLog(loggerName, message string) error { return p.Log(LevelError, loggerName, message) }

// Critical logs at LevelCritical.
func (p *Producer) Critical(loggerName, message string) error { return p.Log(LevelCritical, loggerName, message) }

// Stats returns a snapshot of this producer's observable counters.
func (p *Producer) Stats() BufferStats { return p.metrics.Snapshot() }

// Close unmaps the region and releases the notifier client.
func (p *Producer) Close() error {
	return p.core.Close()
}

// SetProcessName sets the process tag written into every subsequent
// slot's process_name field. The initial value is the basename of
// argv[0]; only the first 4 characters appear in the decoded
// display_name.
func SetProcessName(name string) { producer.SetProcessName(name) }

// SetModuleName sets the module tag written into every subsequent
// slot's module_name field. The initial value is empty (rendered as
// NULL in the process-oriented format); only the first 6 characters
// appear in the decoded display_name.
func SetModuleName(name string) { producer.SetModuleName(name) }
