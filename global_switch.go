package shmlog

import "sync/atomic"

// GlobalSwitch is a process-wide atomic boolean enabling or disabling the
// transport at runtime. Every producer checks IsEnabled before every
// reserve; when disabled and a fallback writer is configured, records
// route there instead of touching shared memory.
type GlobalSwitch struct {
	enabled atomic.Bool
}

// NewGlobalSwitch returns a GlobalSwitch defaulting to enabled.
func NewGlobalSwitch() *GlobalSwitch {
	gs := &GlobalSwitch{}
	gs.enabled.Store(true)
	return gs
}

// Enable turns the transport on.
func (g *GlobalSwitch) Enable() { g.enabled.Store(true) }

// Disable turns the transport off.
func (g *GlobalSwitch) Disable() { g.enabled.Store(false) }

// Set assigns the switch state directly.
func (g *GlobalSwitch) Set(on bool) { g.enabled.Store(on) }

// IsEnabled reports the current state with Acquire semantics.
func (g *GlobalSwitch) IsEnabled() bool { return g.enabled.Load() }

// defaultGlobalSwitch is the process-wide instance producers consult
// when a Producer is not constructed with its own switch.
var defaultGlobalSwitch = NewGlobalSwitch()

// DefaultGlobalSwitch returns the package's shared GlobalSwitch.
func DefaultGlobalSwitch() *GlobalSwitch { return defaultGlobalSwitch }
