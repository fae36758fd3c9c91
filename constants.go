package shmlog

import "github.com/ehrlich-b/shmlog/internal/constants"

// Re-exported defaults for the public API; internal/constants remains
// the source of truth.
const (
	Version               = constants.Version
	DefaultSlotSize       = constants.DefaultSlotSize
	DefaultCapacityHint   = constants.DefaultCapacityHint
	DefaultRegionSize     = constants.DefaultRegionSize
	DefaultPollDuration   = constants.DefaultPollDuration
	DefaultPollInterval   = constants.DefaultPollInterval
	DefaultStaleThreshold = constants.DefaultStaleThreshold
)
