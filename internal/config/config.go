// Package config parses the NAME environment variable and --shm-name
// argv conventions and holds the recognized Producer/Consumer option
// fields. Malformed input is reported as "not configured" (a zero value
// plus ok=false), never an abort.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ehrlich-b/shmlog/internal/constants"
	"github.com/ehrlich-b/shmlog/internal/notify"
	"github.com/ehrlich-b/shmlog/internal/record"
	"github.com/ehrlich-b/shmlog/internal/ring"
)

// EnvSpec is the decoded form of the NAME=<shm_name>:<size>[:<fd>]
// environment variable.
type EnvSpec struct {
	ShmName string
	Size    int
	FD      int // -1 if not present
}

// LoadDotEnv optionally sources a .env file (if present) into the
// process environment before ParseEnv/ParseArgv run, so a producer
// started by a process manager can pick up its shm name from a dotenv
// file. A missing file is not an error.
func LoadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// ParseEnv parses the NAME env var. ok is false on any malformed field.
func ParseEnv(value string) (EnvSpec, bool) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return EnvSpec{}, false
	}
	name := parts[0]
	if name == "" {
		return EnvSpec{}, false
	}
	size, err := strconv.Atoi(parts[1])
	if err != nil || size <= 0 {
		return EnvSpec{}, false
	}
	fd := -1
	if len(parts) == 3 {
		fd, err = strconv.Atoi(parts[2])
		if err != nil {
			return EnvSpec{}, false
		}
	}
	return EnvSpec{ShmName: name, Size: size, FD: fd}, true
}

// ParseArgvShmName scans argv for --shm-name=<v> or --shm-name <v>.
func ParseArgvShmName(argv []string) (string, bool) {
	for i, a := range argv {
		if v, found := strings.CutPrefix(a, "--shm-name="); found {
			if v == "" {
				return "", false
			}
			return v, true
		}
		if a == "--shm-name" && i+1 < len(argv) {
			v := argv[i+1]
			if v == "" {
				return "", false
			}
			return v, true
		}
	}
	return "", false
}

// Resolve applies the documented precedence: NAME env var first, then
// --shm-name argv, returning ok=false ("not configured") if neither
// yields a valid value.
func Resolve(argv []string) (EnvSpec, bool) {
	if v, ok := os.LookupEnv("NAME"); ok {
		if spec, ok := ParseEnv(v); ok {
			return spec, true
		}
	}
	if name, ok := ParseArgvShmName(argv); ok {
		return EnvSpec{ShmName: name, Size: -1, FD: -1}, true
	}
	return EnvSpec{}, false
}

// ConsumerConfig holds the recognized consumer options.
type ConsumerConfig struct {
	ShmName          string
	ShmSize          int
	CreateShm        bool
	ShmOffset        int
	LogDir           string
	LogName          string
	LogFile          bool
	EnableRotating   bool
	MaxFileSizeMB    int
	MaxFiles         int
	SlotSize         uint32
	PollInterval     time.Duration
	PollDuration     time.Duration
	AsyncMode        bool
	EnableOnepFormat bool
	DestroyOnExit    bool
	NotifyKind       ring.NotifyKind
	NotifyPath       string
	NotifyFD         int32
	DebugFormat      bool
	OverflowPolicy   ring.OverflowPolicy
	StaleThreshold   time.Duration
	Threshold        record.Level
}

// DefaultConsumerConfig returns the documented defaults.
func DefaultConsumerConfig(shmName string) ConsumerConfig {
	return ConsumerConfig{
		ShmName:        shmName,
		ShmSize:        constants.DefaultRegionSize,
		CreateShm:      true,
		LogDir:         ".",
		LogName:        "shmlog.log",
		LogFile:        true,
		EnableRotating: true,
		MaxFileSizeMB:  100,
		MaxFiles:       10,
		SlotSize:       constants.DefaultSlotSize,
		PollInterval:   constants.DefaultPollInterval,
		PollDuration:   constants.DefaultPollDuration,
		DestroyOnExit:  true,
		NotifyKind:     ring.NotifySocketPath, // socket-path works between unrelated processes
		NotifyFD:       -1,
		OverflowPolicy: ring.PolicyDrop,
		StaleThreshold: constants.DefaultStaleThreshold,
		Threshold:      record.LevelTrace,
	}
}

// ProducerConfig holds the recognized producer options. The overflow
// policy is deliberately absent: it is a region-creation-time property
// the consumer writes into the header, and every attached producer
// enforces the header's value.
type ProducerConfig struct {
	ShmName          string
	ShmSize          int
	ShmHandle        int
	ShmOffset        int
	SlotSize         uint32
	BlockTimeout     time.Duration
	EnableFallback   bool
	NotifyKind       ring.NotifyKind
	NotifyPath       string
	NotifyFD         int32
	AsyncMode        bool
	EnableOnepFormat bool
}

// DefaultProducerConfig returns the documented defaults.
func DefaultProducerConfig(shmName string) ProducerConfig {
	return ProducerConfig{
		ShmName:    shmName,
		SlotSize:   constants.DefaultSlotSize,
		NotifyKind: ring.NotifySocketPath,
		NotifyFD:   -1,
	}
}

// NotifyPathFor computes the effective notifier path: userPath when
// non-empty, otherwise the path derived from the region name.
func NotifyPathFor(userPath, shmName string) string {
	return notify.ResolvePath(userPath, notify.DefaultTmpDir(), "shmlog", shmName)
}
