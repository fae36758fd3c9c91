// Package shm implements ShmRegion: create/attach/unmap/destroy of a
// named POSIX shared-memory region, backed directly by the /dev/shm
// tmpfs the way glibc's shm_open does, since the Go standard library and
// golang.org/x/sys expose mmap/ftruncate but not shm_open itself.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/shmlog/internal/logging"
	"github.com/ehrlich-b/shmlog/internal/registry"
)

// shmDir is the directory backing shared memory objects: the /dev/shm
// tmpfs on Linux, and a shmlog-shm directory under os.TempDir on Darwin,
// which has no such mount.
func shmDir() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(os.TempDir(), "shmlog-shm")
	}
	return "/dev/shm"
}

// objectPath maps a region name ("/appshm") to its backing file path.
func objectPath(name string) (string, error) {
	if name == "" || !strings.HasPrefix(name, "/") || strings.Contains(name[1:], "/") {
		return "", fmt.Errorf("shm: invalid region name %q", name)
	}
	return filepath.Join(shmDir(), name[1:]), nil
}

// Region is a mapped shared-memory object.
type Region struct {
	Name string
	Data []byte

	mu     sync.Mutex
	mapped bool
}

// Create creates (or truncates) a named region of the given size, maps
// it read/write, and records the name in the per-user registry.
func Create(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid size %d for %q", size, name)
	}
	path, err := objectPath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o1777); err != nil {
		return nil, fmt.Errorf("shm: create dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("shm: create %q: %w", name, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("shm: truncate %q: %w", name, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %q: %w", name, err)
	}

	if err := registry.Register(name); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("shm: register %q: %w", name, err)
	}

	logging.Debug("shm: region created", "name", name, "size", size)
	return &Region{Name: name, Data: data, mapped: true}, nil
}

// Attach maps an existing region without version validation.
func Attach(name string, size int) (*Region, error) {
	path, err := objectPath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: attach %q: %w", name, err)
	}
	defer f.Close()

	if size <= 0 {
		info, statErr := f.Stat()
		if statErr != nil {
			return nil, fmt.Errorf("shm: stat %q: %w", name, statErr)
		}
		size = int(info.Size())
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid handle %q (zero size)", name)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %q: %w", name, err)
	}

	logging.Debug("shm: region attached", "name", name, "size", size)
	return &Region{Name: name, Data: data, mapped: true}, nil
}

// AttachAndCheckVersion attaches to name and compares the mapped
// region's header version (at byte offset 0, a little-endian uint32)
// against expected, unmapping and returning a VersionMismatchError
// without leaking the mapping if they differ. versionAt lets callers
// supply the header's version accessor without shm importing ring (it
// would otherwise create an import cycle, since ring does not depend on
// shm but producer/consumer both depend on both).
func AttachAndCheckVersion(name string, size int, expected uint32, versionAt func([]byte) uint32) (*Region, error) {
	r, err := Attach(name, size)
	if err != nil {
		return nil, err
	}
	observed := versionAt(r.Data)
	if observed != expected {
		_ = r.Unmap()
		return nil, &VersionMismatchError{Expected: expected, Observed: observed}
	}
	return r, nil
}

// VersionMismatchError reports the expected and observed header
// version.
type VersionMismatchError struct {
	Expected, Observed uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("shm: version mismatch: expected %d, observed %d", e.Expected, e.Observed)
}

// Unmap releases the process's mapping; it never touches the kernel
// object or the registry entry. Safe to call more than once.
func (r *Region) Unmap() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mapped {
		return nil
	}
	err := unix.Munmap(r.Data)
	r.mapped = false
	r.Data = nil
	return err
}

// ScanDir lists every object currently present in the platform's shared
// memory directory, returned as region names ("/appshm"). Used by
// cmd/shm-cleanup's --list on Linux, where /dev/shm is the ground truth
// and the registry file may be stale or missing.
func ScanDir() ([]string, error) {
	entries, err := os.ReadDir(shmDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("shm: scan dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, "/"+e.Name())
	}
	return names, nil
}

// Destroy removes the backing object and deregisters the name; it does
// not unmap any existing mapping of the region. Only the owning consumer should call this.
func Destroy(name string) error {
	path, err := objectPath(name)
	if err != nil {
		return err
	}
	remErr := os.Remove(path)
	if remErr != nil && !os.IsNotExist(remErr) {
		return fmt.Errorf("shm: destroy %q: %w", name, remErr)
	}
	logging.Debug("shm: region destroyed", "name", name)
	return registry.Deregister(name)
}
