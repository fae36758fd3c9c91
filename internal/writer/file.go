package writer

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/lethe"

	"github.com/ehrlich-b/shmlog/internal/decode"
	"github.com/ehrlich-b/shmlog/internal/record"
)

// FileWriter renders records, uncolored, to a rotating log file via
// lethe.Logger, which handles size- and age-based rotation and
// background flushing.
type FileWriter struct {
	logger     *lethe.Logger
	onepFormat bool
	threshold  record.Level
	mu         sync.Mutex
}

// FileConfig mirrors the consumer configuration fields that govern
// rotation: log_dir, log_name, enable_rotating, max_file_size, max_files.
type FileConfig struct {
	Dir            string
	Name           string
	EnableRotating bool
	MaxFileSizeMB  int
	MaxFiles       int
	OnepFormat     bool
	Threshold      record.Level
}

// NewFileWriter opens (creating if needed) the rotating log file
// described by cfg.
func NewFileWriter(cfg FileConfig) (*FileWriter, error) {
	path := filepath.Join(cfg.Dir, cfg.Name)

	var (
		l   *lethe.Logger
		err error
	)
	if cfg.EnableRotating {
		l, err = lethe.New(path, cfg.MaxFileSizeMB, cfg.MaxFiles)
	} else {
		l, err = lethe.NewSimple(path, fmt.Sprintf("%dMB", cfg.MaxFileSizeMB), cfg.MaxFiles)
	}
	if err != nil {
		return nil, fmt.Errorf("writer: open %s: %w", path, err)
	}

	return &FileWriter{logger: l, onepFormat: cfg.OnepFormat, threshold: cfg.Threshold}, nil
}

// Write implements interfaces.Writer.
func (w *FileWriter) Write(rec record.Record) error {
	if rec.Level < w.threshold {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	name := rec.LoggerName
	if w.onepFormat {
		name = decode.DisplayName(rec.ProcessName, rec.ModuleName)
	}

	ts := time.Unix(0, int64(rec.TimestampNs)).Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] [%d/%d] %s: %s\n", ts, rec.Level.String(), rec.Pid, rec.ThreadID, name, rec.Message)
	_, err := w.logger.Write([]byte(line))
	return err
}

// Flush does not force output to disk: it returns nil without calling
// into lethe.Logger, which writes buffered output itself and on Close.
func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return nil
}

// Close closes the rotating file, waiting for background work to finish.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.logger.Close()
}
