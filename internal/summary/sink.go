package summary

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultFileName is the summary log file inside the log directory.
	DefaultFileName = "iperf_summary.log"
	// SystemLogDir is used when running as root.
	SystemLogDir = "/var/log/iperf_tests"
	// UserLogDirName is created under the home directory otherwise.
	UserLogDirName = "iperf_logs"
)

// SinkConfig selects where and how the summary log is written.
type SinkConfig struct {
	// Dir is the preferred directory.
	Dir string
	// FallbackDir is tried when Dir cannot be created or written.
	FallbackDir string
	// File is the log file name inside the directory.
	File string
	// MaxSizeMB enables size based rotation when > 0.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int
}

// Sink appends serialized records to the summary log.
type Sink struct {
	path string
	mu   sync.Mutex
	w    io.WriteCloser
}

// DefaultLogDirs returns the preferred and fallback log directories for a
// process with the given effective uid and home directory.
func DefaultLogDirs(euid int, home string) (dir, fallback string) {
	user := filepath.Join(home, UserLogDirName)
	if euid == 0 {
		return SystemLogDir, user
	}
	return user, ""
}

// OpenSink opens the summary log for appending, falling back to
// cfg.FallbackDir when the preferred directory is unusable.
func OpenSink(cfg SinkConfig) (*Sink, error) {
	if cfg.File == "" {
		cfg.File = DefaultFileName
	}
	sink, err := openSinkIn(cfg, cfg.Dir)
	if err == nil {
		return sink, nil
	}
	if cfg.FallbackDir == "" || cfg.FallbackDir == cfg.Dir {
		return nil, err
	}
	fallback, fbErr := openSinkIn(cfg, cfg.FallbackDir)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return fallback, nil
}

func openSinkIn(cfg SinkConfig, dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, cfg.File)
	if cfg.MaxSizeMB > 0 {
		// lumberjack opens lazily; probe writability now so fallback still works.
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open summary log %q: %w", path, err)
		}
		_ = f.Close()
		return &Sink{path: path, w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open summary log %q: %w", path, err)
	}
	return &Sink{path: path, w: f}, nil
}

// Path is the file the sink appends to.
func (s *Sink) Path() string {
	return s.path
}

// Append writes the record's line followed by a newline.
func (s *Sink) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, r.Line()+"\n"); err != nil {
		return fmt.Errorf("append summary to %q: %w", s.path, err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
