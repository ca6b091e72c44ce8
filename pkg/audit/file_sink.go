package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSink appends entries as newline-delimited JSON to a rotating log file.
// Useful as a fallback channel when the database sink is unavailable, and
// for single-node deployments without an audit database.
type FileSink struct {
	basePath string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	written int64
}

// FileSinkConfig configures the file sink.
type FileSinkConfig struct {
	BasePath string
	MaxSize  int64 // bytes before rotation
	MaxFiles int   // rotated files kept
}

// DefaultFileSinkConfig returns the default file sink configuration.
func DefaultFileSinkConfig() FileSinkConfig {
	return FileSinkConfig{
		BasePath: "/var/log/warden/access",
		MaxSize:  100 * 1024 * 1024,
		MaxFiles: 10,
	}
}

// NewFileSink creates a file sink, creating the directory if needed.
func NewFileSink(cfg FileSinkConfig) (*FileSink, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultFileSinkConfig().MaxSize
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultFileSinkConfig().MaxFiles
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create access log directory: %w", err)
	}
	s := &FileSink{
		basePath: cfg.BasePath,
		maxSize:  cfg.MaxSize,
		maxFiles: cfg.MaxFiles,
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) currentPath() string {
	return filepath.Join(s.basePath, "access.log")
}

func (s *FileSink) open() error {
	file, err := os.OpenFile(s.currentPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open access log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat access log file: %w", err)
	}
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.written = info.Size()
	return nil
}

// Append writes one NDJSON line, rotating first when the file is full.
func (s *FileSink) Append(_ context.Context, entry *Entry) error {
	stampID(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written >= s.maxSize {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	if err := s.encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to write access log entry: %w", err)
	}
	// Close enough for rotation purposes; exact byte accounting would
	// require re-encoding.
	s.written += 256
	return nil
}

func (s *FileSink) rotate() error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	rotated := filepath.Join(s.basePath, fmt.Sprintf("access-%s.log", time.Now().Format("2006-01-02-15-04-05")))
	if err := os.Rename(s.currentPath(), rotated); err != nil {
		return fmt.Errorf("failed to rotate access log: %w", err)
	}
	if err := s.cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to clean up rotated access logs: %v\n", err)
	}
	return s.open()
}

func (s *FileSink) cleanup() error {
	files, err := filepath.Glob(filepath.Join(s.basePath, "access-*.log"))
	if err != nil {
		return err
	}
	if len(files) <= s.maxFiles {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(files)
	for _, f := range files[:len(files)-s.maxFiles] {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the current file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
