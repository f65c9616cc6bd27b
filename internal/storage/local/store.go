// Package local implements the append-only result logs on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JakeFAU/linkprobe/internal/checker"
	"github.com/JakeFAU/linkprobe/internal/input"
)

// File names under the output directory.
const (
	UsefulFile    = "useful_links.txt"
	DiscardedFile = "discarded_links.txt"
	ProcessedFile = "processed_urls.txt"
)

// Config captures the parameters for the filesystem store.
type Config struct {
	// Dir is the output directory holding the three log files.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Store appends classified results to the log files and tracks which URLs
// already produced a content line. All mutation happens under mu so the
// check, write, and mark sequence is a single critical section.
type Store struct {
	dir string

	mu        sync.Mutex
	processed map[string]struct{}
	recorded  map[string]struct{}
}

// New creates the output directory if needed, checks it is writable, and
// loads the processed checkpoint.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat output directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", cfg.Dir)
	}

	testFile := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	processed, err := loadProcessed(filepath.Join(cfg.Dir, ProcessedFile))
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]struct{}, len(processed))
	for url := range processed {
		recorded[url] = struct{}{}
	}

	return &Store{
		dir:       cfg.Dir,
		processed: processed,
		recorded:  recorded,
	}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Processed returns a copy of the processed set as loaded at startup plus
// anything recorded since.
func (s *Store) Processed() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.processed))
	for url := range s.processed {
		out[url] = struct{}{}
	}
	return out
}

// ProcessedCount returns the number of distinct processed URLs.
func (s *Store) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

// HasBeenRecorded reports whether url already has a content line.
func (s *Store) HasBeenRecorded(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recorded[url]
	return ok
}

// Save writes the classified record for url unless one was already written,
// then appends the processed checkpoint line regardless. It reports whether
// a content line was written.
func (s *Store) Save(ctx context.Context, url string, outcome checker.Outcome) (wrote bool, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, fmt.Errorf("save canceled: %w", ctxErr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if perr := s.append(checker.ProcessedRecord(url)); perr != nil {
			err = errors.Join(err, perr)
			return
		}
		s.processed[url] = struct{}{}
	}()

	if _, ok := s.recorded[url]; ok {
		return false, nil
	}
	if err := s.append(checker.Classify(url, outcome)); err != nil {
		return false, err
	}
	s.recorded[url] = struct{}{}
	return true, nil
}

// Close releases store resources. Files are opened per append, so there is
// nothing to flush.
func (s *Store) Close() error {
	return nil
}

func (s *Store) append(rec checker.Record) error {
	path := filepath.Join(s.dir, fileFor(rec.Destination))
	// #nosec G304 -- path is built from the configured output dir and a fixed file name.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(rec.Text + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func fileFor(dest checker.Destination) string {
	switch dest {
	case checker.DestinationUseful:
		return UsefulFile
	case checker.DestinationDiscarded:
		return DiscardedFile
	default:
		return ProcessedFile
	}
}

// loadProcessed reads the checkpoint with set semantics; duplicate lines
// collapse. A missing file is an empty set.
func loadProcessed(path string) (map[string]struct{}, error) {
	processed := make(map[string]struct{})
	// #nosec G304 -- path is built from the configured output dir and a fixed file name.
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return processed, nil
		}
		return nil, fmt.Errorf("open processed log: %w", err)
	}
	defer f.Close()

	urls, err := input.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read processed log: %w", err)
	}
	for _, url := range urls {
		processed[url] = struct{}{}
	}
	return processed, nil
}
