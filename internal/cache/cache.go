// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores generated documents on disk, one JSON record per
// topic, keyed by the SHA-256 of the topic text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-engine/pkg/types"
)

const recordExt = ".json"

// Status classifies a lookup.
type Status int

const (
	Miss Status = iota
	Hit
	Error
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of a lookup. Entry is set only on Hit; Err only on
// Error. Callers that only care about hits can treat Error like Miss.
type Result struct {
	Status Status
	Entry  types.CacheEntry
	Err    error
}

// Store is a directory of cache records. It is safe for concurrent use:
// records for distinct topics live in distinct files, and writes are atomic.
type Store struct {
	dir     string
	enabled bool
	log     *zap.Logger
	now     func() time.Time
}

// New returns a Store for cfg. When caching is enabled the directory is
// created up front; failure to do so is logged, not returned.
func New(cfg types.CacheConfig, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{dir: cfg.Dir, enabled: cfg.Enabled, log: log, now: time.Now}
	if s.enabled {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			log.Warn("creating cache directory", zap.String("dir", s.dir), zap.Error(err))
		}
	}
	return s
}

// Enabled reports whether the store reads and writes records.
func (s *Store) Enabled() bool { return s.enabled }

// Key returns the record key for topic.
func Key(topic string) string {
	sum := sha256.Sum256([]byte(topic))
	return hex.EncodeToString(sum[:])
}

// Path returns the record file path for topic.
func (s *Store) Path(topic string) string {
	return filepath.Join(s.dir, Key(topic)+recordExt)
}

// Lookup returns the cached document for topic. A missing record, a record
// with an empty document, or a record for a different topic is a Miss. An
// unreadable or unparseable record is an Error and is logged.
func (s *Store) Lookup(topic string) Result {
	if !s.enabled {
		return Result{Status: Miss}
	}

	path := s.Path(topic)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Status: Miss}
		}
		s.log.Warn("cache read error", zap.String("path", path), zap.Error(err))
		return Result{Status: Error, Err: fmt.Errorf("reading cache record: %w", err)}
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.log.Warn("cache record corrupt", zap.String("path", path), zap.Error(err))
		return Result{Status: Error, Err: fmt.Errorf("parsing cache record %s: %w", path, err)}
	}

	if entry.Topic != topic {
		s.log.Warn("cache key collision; ignoring record",
			zap.String("path", path),
			zap.String("topic", topic),
			zap.String("stored_topic", entry.Topic),
		)
		return Result{Status: Miss}
	}
	if entry.Document == "" {
		return Result{Status: Miss}
	}

	return Result{Status: Hit, Entry: entry}
}

// Save writes the document for topic. The record is written to a temporary
// file and renamed into place so readers never see a partial record.
func (s *Store) Save(topic, document string) error {
	if !s.enabled {
		return nil
	}

	data, err := json.Marshal(types.CacheEntry{
		Topic:     topic,
		Document:  document,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling cache record: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, Key(topic)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(topic)); err != nil {
		return fmt.Errorf("renaming cache record: %w", err)
	}
	return nil
}

// Purge removes every record in the cache directory and returns how many
// were removed. A missing directory is not an error.
func (s *Store) Purge() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory %s: %w", s.dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
