// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists completed fix runs in an embedded BadgerDB
// store so past runs can be listed, inspected, and pruned.
//
// The store lives under <project>/.phpstan-fixer/history. Its absence or
// failure is never fatal to fixing; front ends write to it best-effort
// after a run completes.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
)

// DirName is the store location relative to the project root.
const DirName = ".phpstan-fixer/history"

var (
	// ErrNotFound is returned when no record exists for a run ID.
	ErrNotFound = errors.New("run not found")
)

var keyPrefix = []byte("run:")

// Record is the persisted summary of one completed run.
type Record struct {
	RunID          string            `json:"run_id"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration"`
	Passes         int               `json:"passes"`
	PassCounts     []int             `json:"pass_counts"`
	FixedCount     int               `json:"fixed_count"`
	UnfixableCount int               `json:"unfixable_count"`
	TouchedFiles   map[string]string `json:"touched_files"`
	Messages       []string          `json:"messages"`
	DryRun         bool              `json:"dry_run"`
}

// RecordOf summarizes a FixResult into its history record.
func RecordOf(r *fixer.FixResult) Record {
	return Record{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		Duration:       r.Duration,
		Passes:         r.Passes,
		PassCounts:     r.PassCounts,
		FixedCount:     len(r.Fixed),
		UnfixableCount: len(r.Unfixable),
		TouchedFiles:   r.TouchedFiles,
		Messages:       r.Messages,
		DryRun:         r.DryRun,
	}
}

// Config holds store configuration.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the store in RAM, for tests.
	InMemory bool

	// TTL expires records automatically; zero keeps them until pruned.
	TTL time.Duration

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration for a project root.
func DefaultConfig(projectRoot string) Config {
	return Config{Path: filepath.Join(projectRoot, DirName)}
}

// badgerLogger adapts slog to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a badger-backed run archive.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB handles its own locking.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (and if needed creates) the history store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db, ttl: cfg.TTL}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one run record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.RunID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(rec.RunID), raw)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get loads one run by ID.
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// List returns records sorted newest first, capped at limit (0 = all).
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Prune deletes records that started before the cutoff. Returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := now.Add(-olderThan)

	records, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, rec := range records {
		if !rec.StartedAt.Before(cutoff) {
			continue
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key(rec.RunID))
		})
		if err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func key(runID string) []byte {
	return append(append([]byte{}, keyPrefix...), runID...)
}
