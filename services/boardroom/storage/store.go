// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage persists session records in an embedded BadgerDB.
// Checkpoints make the human-suspension point survivable: a session
// suspended at AWAITING_L0 can be reloaded and resumed in a different
// process. Archived records are the terminal history; the tool
// registry shares the same database under its own key prefix.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

var (
	// ErrNotFound indicates no record exists for the trace ID.
	ErrNotFound = errors.New("session not found")

	// ErrStorageUnavailable wraps any underlying database failure so
	// the policy layer can decide retry vs fail-session.
	ErrStorageUnavailable = errors.New("session store unavailable")
)

const (
	checkpointPrefix = "checkpoint/"
	archivePrefix    = "archive/"
	toolPrefix       = "tool/"
)

// Config holds configuration for the session store.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory
	// is true. A leading ~ expands to the home directory.
	Path string

	// InMemory enables in-memory mode for tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// Store is a BadgerDB-backed session store.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens the store, creating the directory on first use.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent store")
		}
		path := expandHome(cfg.Path)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrStorageUnavailable, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway store for tests.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close releases the database. Safe to call once.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCheckpoint serializes the record under its trace ID. Called at
// every suspension point and after every machine run, so a crash never
// loses more than the stage in flight.
func (s *Store) SaveCheckpoint(ctx context.Context, rec *datatypes.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.TraceID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(checkpointPrefix+rec.TraceID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: save checkpoint %s: %v", ErrStorageUnavailable, rec.TraceID, err)
	}
	return nil
}

// LoadCheckpoint rehydrates a session snapshot by trace ID.
func (s *Store) LoadCheckpoint(ctx context.Context, traceID string) (*datatypes.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec datatypes.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointPrefix + traceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, traceID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint %s: %v", ErrStorageUnavailable, traceID, err)
	}
	return &rec, nil
}

// Archive moves a terminal record into the permanent history and
// drops its checkpoint.
func (s *Store) Archive(ctx context.Context, rec *datatypes.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rec.Phase.IsTerminal() {
		return fmt.Errorf("session %s is not terminal (phase %s)", rec.TraceID, rec.Phase)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.TraceID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(archivePrefix+rec.TraceID), data); err != nil {
			return err
		}
		return txn.Delete([]byte(checkpointPrefix + rec.TraceID))
	})
	if err != nil {
		return fmt.Errorf("%w: archive %s: %v", ErrStorageUnavailable, rec.TraceID, err)
	}
	return nil
}

// LoadArchived returns a terminal record from the history.
func (s *Store) LoadArchived(ctx context.Context, traceID string) (*datatypes.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec datatypes.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(archivePrefix + traceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, traceID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load archive %s: %v", ErrStorageUnavailable, traceID, err)
	}
	return &rec, nil
}

// Load finds a record wherever it lives: live checkpoint first, then
// the archive.
func (s *Store) Load(ctx context.Context, traceID string) (*datatypes.SessionRecord, error) {
	rec, err := s.LoadCheckpoint(ctx, traceID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.LoadArchived(ctx, traceID)
}

// ListCheckpoints returns every live (non-archived) session snapshot,
// used by the checkpoint-deadline sweeper on startup.
func (s *Store) ListCheckpoints(ctx context.Context) ([]*datatypes.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*datatypes.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(checkpointPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec datatypes.SessionRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list checkpoints: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// ===== Tool Registry =====

// Update records a tool status intent from the self-healing loop.
func (s *Store) Update(ctx context.Context, update datatypes.ToolUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(struct {
		datatypes.ToolUpdate
		UpdatedAt time.Time `json:"updated_at"`
	}{update, time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal tool update %s: %w", update.Name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(toolPrefix+update.Name), data)
	})
	if err != nil {
		return fmt.Errorf("%w: update tool %s: %v", ErrStorageUnavailable, update.Name, err)
	}
	return nil
}

// Tool returns the last recorded status intent for a tool name.
func (s *Store) Tool(ctx context.Context, name string) (datatypes.ToolUpdate, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.ToolUpdate{}, err
	}
	var update datatypes.ToolUpdate
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(toolPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &update)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.ToolUpdate{}, fmt.Errorf("%w: tool %s", ErrNotFound, name)
	}
	if err != nil {
		return datatypes.ToolUpdate{}, fmt.Errorf("%w: load tool %s: %v", ErrStorageUnavailable, name, err)
	}
	return update, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
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

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
