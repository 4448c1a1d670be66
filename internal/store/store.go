// Package store is the durable repository for PIX registry data: key records,
// transaction records, the sync watermark and an append-only operational log,
// all backed by a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
)

const defaultBusyTimeout = 5 * time.Second

// Store owns the SQLite artifact. All writes go through the underlying
// engine's transactional guarantees, so concurrent cycles are safe.
type Store struct {
	logger      *zap.Logger
	path        string
	busyTimeout time.Duration

	// mu guards the handle swap performed by Reopen during restore.
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if necessary) the storage artifact at path and ensures
// the schema exists. Any failure here is fatal to the caller.
func Open(path string, busyTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create data directory: %v", common.ErrStoreUnavailable, err)
		}
	}

	db, err := open(path, busyTimeout)
	if err != nil {
		return nil, err
	}

	s := &Store{
		logger:      logger,
		path:        path,
		busyTimeout: busyTimeout,
		db:          db,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %v", common.ErrStoreUnavailable, err)
	}

	logger.Info("Store opened", zap.String("path", path))
	return s, nil
}

func open(path string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	// A single writer connection sidesteps SQLITE_BUSY between in-process
	// writers; reads share it as well.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return db, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the location of the storage artifact. The backup manager uses
// it without the store knowing anything about backup policy.
func (s *Store) Path() string {
	return s.path
}

// Reopen discards the current handle and opens the artifact again. Called
// after a restore replaced the file underneath us; the caller must hold the
// restore gate so no cycle is in flight.
func (s *Store) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
	}

	db, err := open(s.path, s.busyTimeout)
	if err != nil {
		s.db = nil
		return err
	}
	s.db = db

	s.logger.Info("Store reopened", zap.String("path", s.path))
	return nil
}

// SnapshotTo writes a consistent copy of the live database to dest using
// SQLite's VACUUM INTO. The live artifact is never mutated.
func (s *Store) SnapshotTo(ctx context.Context, dest string) error {
	// VACUUM INTO refuses single quotes in the target; reject rather than
	// mis-quote.
	if strings.ContainsRune(dest, '\'') {
		return fmt.Errorf("%w: snapshot path must not contain quotes", common.ErrInvalidInput)
	}
	db := s.handle()
	if db == nil {
		return common.ErrStoreUnavailable
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest))
	return err
}

func (s *Store) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db := s.handle()
	if db == nil {
		return nil, common.ErrStoreUnavailable
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) queryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	db := s.handle()
	if db == nil {
		return nil, common.ErrStoreUnavailable
	}
	return db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRowContext(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	db := s.handle()
	if db == nil {
		return nil, common.ErrStoreUnavailable
	}
	return db.QueryRowContext(ctx, query, args...), nil
}

func (s *Store) beginTx(ctx context.Context) (*sql.Tx, error) {
	db := s.handle()
	if db == nil {
		return nil, common.ErrStoreUnavailable
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return tx, nil
}
