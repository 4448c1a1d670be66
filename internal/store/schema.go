package store

import (
	"context"
	"time"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pix_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT UNIQUE NOT NULL,
		key_type TEXT,
		owner TEXT,
		institution TEXT,
		created_at TIMESTAMP,
		last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'ACTIVE'
	)`,
	`CREATE TABLE IF NOT EXISTS pix_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		end_to_end_id TEXT UNIQUE NOT NULL,
		source_key TEXT,
		dest_key TEXT,
		amount REAL,
		occurred_at TIMESTAMP,
		status TEXT,
		source_info TEXT,
		dest_info TEXT,
		agent_modality TEXT,
		raw_payload TEXT,
		processed INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_successful_sync TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS system_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		module TEXT,
		level TEXT,
		message TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pix_transactions_occurred_at
		ON pix_transactions (occurred_at)`,
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
