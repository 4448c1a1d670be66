package store

import (
	"context"
	"database/sql"
	"time"
)

// SyncState is the persisted sync checkpoint. Policy knobs (catch-up window,
// polling interval) live in the configuration object, not here.
type SyncState struct {
	LastSuccessfulSync *time.Time `json:"lastSuccessfulSync"`
}

// ReadSyncState returns the current checkpoint, creating the default row if
// the store has never synced.
func (s *Store) ReadSyncState(ctx context.Context) (SyncState, error) {
	if _, err := s.execContext(ctx,
		`INSERT OR IGNORE INTO sync_state (id, last_successful_sync) VALUES (1, NULL)`,
	); err != nil {
		return SyncState{}, err
	}

	row, err := s.queryRowContext(ctx,
		`SELECT last_successful_sync FROM sync_state WHERE id = 1`,
	)
	if err != nil {
		return SyncState{}, err
	}

	var last sql.NullTime
	if err := row.Scan(&last); err != nil {
		return SyncState{}, err
	}

	var state SyncState
	if last.Valid {
		t := last.Time
		state.LastSuccessfulSync = &t
	}
	return state, nil
}

// RecordSuccessfulSync advances the watermark to at. The update is guarded so
// the watermark never moves backwards, even with overlapping cycles.
func (s *Store) RecordSuccessfulSync(ctx context.Context, at time.Time) error {
	at = at.UTC()
	if _, err := s.execContext(ctx,
		`INSERT OR IGNORE INTO sync_state (id, last_successful_sync) VALUES (1, NULL)`,
	); err != nil {
		return err
	}
	_, err := s.execContext(ctx, `
		UPDATE sync_state
		SET last_successful_sync = ?
		WHERE id = 1 AND (last_successful_sync IS NULL OR last_successful_sync <= ?)
	`, at, at)
	return err
}
