package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
)

// KeyRecord is a registered account-identifier entry in the PIX registry.
type KeyRecord struct {
	Key         string    `json:"key"`
	KeyType     string    `json:"keyType"`
	OwnerLabel  string    `json:"ownerLabel"`
	Institution string    `json:"institution"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
	Status      string    `json:"status"`
}

const keyStatusActive = "ACTIVE"

const upsertKeyQuery = `
	INSERT INTO pix_keys (key, key_type, owner, institution, created_at, status, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		key_type = excluded.key_type,
		owner = excluded.owner,
		institution = excluded.institution,
		created_at = excluded.created_at,
		status = excluded.status,
		last_updated = CURRENT_TIMESTAMP
`

// UpsertKeys inserts or replaces each record by its key value. A record that
// fails to write is skipped and reported; the rest of the batch proceeds.
func (s *Store) UpsertKeys(ctx context.Context, records []KeyRecord) (Report, error) {
	var report Report

	tx, err := s.beginTx(ctx)
	if err != nil {
		return report, err
	}
	defer tx.Rollback()

	for _, rec := range records {
		if rec.Key == "" {
			report.Skipped = append(report.Skipped, RecordFailure{ID: "", Reason: "empty key"})
			continue
		}

		status := rec.Status
		if status == "" {
			status = keyStatusActive
		}

		var createdAt interface{}
		if !rec.CreatedAt.IsZero() {
			createdAt = rec.CreatedAt.UTC()
		}

		if _, err := tx.ExecContext(ctx, upsertKeyQuery,
			rec.Key, rec.KeyType, rec.OwnerLabel, rec.Institution, createdAt, status,
		); err != nil {
			s.logger.Warn("Failed to upsert key record",
				zap.String("key", rec.Key),
				zap.Error(err),
			)
			report.Skipped = append(report.Skipped, RecordFailure{ID: rec.Key, Reason: err.Error()})
			continue
		}
		report.Written++
	}

	if err := tx.Commit(); err != nil {
		return Report{}, common.WrapError("upsert", "pix_keys", err)
	}
	return report, nil
}

// GetKey returns the stored record for a key value, or common.ErrNotFound.
func (s *Store) GetKey(ctx context.Context, key string) (*KeyRecord, error) {
	row, err := s.queryRowContext(ctx, `
		SELECT key, key_type, owner, institution, created_at, last_updated, status
		FROM pix_keys WHERE key = ?
	`, key)
	if err != nil {
		return nil, err
	}
	return scanKey(row)
}

func scanKey(row *sql.Row) (*KeyRecord, error) {
	var (
		rec       KeyRecord
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&rec.Key, &rec.KeyType, &rec.OwnerLabel, &rec.Institution,
		&createdAt, &updatedAt, &rec.Status,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		rec.LastUpdated = updatedAt.Time
	}
	return &rec, nil
}

// CountKeys returns the number of stored key records, optionally filtered by
// status. An empty status counts everything.
func (s *Store) CountKeys(ctx context.Context, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM pix_keys`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	row, err := s.queryRowContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	var count int64
	err = row.Scan(&count)
	return count, err
}
