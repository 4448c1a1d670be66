package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
)

// TransactionRecord is a completed or attempted PIX transfer. SourceInfo,
// DestInfo and RawPayload are stored verbatim for forward compatibility.
type TransactionRecord struct {
	EndToEndID    string          `json:"endToEndId"`
	SourceKey     *string         `json:"sourceKey"`
	DestKey       *string         `json:"destKey"`
	Amount        float64         `json:"amount"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Status        string          `json:"status"`
	SourceInfo    json.RawMessage `json:"sourceInfo,omitempty"`
	DestInfo      json.RawMessage `json:"destInfo,omitempty"`
	AgentModality string          `json:"agentModality"`
	RawPayload    json.RawMessage `json:"rawPayload,omitempty"`
	Processed     bool            `json:"processed"`
}

// The conflict branch deliberately leaves processed alone: that flag belongs
// to downstream consumers and re-ingestion must not clear it.
const upsertTransactionQuery = `
	INSERT INTO pix_transactions
		(end_to_end_id, source_key, dest_key, amount, occurred_at,
		 status, source_info, dest_info, agent_modality, raw_payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(end_to_end_id) DO UPDATE SET
		source_key = excluded.source_key,
		dest_key = excluded.dest_key,
		amount = excluded.amount,
		occurred_at = excluded.occurred_at,
		status = excluded.status,
		source_info = excluded.source_info,
		dest_info = excluded.dest_info,
		agent_modality = excluded.agent_modality,
		raw_payload = excluded.raw_payload
`

// UpsertTransactions inserts or replaces each record by endToEndId with the
// same per-record isolation as UpsertKeys. Re-fetching overlapping windows is
// safe: a duplicate simply rewrites its row with the latest field values.
func (s *Store) UpsertTransactions(ctx context.Context, records []TransactionRecord) (Report, error) {
	var report Report

	tx, err := s.beginTx(ctx)
	if err != nil {
		return report, err
	}
	defer tx.Rollback()

	for _, rec := range records {
		if rec.EndToEndID == "" {
			report.Skipped = append(report.Skipped, RecordFailure{ID: "", Reason: "empty endToEndId"})
			continue
		}

		var occurredAt interface{}
		if !rec.OccurredAt.IsZero() {
			occurredAt = rec.OccurredAt.UTC()
		}

		if _, err := tx.ExecContext(ctx, upsertTransactionQuery,
			rec.EndToEndID, rec.SourceKey, rec.DestKey, rec.Amount, occurredAt,
			rec.Status, nullableJSON(rec.SourceInfo), nullableJSON(rec.DestInfo),
			rec.AgentModality, nullableJSON(rec.RawPayload),
		); err != nil {
			s.logger.Warn("Failed to upsert transaction record",
				zap.String("end_to_end_id", rec.EndToEndID),
				zap.Error(err),
			)
			report.Skipped = append(report.Skipped, RecordFailure{ID: rec.EndToEndID, Reason: err.Error()})
			continue
		}
		report.Written++
	}

	if err := tx.Commit(); err != nil {
		return Report{}, common.WrapError("upsert", "pix_transactions", err)
	}
	return report, nil
}

// GetTransaction returns the stored record for an endToEndId, or
// common.ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, endToEndID string) (*TransactionRecord, error) {
	row, err := s.queryRowContext(ctx, `
		SELECT end_to_end_id, source_key, dest_key, amount, occurred_at,
		       status, source_info, dest_info, agent_modality, raw_payload, processed
		FROM pix_transactions WHERE end_to_end_id = ?
	`, endToEndID)
	if err != nil {
		return nil, err
	}

	var (
		rec        TransactionRecord
		amount     sql.NullFloat64
		occurredAt sql.NullTime
		status     sql.NullString
		sourceInfo sql.NullString
		destInfo   sql.NullString
		modality   sql.NullString
		rawPayload sql.NullString
	)
	if err := row.Scan(
		&rec.EndToEndID, &rec.SourceKey, &rec.DestKey, &amount, &occurredAt,
		&status, &sourceInfo, &destInfo, &modality, &rawPayload, &rec.Processed,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	rec.Amount = amount.Float64
	if occurredAt.Valid {
		rec.OccurredAt = occurredAt.Time
	}
	rec.Status = status.String
	rec.AgentModality = modality.String
	if sourceInfo.Valid {
		rec.SourceInfo = json.RawMessage(sourceInfo.String)
	}
	if destInfo.Valid {
		rec.DestInfo = json.RawMessage(destInfo.String)
	}
	if rawPayload.Valid {
		rec.RawPayload = json.RawMessage(rawPayload.String)
	}
	return &rec, nil
}

// CountTransactions returns the number of stored transaction records.
func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	row, err := s.queryRowContext(ctx, `SELECT COUNT(*) FROM pix_transactions`)
	if err != nil {
		return 0, err
	}
	var count int64
	err = row.Scan(&count)
	return count, err
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
