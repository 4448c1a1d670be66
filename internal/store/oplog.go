package store

import (
	"context"
	"time"
)

// LogEntry is one row of the append-only operational log. The log is a
// diagnostic aid and carries no behavioral contract.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// AppendLog records an operational event.
func (s *Store) AppendLog(ctx context.Context, module, level, message string) error {
	_, err := s.execContext(ctx,
		`INSERT INTO system_logs (module, level, message) VALUES (?, ?, ?)`,
		module, level, message,
	)
	return err
}

// RecentLogs returns the newest limit entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.queryContext(ctx, `
		SELECT id, timestamp, module, level, message
		FROM system_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LogEntry, 0, limit)
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Module, &e.Level, &e.Message); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
