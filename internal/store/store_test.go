package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func strPtr(s string) *string { return &s }

func TestUpsertKeysIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := KeyRecord{
		Key:         "user@example.com",
		KeyType:     "EMAIL",
		OwnerLabel:  "Alice",
		Institution: "Bank A",
		CreatedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}

	report, err := st.UpsertKeys(ctx, []KeyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	// Same key again with changed fields must update, not duplicate.
	rec.Institution = "Bank B"
	report, err = st.UpsertKeys(ctx, []KeyRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := st.GetKey(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bank B", got.Institution)
	assert.Equal(t, "ACTIVE", got.Status)
}

func TestUpsertKeysSkipsInvalidRecords(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	report, err := st.UpsertKeys(ctx, []KeyRecord{
		{Key: "", KeyType: "EMAIL"},
		{Key: "+5511999990000", KeyType: "PHONE"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.SkippedCount())
	assert.Equal(t, "empty key", report.Skipped[0].Reason)

	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetKeyNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetKey(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertTransactionsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := TransactionRecord{
		EndToEndID: "E00038166202401151000s0180000001",
		SourceKey:  strPtr("a@example.com"),
		DestKey:    strPtr("b@example.com"),
		Amount:     150.75,
		OccurredAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Status:     "COMPLETED",
		RawPayload: json.RawMessage(`{"valor":150.75}`),
	}

	report, err := st.UpsertTransactions(ctx, []TransactionRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	rec.Amount = 200.00
	report, err = st.UpsertTransactions(ctx, []TransactionRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := st.GetTransaction(ctx, rec.EndToEndID)
	require.NoError(t, err)
	assert.Equal(t, 200.00, got.Amount)
	assert.Equal(t, "a@example.com", *got.SourceKey)
}

func TestUpsertTransactionsPreservesProcessedFlag(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := TransactionRecord{
		EndToEndID: "E1",
		Amount:     10,
		OccurredAt: time.Now().UTC(),
		Status:     "COMPLETED",
	}
	_, err := st.UpsertTransactions(ctx, []TransactionRecord{rec})
	require.NoError(t, err)

	// A downstream consumer marks the record processed.
	_, err = st.execContext(ctx, `UPDATE pix_transactions SET processed = 1 WHERE end_to_end_id = ?`, "E1")
	require.NoError(t, err)

	// Re-ingesting the same record must not clear the flag.
	rec.Amount = 20
	_, err = st.UpsertTransactions(ctx, []TransactionRecord{rec})
	require.NoError(t, err)

	got, err := st.GetTransaction(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.Equal(t, 20.0, got.Amount)
}

func TestUpsertTransactionsPerRecordIsolation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	report, err := st.UpsertTransactions(ctx, []TransactionRecord{
		{EndToEndID: "", Amount: 1},
		{EndToEndID: "E2", Amount: 2, OccurredAt: time.Now().UTC(), Status: "COMPLETED"},
		{EndToEndID: "E3", Amount: 3, OccurredAt: time.Now().UTC(), Status: "COMPLETED"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.SkippedCount())
}

func TestSyncStateDefaultsToNever(t *testing.T) {
	st := newTestStore(t)

	state, err := st.ReadSyncState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.LastSuccessfulSync)
}

func TestRecordSuccessfulSyncMonotonic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	later := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, st.RecordSuccessfulSync(ctx, later))

	state, err := st.ReadSyncState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastSuccessfulSync)
	assert.True(t, state.LastSuccessfulSync.Equal(later))

	// An older timestamp must never move the watermark backwards.
	require.NoError(t, st.RecordSuccessfulSync(ctx, earlier))

	state, err = st.ReadSyncState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastSuccessfulSync)
	assert.True(t, state.LastSuccessfulSync.Equal(later))
}

func TestSnapshotToProducesValidArtifact(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []KeyRecord{{Key: "k1", KeyType: "EVP"}})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, st.SnapshotTo(ctx, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))

	// The snapshot itself opens as a store with the data intact.
	snap, err := Open(dest, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	defer snap.Close()

	count, err := snap.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClosedStoreReturnsUnavailable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Close())

	_, err := st.GetKey(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = st.GetTransaction(ctx, "E1")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = st.CountKeys(ctx, "")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = st.CountTransactions(ctx)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = st.ReadSyncState(ctx)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	_, err = st.UpsertKeys(ctx, []KeyRecord{{Key: "k1"}})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	assert.ErrorIs(t, st.SnapshotTo(ctx, filepath.Join(t.TempDir(), "s.db")),
		common.ErrStoreUnavailable)
}

func TestOperationalLog(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendLog(ctx, "sync", "info", "first"))
	require.NoError(t, st.AppendLog(ctx, "sync", "error", "second"))

	entries, err := st.RecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Most recent first.
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, "error", entries[0].Level)
}
