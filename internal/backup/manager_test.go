package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

func newTestManager(t *testing.T, cfg config.BackupConfig) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "live.db"), 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	return NewManager(cfg, st, common.NewGate(), nil, zap.NewNop()), st
}

func TestBackupWritesTimestampedArchive(t *testing.T) {
	m, st := newTestManager(t, config.BackupConfig{})
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k1", KeyType: "EVP"}})
	require.NoError(t, err)

	archive, err := m.Backup(ctx)
	require.NoError(t, err)

	name := filepath.Base(archive)
	assert.True(t, strings.HasPrefix(name, "pix_backup_"))
	assert.True(t, strings.HasSuffix(name, ".db"))

	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	archives, err := m.List()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, name, archives[0].Name)
}

func TestBackupNamesSortChronologically(t *testing.T) {
	older := "pix_backup_20240101_120000.db"
	newer := "pix_backup_20240102_080000.db"
	assert.True(t, older < newer)
}

func TestRestoreRoundTrip(t *testing.T) {
	m, st := newTestManager(t, config.BackupConfig{})
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k1", KeyType: "EVP"}})
	require.NoError(t, err)

	archive, err := m.Backup(ctx)
	require.NoError(t, err)

	// Further writes after the snapshot.
	_, err = st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k2", KeyType: "EVP"}})
	require.NoError(t, err)
	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Restoring rolls the store back to the snapshot state.
	require.NoError(t, m.Restore(ctx, archive))

	count, err = st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = st.GetKey(ctx, "k1")
	assert.NoError(t, err)
	_, err = st.GetKey(ctx, "k2")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The pre-restore state is preserved beside the live artifact.
	_, err = os.Stat(st.Path() + ".restore-backup")
	assert.NoError(t, err)
}

func TestRestoreRejectsMissingArchive(t *testing.T) {
	m, st := newTestManager(t, config.BackupConfig{})
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k1"}})
	require.NoError(t, err)

	err = m.Restore(ctx, filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, common.ErrArchiveInvalid)

	// Live store untouched.
	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRestoreRejectsNonSQLiteFile(t *testing.T) {
	m, st := newTestManager(t, config.BackupConfig{})
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k1"}})
	require.NoError(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	require.NoError(t, os.WriteFile(bogus, []byte("definitely not a database"), 0644))

	err = m.Restore(ctx, bogus)
	assert.ErrorIs(t, err, common.ErrArchiveInvalid)

	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCompressedBackupRoundTrip(t *testing.T) {
	m, st := newTestManager(t, config.BackupConfig{Compress: true})
	ctx := context.Background()

	_, err := st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k1", KeyType: "EVP"}})
	require.NoError(t, err)

	archive, err := m.Backup(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(archive, ".db.gz"))

	// More writes, then restore from the compressed archive.
	_, err = st.UpsertKeys(ctx, []store.KeyRecord{{Key: "k2", KeyType: "EVP"}})
	require.NoError(t, err)

	require.NoError(t, m.Restore(ctx, archive))

	count, err := st.CountKeys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRetentionPrunesOldArchives(t *testing.T) {
	dir := t.TempDir()
	m, _ := newTestManager(t, config.BackupConfig{Dir: dir, RetentionDays: 7})
	ctx := context.Background()

	stale := filepath.Join(dir, "pix_backup_20200101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("SQLite format 3\x00"), 0644))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	_, err := m.Backup(ctx)
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	archives, err := m.List()
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestListEmptyDirectory(t *testing.T) {
	m, _ := newTestManager(t, config.BackupConfig{Dir: filepath.Join(t.TempDir(), "missing")})

	archives, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, archives)
}
