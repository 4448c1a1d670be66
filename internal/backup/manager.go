// Package backup snapshots the storage artifact into timestamped archives and
// restores it wholesale from a chosen archive.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/monitoring"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

const (
	archivePrefix   = "pix_backup_"
	archiveTimeForm = "20060102_150405"
)

// sqliteHeader is the 16-byte magic every valid artifact starts with.
var sqliteHeader = []byte("SQLite format 3\x00")

// Archive describes one backup file on disk.
type Archive struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager snapshots and restores the store. Restore acquires the gate
// exclusively so it never races an in-flight sync cycle.
type Manager struct {
	logger  *zap.Logger
	config  config.BackupConfig
	store   *store.Store
	gate    *common.Gate
	metrics *monitoring.Metrics
}

// NewManager creates a backup manager. metrics may be nil.
func NewManager(cfg config.BackupConfig, st *store.Store, gate *common.Gate, metrics *monitoring.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		logger:  logger,
		config:  cfg,
		store:   st,
		gate:    gate,
		metrics: metrics,
	}
}

// Backup copies the current storage artifact into the backup directory under
// a sortable timestamped name and returns the archive path. The live store is
// never mutated. Failures are reported to the caller and are non-fatal to the
// sync cycle that triggered them.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.config.Dir, 0755); err != nil {
		m.recordFailure()
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := archivePrefix + time.Now().UTC().Format(archiveTimeForm) + ".db"
	dest := filepath.Join(m.config.Dir, name)

	// VACUUM INTO produces a consistent snapshot even with writers active;
	// fall back to a plain file copy if the engine refuses.
	if err := m.store.SnapshotTo(ctx, dest); err != nil {
		m.logger.Warn("Snapshot via VACUUM INTO failed, falling back to file copy", zap.Error(err))
		os.Remove(dest)
		if err := copyFile(m.store.Path(), dest); err != nil {
			m.recordFailure()
			return "", fmt.Errorf("failed to copy storage artifact: %w", err)
		}
	}

	if m.config.Compress {
		compressed, err := gzipFile(dest)
		if err != nil {
			m.recordFailure()
			os.Remove(dest)
			return "", fmt.Errorf("failed to compress archive: %w", err)
		}
		os.Remove(dest)
		dest = compressed
	}

	if m.metrics != nil {
		m.metrics.BackupsTotal.Inc()
	}
	m.logger.Info("Backup created", zap.String("archive", dest))

	m.prune()
	return dest, nil
}

// Restore replaces the live storage artifact with the contents of
// archivePath. All-or-nothing: validation failures leave the live store
// untouched. New sync cycles are blocked and in-flight ones drained for the
// duration.
func (m *Manager) Restore(ctx context.Context, archivePath string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("%w: %s", common.ErrArchiveInvalid, archivePath)
	}

	source := archivePath
	if strings.HasSuffix(archivePath, ".gz") {
		tmp, err := gunzipToTemp(archivePath)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrArchiveInvalid, err)
		}
		defer os.Remove(tmp)
		source = tmp
	}

	if err := validateArtifact(source); err != nil {
		return err
	}

	err := m.gate.Exclusive(func() error {
		livePath := m.store.Path()

		// Keep the pre-restore state next to the live artifact in case the
		// operator picked the wrong archive.
		if err := copyFile(livePath, livePath+".restore-backup"); err != nil {
			m.logger.Warn("Failed to preserve pre-restore artifact", zap.Error(err))
		}

		if err := copyFile(source, livePath); err != nil {
			return fmt.Errorf("failed to overwrite storage artifact: %w", err)
		}
		return m.store.Reopen()
	})
	if err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RestoresTotal.Inc()
	}
	m.logger.Info("Store restored", zap.String("archive", archivePath))
	return nil
}

// List returns the known archives, oldest first.
func (m *Manager) List() ([]Archive, error) {
	entries, err := os.ReadDir(m.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	archives := make([]Archive, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), archivePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		archives = append(archives, Archive{
			Name:      entry.Name(),
			Path:      filepath.Join(m.config.Dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].Name < archives[j].Name })
	return archives, nil
}

// prune removes archives older than the retention period. Retention of zero
// keeps everything.
func (m *Manager) prune() {
	if m.config.RetentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -m.config.RetentionDays)
	archives, err := m.List()
	if err != nil {
		m.logger.Warn("Failed to list archives for pruning", zap.Error(err))
		return
	}

	for _, a := range archives {
		if a.CreatedAt.Before(cutoff) {
			if err := os.Remove(a.Path); err != nil {
				m.logger.Warn("Failed to prune archive", zap.String("archive", a.Path), zap.Error(err))
				continue
			}
			m.logger.Info("Pruned old archive", zap.String("archive", a.Path))
		}
	}
}

func (m *Manager) recordFailure() {
	if m.metrics != nil {
		m.metrics.BackupFailures.Inc()
	}
}

func validateArtifact(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrArchiveInvalid, err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("%w: truncated file", common.ErrArchiveInvalid)
	}
	if !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("%w: not a SQLite artifact", common.ErrArchiveInvalid)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func gzipFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dest := path + ".gz"
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		os.Remove(dest)
		return "", err
	}
	if err := gw.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, out.Sync()
}

func gunzipToTemp(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return "", err
	}
	defer gr.Close()

	out, err := os.CreateTemp("", "pix_restore_*.db")
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, gr); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
