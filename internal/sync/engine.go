// Package sync runs the periodic ingestion cycle: fetch keys and
// transactions from the registry source, persist them idempotently, and
// advance the watermark only when the cycle actually succeeded.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/monitoring"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

// RemoteSource fetches registry records. Satisfied by olinda.Client.
type RemoteSource interface {
	FetchAllKeys(ctx context.Context) ([]store.KeyRecord, error)
	FetchTransactions(ctx context.Context, from, to time.Time) ([]store.TransactionRecord, error)
}

// Snapshotter produces a backup archive after a successful cycle.
// Satisfied by backup.Manager. May be nil to disable post-cycle backups.
type Snapshotter interface {
	Backup(ctx context.Context) (string, error)
}

// CycleResult summarizes one completed cycle or on-demand range ingestion.
type CycleResult struct {
	Window              Window    `json:"window"`
	KeysWritten         int       `json:"keysWritten"`
	KeysSkipped         int       `json:"keysSkipped"`
	TransactionsWritten int       `json:"transactionsWritten"`
	TransactionsSkipped int       `json:"transactionsSkipped"`
	CompletedAt         time.Time `json:"completedAt"`
}

// Engine coordinates fetch, persist, watermark and backup for each cycle.
type Engine struct {
	logger      *zap.Logger
	config      config.SyncConfig
	store       *store.Store
	source      RemoteSource
	gate        *common.Gate
	snapshotter Snapshotter
	metrics     *monitoring.Metrics

	now func() time.Time
}

// NewEngine creates a sync engine. snapshotter and metrics may be nil.
func NewEngine(cfg config.SyncConfig, st *store.Store, source RemoteSource, gate *common.Gate, snapshotter Snapshotter, metrics *monitoring.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		logger:      logger,
		config:      cfg,
		store:       st,
		source:      source,
		gate:        gate,
		snapshotter: snapshotter,
		metrics:     metrics,
		now:         time.Now,
	}
}

// RunCycle executes one full synchronization cycle.
//
// Key ingestion failures are logged and do not abort the cycle; a
// transaction fetch failure aborts it without advancing the watermark, so
// the missed window is retried on the next run. The watermark moves to the
// cycle start time only after transactions persisted successfully.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	e.gate.EnterCycle()
	defer e.gate.LeaveCycle()

	started := e.now().UTC()
	if e.metrics != nil {
		e.metrics.CyclesTotal.Inc()
		defer func() {
			e.metrics.CycleDurationSeconds.Observe(time.Since(started).Seconds())
		}()
	}

	state, err := e.store.ReadSyncState(ctx)
	if err != nil {
		e.cycleFailed(ctx, fmt.Sprintf("cannot read sync state: %v", err))
		return nil, err
	}

	win := ComputeWindow(started, state, e.config)
	e.logger.Info("Starting sync cycle",
		zap.Time("from", win.From),
		zap.Time("to", win.To))

	result := &CycleResult{Window: win}

	// Keys are a full registry snapshot, not window-scoped. Losing one key
	// refresh is recoverable on the next cycle, so failure here is non-fatal.
	if keys, err := e.source.FetchAllKeys(ctx); err != nil {
		e.logger.Warn("Key fetch failed, continuing with transactions", zap.Error(err))
		e.oplog(ctx, "warn", fmt.Sprintf("key fetch failed: %v", err))
		if e.metrics != nil {
			e.metrics.FetchFailures.WithLabelValues("keys").Inc()
		}
	} else {
		report, err := e.store.UpsertKeys(ctx, keys)
		if err != nil {
			e.logger.Warn("Key persistence failed", zap.Error(err))
			e.oplog(ctx, "warn", fmt.Sprintf("key persistence failed: %v", err))
		} else {
			result.KeysWritten = report.Written
			result.KeysSkipped = report.SkippedCount()
			e.observeReport(report, "keys")
		}
	}

	txs, err := e.source.FetchTransactions(ctx, win.From, win.To)
	if err != nil {
		if e.metrics != nil {
			e.metrics.FetchFailures.WithLabelValues("transactions").Inc()
		}
		e.cycleFailed(ctx, fmt.Sprintf("transaction fetch failed: %v", err))
		return nil, err
	}

	report, err := e.store.UpsertTransactions(ctx, txs)
	if err != nil {
		e.cycleFailed(ctx, fmt.Sprintf("transaction persistence failed: %v", err))
		return nil, err
	}
	result.TransactionsWritten = report.Written
	result.TransactionsSkipped = report.SkippedCount()
	e.observeReport(report, "transactions")

	if err := e.store.RecordSuccessfulSync(ctx, started); err != nil {
		e.cycleFailed(ctx, fmt.Sprintf("cannot record sync watermark: %v", err))
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.LastSyncTimestamp.Set(float64(started.Unix()))
	}

	result.CompletedAt = e.now().UTC()
	e.logger.Info("Sync cycle completed",
		zap.Int("keysWritten", result.KeysWritten),
		zap.Int("transactionsWritten", result.TransactionsWritten),
		zap.Int("transactionsSkipped", result.TransactionsSkipped))
	e.oplog(ctx, "info", fmt.Sprintf("cycle completed: %d keys, %d transactions", result.KeysWritten, result.TransactionsWritten))

	// The post-cycle snapshot is best effort; a failed backup must not fail
	// an otherwise successful cycle.
	if e.snapshotter != nil {
		if archive, err := e.snapshotter.Backup(ctx); err != nil {
			e.logger.Warn("Post-cycle backup failed", zap.Error(err))
			e.oplog(ctx, "warn", fmt.Sprintf("post-cycle backup failed: %v", err))
		} else {
			e.logger.Debug("Post-cycle backup written", zap.String("archive", archive))
		}
	}

	return result, nil
}

// RunRange ingests transactions for an operator-chosen window. It refreshes
// keys too, but never touches the watermark and never triggers a backup.
func (e *Engine) RunRange(ctx context.Context, from, to time.Time) (*CycleResult, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", common.ErrInvalidRange,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	e.gate.EnterCycle()
	defer e.gate.LeaveCycle()

	result := &CycleResult{Window: Window{From: from, To: to}}

	// The key refresh is a bonus here, exactly as in a scheduled cycle: a
	// repair run only needs transactions, so a failed refresh must not block
	// it.
	if keys, err := e.source.FetchAllKeys(ctx); err != nil {
		e.logger.Warn("Key fetch failed, continuing with transactions", zap.Error(err))
		e.oplog(ctx, "warn", fmt.Sprintf("key fetch failed: %v", err))
		if e.metrics != nil {
			e.metrics.FetchFailures.WithLabelValues("keys").Inc()
		}
	} else if keyReport, err := e.store.UpsertKeys(ctx, keys); err != nil {
		e.logger.Warn("Key persistence failed", zap.Error(err))
		e.oplog(ctx, "warn", fmt.Sprintf("key persistence failed: %v", err))
	} else {
		result.KeysWritten = keyReport.Written
		result.KeysSkipped = keyReport.SkippedCount()
		e.observeReport(keyReport, "keys")
	}

	txs, err := e.source.FetchTransactions(ctx, from, to)
	if err != nil {
		return nil, err
	}
	txReport, err := e.store.UpsertTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}
	result.TransactionsWritten = txReport.Written
	result.TransactionsSkipped = txReport.SkippedCount()
	result.CompletedAt = e.now().UTC()

	e.logger.Info("Range ingestion completed",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("transactionsWritten", result.TransactionsWritten))
	return result, nil
}

func (e *Engine) cycleFailed(ctx context.Context, msg string) {
	e.logger.Error("Sync cycle failed", zap.String("reason", msg))
	e.oplog(ctx, "error", msg)
	if e.metrics != nil {
		e.metrics.CycleFailures.Inc()
	}
}

func (e *Engine) observeReport(report store.Report, family string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordsUpserted.WithLabelValues(family).Add(float64(report.Written))
	e.metrics.RecordsSkipped.WithLabelValues(family).Add(float64(report.SkippedCount()))
}

func (e *Engine) oplog(ctx context.Context, level, message string) {
	if err := e.store.AppendLog(ctx, "sync", level, message); err != nil {
		e.logger.Debug("Failed to append operational log entry", zap.Error(err))
	}
}
