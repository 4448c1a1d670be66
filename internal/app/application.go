// Package app assembles the daemon: store, source client, sync engine,
// scheduler, backup manager and the operator surfaces.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/api"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/backup"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/monitoring"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/olinda"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/scheduler"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
	syncer "github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/sync"
)

const shutdownTimeout = 30 * time.Second

// Application owns the component lifecycle.
type Application struct {
	logger *zap.Logger
	config *config.Config

	store      *store.Store
	scheduler  *scheduler.Scheduler
	apiServer  *api.Server
	metricsSrv *monitoring.Server

	cancelLoop context.CancelFunc
	loopDone   chan struct{}
}

// New builds the full component graph. Nothing starts running until Start.
func New(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	st, err := store.Open(cfg.Storage.Path, cfg.Storage.BusyTimeout, logger)
	if err != nil {
		return nil, err
	}

	gate := common.NewGate()
	metrics := monitoring.NewMetrics(cfg.Monitoring.Namespace)

	backups := backup.NewManager(cfg.Backup, st, gate, metrics, logger)
	source := olinda.NewClient(cfg.Source, logger)
	engine := syncer.NewEngine(cfg.Sync, st, source, gate, backups, metrics, logger)

	sched := scheduler.New(scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := engine.RunCycle(ctx)
		return err
	}), cfg.Sync.PollingInterval, logger)

	health := monitoring.NewHealthChecker(st, cfg.Backup.Dir)

	return &Application{
		logger:     logger,
		config:     cfg,
		store:      st,
		scheduler:  sched,
		apiServer:  api.NewServer(cfg.API, st, engine, backups, health, logger),
		metricsSrv: monitoring.NewServer(cfg.Monitoring, metrics, logger),
	}, nil
}

// Start launches the scheduler loop and the HTTP surfaces.
func (a *Application) Start() {
	a.logger.Info("Starting application",
		zap.String("storage", a.config.Storage.Path),
		zap.Duration("pollingInterval", a.config.Sync.PollingInterval))

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancelLoop = cancel
	a.loopDone = make(chan struct{})
	go func() {
		defer close(a.loopDone)
		a.scheduler.Run(loopCtx)
	}()

	a.apiServer.Start()
	a.metricsSrv.Start()
}

// Shutdown stops the scheduler, drains the HTTP servers and closes the
// store. Safe to call once after Start.
func (a *Application) Shutdown() {
	a.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.cancelLoop != nil {
		a.cancelLoop()
		select {
		case <-a.loopDone:
		case <-ctx.Done():
			a.logger.Warn("Scheduler did not stop before timeout")
		}
	}

	if err := a.apiServer.Shutdown(ctx); err != nil {
		a.logger.Warn("Operator API shutdown error", zap.Error(err))
	}
	if err := a.metricsSrv.Shutdown(ctx); err != nil {
		a.logger.Warn("Metrics server shutdown error", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Store close error", zap.Error(err))
	}

	a.logger.Info("Shutdown complete")
}
