// Package monitoring exposes Prometheus metrics and a health check for the
// sync engine, store and backup subsystem.
package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
)

// Metrics holds every collector the application records into.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal          prometheus.Counter
	CycleFailures        prometheus.Counter
	FetchFailures        *prometheus.CounterVec
	RecordsUpserted      *prometheus.CounterVec
	RecordsSkipped       *prometheus.CounterVec
	LastSyncTimestamp    prometheus.Gauge
	BackupsTotal         prometheus.Counter
	BackupFailures       prometheus.Counter
	RestoresTotal        prometheus.Counter
	CycleDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers all collectors under the given namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pix_orchestrator"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Number of sync cycles started.",
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycle_failures_total",
			Help:      "Number of sync cycles that ended in error.",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Remote fetch failures by endpoint.",
		}, []string{"endpoint"}),
		RecordsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Records written to the store by family.",
		}, []string{"family"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records skipped during bulk upserts by family.",
		}, []string{"family"}),
		LastSyncTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_sync_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
		BackupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Number of backup snapshots created.",
		}),
		BackupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_failures_total",
			Help:      "Number of failed backup attempts.",
		}),
		RestoresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Number of completed restores.",
		}),
		CycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Wall time of a full sync cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.CycleFailures,
		m.FetchFailures,
		m.RecordsUpserted,
		m.RecordsSkipped,
		m.LastSyncTimestamp,
		m.BackupsTotal,
		m.BackupFailures,
		m.RestoresTotal,
		m.CycleDurationSeconds,
	)

	return m
}

// Registry exposes the underlying registry for serving and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Server serves the metrics registry over HTTP.
type Server struct {
	logger *zap.Logger
	config config.MonitoringConfig
	server *http.Server
}

// NewServer creates the metrics HTTP server.
func NewServer(cfg config.MonitoringConfig, metrics *Metrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))

	return &Server{
		logger: logger,
		config: cfg,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving; it returns immediately.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.logger.Info("Metrics exporter disabled")
		return
	}

	s.logger.Info("Starting metrics exporter", zap.String("listen_addr", s.config.ListenAddr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.server.Shutdown(ctx)
}
