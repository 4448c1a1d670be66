// Package api exposes the operator surface over HTTP: status, on-demand
// sync, backup and restore, health and recent operational logs.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/backup"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/monitoring"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
	syncer "github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/sync"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Time    time.Time   `json:"time"`
}

// Server wires the operator endpoints onto a gorilla router.
type Server struct {
	logger  *zap.Logger
	config  config.APIConfig
	store   *store.Store
	engine  *syncer.Engine
	backups *backup.Manager
	health  *monitoring.HealthChecker

	httpServer *http.Server
}

// NewServer creates the operator API server.
func NewServer(cfg config.APIConfig, st *store.Store, engine *syncer.Engine, backups *backup.Manager, health *monitoring.HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		logger:  logger,
		config:  cfg,
		store:   st,
		engine:  engine,
		backups: backups,
		health:  health,
	}

	router := mux.NewRouter()
	router.Use(s.requestLogging)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	v1.HandleFunc("/sync/range", s.handleSyncRange).Methods(http.MethodPost)
	v1.HandleFunc("/backup", s.handleBackup).Methods(http.MethodPost)
	v1.HandleFunc("/backups", s.handleListBackups).Methods(http.MethodGet)
	v1.HandleFunc("/restore", s.handleRestore).Methods(http.MethodPost)
	v1.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in a goroutine. No-op when the API is disabled.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.logger.Info("Operator API disabled")
		return
	}
	go func() {
		s.logger.Info("Operator API listening", zap.String("addr", s.config.ListenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Operator API server error", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Time = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, Response{Success: false, Error: err.Error()})
}
