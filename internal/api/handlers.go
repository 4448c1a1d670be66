package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
)

const rangeDateForm = "2006-01-02"

type statusPayload struct {
	Keys         int64      `json:"keys"`
	Transactions int64      `json:"transactions"`
	LastSync     *time.Time `json:"lastSync"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keys, err := s.store.CountKeys(ctx, "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	txs, err := s.store.CountTransactions(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	state, err := s.store.ReadSyncState(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeData(w, statusPayload{
		Keys:         keys,
		Transactions: txs,
		LastSync:     state.LastSuccessfulSync,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.RunCycle(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeData(w, result)
}

type rangeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleSyncRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, common.ErrInvalidInput)
		return
	}

	from, err := time.Parse(rangeDateForm, req.From)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(rangeDateForm, req.To)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("to must be YYYY-MM-DD"))
		return
	}
	// Make the end date inclusive.
	to = to.Add(24*time.Hour - time.Second)

	result, err := s.engine.RunRange(r.Context(), from, to)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, common.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	s.writeData(w, result)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	archive, err := s.backups.Backup(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeData(w, map[string]string{"archive": archive})
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	archives, err := s.backups.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeData(w, archives)
}

type restoreRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		s.writeError(w, http.StatusBadRequest, common.ErrInvalidInput)
		return
	}

	if err := s.backups.Restore(r.Context(), req.Path); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrArchiveInvalid) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	s.writeData(w, map[string]string{"restored": req.Path})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.store.RecentLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeData(w, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.health.Check(r.Context())
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, Response{Success: h.Status == "ok", Data: h})
}
