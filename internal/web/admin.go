package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"earnpulse/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.client.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.client.Users(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type balanceRequest struct {
	Balance float64 `json:"balance"`
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	user, err := s.client.AdjustBalance(r.Context(), chi.URLParam(r, "userID"), req.Balance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type statusRequest struct {
	Status core.UserStatus `json:"status"`
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	user, err := s.client.SetUserStatus(r.Context(), chi.URLParam(r, "userID"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.client.Transactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) settlePayout(w http.ResponseWriter, r *http.Request, decision core.SettleDecision) {
	tx, err := s.client.SettlePayout(r.Context(), chi.URLParam(r, "txID"), decision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleApprovePayout(w http.ResponseWriter, r *http.Request) {
	s.settlePayout(w, r, core.DecisionApprove)
}

func (s *Server) handleRejectPayout(w http.ResponseWriter, r *http.Request) {
	s.settlePayout(w, r, core.DecisionReject)
}

func (s *Server) handleUpsertTask(w http.ResponseWriter, r *http.Request) {
	var task core.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	saved, err := s.client.UpsertTask(r.Context(), task)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	settings, err := s.client.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleExport streams the full state as an attachment and keeps a copy in
// the backup directory.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.client.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("earnpulse_backup_%s_%s.json",
		time.Now().Format("2006-01-02"), xid.New().String())

	if s.backupDir != "" {
		if err := os.MkdirAll(s.backupDir, 0o755); err == nil {
			if err := os.WriteFile(filepath.Join(s.backupDir, filename), data, 0o644); err != nil {
				s.logger.Warn("failed to write backup copy", "file", filename, "error", err)
			}
		} else {
			s.logger.Warn("failed to create backup dir", "dir", s.backupDir, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to stream export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	if err := s.client.Import(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
