package web

import (
	"encoding/json"
	"net/http"

	"earnpulse/internal/core"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	user, err := s.client.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.setUserID(w, r, user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if err := s.clearSession(w, r); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.getUserID(r)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	user, err := s.client.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil || user.ID != userID {
		// the store-side session moved on; drop the stale cookie
		_ = s.clearSession(w, r)
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handlePublicSettings exposes the pre-login subset of settings.
func (s *Server) handlePublicSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"maintenanceMode": settings.MaintenanceMode,
		"payoutsEnabled":  settings.PayoutsEnabled,
		"announcement":    settings.Announcement,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.client.Tasks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// completionResponse pairs the updated user with the new ledger record, so
// the caller does not need a follow-up fetch for either.
type completionResponse struct {
	User        *core.User        `json:"user"`
	Transaction *core.Transaction `json:"transaction"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	user, tx, err := s.client.CompleteTask(r.Context(), userIDFrom(r), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{User: user, Transaction: tx})
}

func (s *Server) handleCompleteAd(w http.ResponseWriter, r *http.Request) {
	user, tx, err := s.client.CompleteAd(r.Context(), userIDFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{User: user, Transaction: tx})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.client.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type payoutRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation)
		return
	}

	tx, err := s.client.RequestPayout(r.Context(), userIDFrom(r), req.Amount, req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCoachTips(w http.ResponseWriter, r *http.Request) {
	user, err := s.client.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, core.ErrUnauthorized)
		return
	}

	advice := s.coach.Recommendations(r.Context(), user.Balance, user.CompletedTasks)
	writeJSON(w, http.StatusOK, advice)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleCoachChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, core.ErrValidation)
		return
	}

	reply := s.coach.Chat(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
