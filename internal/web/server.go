package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"earnpulse/internal/api"
	"earnpulse/internal/coach"
	"earnpulse/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

const sessionName = "earnpulse-session"
const sessionUserIDKey = "user_id"

type ctxKey int

const ctxKeyUserID ctxKey = 0

// Server represents the HTTP server. Handlers reach the ledger through the
// latency-bearing api.Client; session and role checks read the core service
// directly so infrastructure does not pay the simulated round-trip.
type Server struct {
	client       *api.Client
	svc          *core.Service
	coach        *coach.Client
	sessionStore *sessions.CookieStore
	logger       *slog.Logger
	backupDir    string
}

// NewServer creates a new Server instance.
func NewServer(client *api.Client, svc *core.Service, coachClient *coach.Client, sessionSecret, publicURL, backupDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	store := sessions.NewCookieStore([]byte(sessionSecret))
	isHTTPS := strings.HasPrefix(publicURL, "https")
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}

	return &Server{
		client:       client,
		svc:          svc,
		coach:        coachClient,
		sessionStore: store,
		logger:       logger,
		backupDir:    backupDir,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		// public
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/session", s.handleSession)
		r.Get("/settings/public", s.handlePublicSettings)

		// authenticated user routes, gated by maintenance mode
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.maintenanceGate)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks/{taskID}/complete", s.handleCompleteTask)
			r.Post("/ads/complete", s.handleCompleteAd)
			r.Get("/wallet/history", s.handleHistory)
			r.Post("/wallet/payouts", s.handleRequestPayout)
			r.Get("/coach/tips", s.handleCoachTips)
			r.Post("/coach/chat", s.handleCoachChat)
		})

		// admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)

			r.Get("/stats", s.handleStats)
			r.Get("/users", s.handleListUsers)
			r.Post("/users/{userID}/balance", s.handleAdjustBalance)
			r.Post("/users/{userID}/status", s.handleSetUserStatus)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/payouts/{txID}/approve", s.handleApprovePayout)
			r.Post("/payouts/{txID}/reject", s.handleRejectPayout)
			r.Post("/tasks", s.handleUpsertTask)
			r.Delete("/tasks/{taskID}", s.handleDeleteTask)
			r.Patch("/settings", s.handleUpdateSettings)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
		})
	})

	return r
}

// requestLogger logs every request with timing info.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// getUserID retrieves the user id from the session cookie.
func (s *Server) getUserID(r *http.Request) (string, bool) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	userID, ok := session.Values[sessionUserIDKey].(string)
	return userID, ok && userID != ""
}

// setUserID stores the user id in the session cookie.
func (s *Server) setUserID(w http.ResponseWriter, r *http.Request, userID string) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// clearSession expires the session cookie.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth ensures a session cookie is present and stashes the user id
// in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.getUserID(r)
		if !ok {
			writeError(w, core.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin ensures the active session belongs to an administrator.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.svc.CurrentUser()
		if err != nil {
			writeError(w, err)
			return
		}
		if user == nil || user.ID != userIDFrom(r) {
			writeError(w, core.ErrUnauthorized)
			return
		}
		if user.Role != core.RoleAdmin {
			writeError(w, core.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maintenanceGate blocks non-admin traffic while maintenance mode is on.
func (s *Server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		settings, err := s.svc.Settings()
		if err != nil {
			writeError(w, err)
			return
		}
		if settings.MaintenanceMode {
			user, err := s.svc.CurrentUser()
			if err != nil {
				writeError(w, err)
				return
			}
			if user == nil || user.Role != core.RoleAdmin {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					Error:   "maintenance",
					Message: settings.Announcement,
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// userIDFrom returns the authenticated user id placed by requireAuth.
func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}
