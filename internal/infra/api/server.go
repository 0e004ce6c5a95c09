package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain"
	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/infra/logging"
	"leetcode-reminder/internal/usecase"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Server is the read-only reporting API over the durable store.
type Server struct {
	stats  usecase.StatsUseCase
	router *chi.Mux
	log    *zerolog.Logger
}

// NewServer builds the router. jwtSecret enables the bearer guard on every route but /api/health.
func NewServer(stats usecase.StatsUseCase, jwtSecret string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "ReportingAPI").Logger()
	s := &Server{stats: stats, router: chi.NewRouter(), log: &l}

	s.router.Use(middleware.RealIP)
	s.router.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(15*time.Second))

	s.router.Get("/api/health", s.handleHealth)
	s.router.Group(func(r chi.Router) {
		r.Use(BearerAuth(jwtSecret))
		r.Get("/api/users", s.handleListUsers)
		r.Get("/api/users/telegram/{telegram_id}", s.handleUserByTelegram)
		r.Get("/api/users/leetcode/{username}", s.handleUsersByUsername)
		r.Get("/api/stats", s.handleStats)
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.stats.Health(r.Context()); err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("durable store health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
}

type usersPage struct {
	Users  []*model.UserRecord `json:"users"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := true
	if v := q.Get("active_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "active_only must be a boolean")
			return
		}
		activeOnly = b
	}
	limit, ok := intParam(q.Get("limit"), defaultPageSize)
	if !ok || limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	offset, ok := intParam(q.Get("offset"), 0)
	if !ok || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be non-negative")
		return
	}

	users, total, err := s.stats.ListUsers(r.Context(), activeOnly, offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []*model.UserRecord{}
	}
	writeJSON(w, http.StatusOK, usersPage{Users: users, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleUserByTelegram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "telegram_id must be an integer")
		return
	}
	rec, err := s.stats.FindByTelegramID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUsersByUsername(w http.ResponseWriter, r *http.Request) {
	recs, err := s.stats.FindByExternalUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": recs})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// fail maps domain errors. An unreachable store is never reported as an empty result.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("reporting query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func intParam(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
