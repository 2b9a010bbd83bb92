package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wrenfield/rankman/internal/leveling"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Server exposes the engine's two read paths as a JSON API.
type Server struct {
	engine *leveling.Engine
	log    *zerolog.Logger
	http   *http.Server
}

func New(addr string, engine *leveling.Engine, log *zerolog.Logger) *Server {
	l := log.With().Str("component", "http").Logger()
	s := &Server{engine: engine, log: &l}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Get("/api/guilds/{guildID}/leaderboard", s.handleLeaderboard)
	r.Get("/api/guilds/{guildID}/members/{userID}", s.handleMemberStats)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	entries, err := s.engine.GetLeaderboard(r.Context(), guildID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("guild_snowflake", guildID).Msg("unable to read leaderboard")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guild_id": guildID,
		"entries":  entries,
	})
}

func (s *Server) handleMemberStats(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")

	stats, err := s.engine.GetMemberStats(r.Context(), guildID, userID)
	if err != nil {
		s.log.Error().Err(err).Str("guild_snowflake", guildID).Msg("unable to read member stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "member has no score")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
