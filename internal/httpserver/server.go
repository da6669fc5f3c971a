// internal/httpserver/server.go
//
// Operations HTTP API for the Unscramble bot.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/leaderboard", "/games".
//   - Admin endpoints (require JWT): reset leaderboard, stop a channel's game.
//     A stop is announced in the channel like the chat command.
//
// Notes:
//   - Admin tokens are issued by POST /admin/login against a bcrypt hash
//     from ADMIN_PASSWORD_HASH. With no hash configured the admin routes
//     answer 503.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
	"github.com/robalobadob/unscramble-bot/internal/store"
)

// Games is the coordinator view exposed over HTTP.
type Games interface {
	Active() []coordinator.Snapshot
	Stop(ctx context.Context, channelID string) coordinator.StopResult
}

// Scores is the score store view exposed over HTTP.
type Scores interface {
	Leaderboard(limit int) []store.Ranked
	ResetAll()
	Flush(ctx context.Context) error
}

// Server bundles router and collaborators.
type Server struct {
	r      *chi.Mux
	games  Games
	scores Scores
	out    chat.Sender // nil disables channel announcements
	auth   AuthConfig
}

// New constructs a Server, installs middleware, and registers routes.
func New(games Games, scores Scores, out chat.Sender, auth AuthConfig) *Server {
	if auth.TokenTTL <= 0 {
		auth.TokenTTL = 12 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), games: games, scores: scores, out: out, auth: auth}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"unscramble-bot","endpoints":["/health","/leaderboard","/games","POST /admin/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/leaderboard", s.handleLeaderboard)
	s.r.Get("/games", s.handleGames)

	s.r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/leaderboard/reset", s.handleReset)
			r.Post("/games/{channelID}/stop", s.handleStop)
		})
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("http request")
	})
}
