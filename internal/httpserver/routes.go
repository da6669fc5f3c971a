package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
)

const maxLeaderboardLimit = 100

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// GET /leaderboard?limit=N
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLeaderboardLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.scores.Leaderboard(limit)})
}

// GET /games
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": s.games.Active()})
}

// POST /admin/leaderboard/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.scores.ResetAll()
	log.Warn().Str("request_id", requestID(r)).Msg("leaderboard reset via admin API")
	flushed := true
	if err := s.scores.Flush(r.Context()); err != nil {
		log.Error().Err(err).Msg("flush after reset failed")
		flushed = false
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "flushed": flushed})
}

// POST /admin/games/{channelID}/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	res := s.games.Stop(r.Context(), channelID)
	if res.Kind == coordinator.NotActive {
		writeError(w, http.StatusNotFound, "not_active")
		return
	}
	log.Info().Str("channel", channelID).Msg("game stopped via admin API")
	if s.out != nil {
		n := chat.Notice{
			Description: fmt.Sprintf("🛑 The Unscramble game has been stopped by an administrator.\nThe word was **%s**.", res.Answer),
			Color:       chat.ColorWarning,
		}
		if err := s.out.Send(r.Context(), channelID, n); err != nil {
			log.Warn().Err(err).Str("channel", channelID).Msg("stop notice not delivered")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"channelId": channelID, "answer": res.Answer})
}
