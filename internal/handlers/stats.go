// internal/handlers/stats.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/database"
)

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// LeaderboardHandler serves GET /leaderboard?limit=N.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Stats.Leaderboard(r.Context(), limitParam(r))
	if err != nil {
		s.Logger.Errorf("failed to fetch leaderboard: %v", err)
		http.Error(w, "failed to fetch leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HistoryHandler serves GET /users/{id}/history?limit=N.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	matches, err := s.Stats.History(r.Context(), id, limitParam(r))
	if err != nil {
		s.Logger.Errorf("failed to fetch history for %s: %v", id, err)
		http.Error(w, "failed to fetch history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// RankHandler serves GET /users/{id}/rank.
func (s *Server) RankHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	rank, err := s.Stats.Rank(r.Context(), id)
	if errors.Is(err, database.ErrUserNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Errorf("failed to fetch rank for %s: %v", id, err)
		http.Error(w, "failed to fetch rank", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}
