// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/caro/internal/middleware"
)

// Router mounts every endpoint behind CORS and request logging.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Get("/ws", s.WSHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": s.Manager.RoomCount()})
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/create", s.CreateUserHandler)
		r.Post("/login", s.LoginHandler)
	})
	r.Get("/leaderboard", s.LeaderboardHandler)
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/history", s.HistoryHandler)
		r.Get("/rank", s.RankHandler)
	})
	return r
}
