// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/database"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Wins     int       `json:"wins"`
	Draws    int       `json:"draws"`
	Losses   int       `json:"losses"`
	Token    string    `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// CreateUserHandler registers an account.
//
// Request payload:
//
//	{"username": "alice", "password": "secret"}
//
// Responds 201 with the new user, 409 when the username is taken.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validCredentials(req.Username, req.Password) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	u, err := s.Accounts.CreateUser(r.Context(), req.Username, req.Password)
	if errors.Is(err, database.ErrUsernameTaken) {
		http.Error(w, "username already exists", http.StatusConflict)
		return
	}
	if err != nil {
		s.Logger.Errorf("failed to create user: %v", err)
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{UserID: u.ID, Username: u.Username})
}

// LoginHandler checks credentials and returns a session token, also set as the auth_token cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	u, err := s.Accounts.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, database.ErrInvalidCredentials) {
			s.Logger.Errorf("failed to authenticate user: %v", err)
		}
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		s.Logger.Errorf("failed to issue token: %v", err)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   s.TokenMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, userResponse{
		UserID: u.ID, Username: u.Username, Wins: u.Wins, Draws: u.Draws, Losses: u.Losses, Token: token,
	})
}
