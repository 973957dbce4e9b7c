// internal/handlers/server.go
package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/lobby"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
)

// Accounts is the user store behind REGISTER and LOGIN.
type Accounts interface {
	CreateUser(ctx context.Context, username, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Stats serves leaderboard, history and rank queries.
type Stats interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchHistoryEntry, error)
	Rank(ctx context.Context, userID uuid.UUID) (models.LeaderboardEntry, error)
}

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(userID uuid.UUID) (string, error)
	Verify(token string) (uuid.UUID, error)
}

// Server holds the collaborators shared by the websocket and HTTP handlers.
type Server struct {
	Manager  *lobby.Manager
	Accounts Accounts
	Stats    Stats
	Tokens   Tokens
	Logger   *logrus.Logger

	// OriginPatterns is passed to websocket.Accept. Empty means same-origin only.
	OriginPatterns []string
	// TokenMaxAge is the auth_token cookie lifetime in seconds, 0 for a session cookie.
	TokenMaxAge int
}
