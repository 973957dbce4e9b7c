// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/caro/internal/auth"
	"github.com/jason-s-yu/caro/internal/models"
)

const userColumns = `id, username, password_hash, wins, draws, losses, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Wins, &u.Draws, &u.Losses, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser hashes password and inserts a new account. The returned user carries no password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(password, auth.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{ID: uuid.New(), Username: username}
	q := `INSERT INTO users (id, username, password_hash)
	      VALUES ($1, $2, $3)
	      RETURNING created_at`
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, u.ID, u.Username, hash).Scan(&u.CreatedAt)
	})
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(s.pool.QueryRow(ctx, q, strings.TrimSpace(username)))
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}

// AuthenticateUser checks the password and returns the account with its stats.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	ok, err := auth.VerifyPassword(password, u.Password)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	u.Password = ""
	return u, nil
}
