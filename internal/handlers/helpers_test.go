// internal/handlers/helpers_test.go
package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/database"
	"github.com/jason-s-yu/caro/internal/lobby"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	mu     sync.Mutex
	byName map[string]*models.User
	pw     map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byName: map[string]*models.User{}, pw: map[string]string{}}
}

func (a *fakeAccounts) CreateUser(_ context.Context, username, password string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byName[username]; ok {
		return nil, database.ErrUsernameTaken
	}
	u := &models.User{ID: uuid.New(), Username: username}
	a.byName[username] = u
	a.pw[username] = password
	return u, nil
}

func (a *fakeAccounts) AuthenticateUser(_ context.Context, username, password string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.byName[username]
	if !ok || a.pw[username] != password {
		return nil, database.ErrInvalidCredentials
	}
	return u, nil
}

func (a *fakeAccounts) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, database.ErrUserNotFound
}

type fakeStats struct {
	entries []models.LeaderboardEntry
	history map[uuid.UUID][]models.MatchHistoryEntry
}

func (s *fakeStats) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit > 0 && limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func (s *fakeStats) History(_ context.Context, userID uuid.UUID, _ int) ([]models.MatchHistoryEntry, error) {
	return s.history[userID], nil
}

func (s *fakeStats) Rank(_ context.Context, userID uuid.UUID) (models.LeaderboardEntry, error) {
	for _, e := range s.entries {
		if e.UserID == userID {
			return e, nil
		}
	}
	return models.LeaderboardEntry{}, database.ErrUserNotFound
}

// fakeTokens issues "tok-<uuid>" tokens.
type fakeTokens struct{}

func (fakeTokens) Issue(userID uuid.UUID) (string, error) { return "tok-" + userID.String(), nil }

func (fakeTokens) Verify(token string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimPrefix(token, "tok-"))
	if err != nil || !strings.HasPrefix(token, "tok-") {
		return uuid.Nil, database.ErrInvalidCredentials
	}
	return id, nil
}

type testEnv struct {
	srv      *Server
	http     *httptest.Server
	accounts *fakeAccounts
	stats    *fakeStats
}

// newTestEnv starts a server backed by fakes. opts adjust the Server before it starts listening.
func newTestEnv(t *testing.T, opts ...func(*Server)) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{accounts: newFakeAccounts(), stats: &fakeStats{history: map[uuid.UUID][]models.MatchHistoryEntry{}}}
	env.srv = &Server{
		Manager:     lobby.NewManager(logger, lobby.WithFirstMover(func() int { return 0 })),
		Accounts:    env.accounts,
		Stats:       env.stats,
		Tokens:      fakeTokens{},
		Logger:      logger,
		TokenMaxAge: 3600,
	}
	for _, opt := range opts {
		opt(env.srv)
	}
	env.http = httptest.NewServer(env.srv.Router(nil))
	t.Cleanup(env.http.Close)
	return env
}

func (env *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(env.http.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, action string, payload any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, map[string]any{"action": action, "payload": payload}))
}

func read(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg map[string]any
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	return msg
}

// readUntil skips frames until one with the given status arrives.
func readUntil(t *testing.T, c *websocket.Conn, status string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := read(t, c)
		if msg["status"] == status {
			return msg
		}
	}
	t.Fatalf("no %s frame received", status)
	return nil
}

// login registers username and logs the connection in.
func (env *testEnv) login(t *testing.T, c *websocket.Conn, username string) map[string]any {
	t.Helper()
	send(t, c, "REGISTER", map[string]string{"username": username, "password": "secret"})
	require.Equal(t, "REGISTER_SUCCESS", read(t, c)["status"])
	send(t, c, "LOGIN", map[string]string{"username": username, "password": "secret"})
	msg := read(t, c)
	require.Equal(t, "LOGIN_SUCCESS", msg["status"])
	return msg
}
