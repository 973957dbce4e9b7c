// internal/handlers/ws_test.go
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t)
	c := env.dial(t)

	send(t, c, "CREATE_ROOM", nil)
	msg := read(t, c)
	assert.Equal(t, "ERROR", msg["status"])
	assert.Equal(t, "you must log in first", msg["message"])
}

func TestMalformedFrames(t *testing.T) {
	env := newTestEnv(t)
	c := env.dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "ERROR", read(t, c)["status"])

	send(t, c, "DANCE", nil)
	assert.Equal(t, "ERROR", read(t, c)["status"])

	// the connection survives bad frames
	env.login(t, c, "alice")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	c := env.dial(t)

	msg := env.login(t, c, "alice")
	assert.Equal(t, "alice", msg["username"])
	token, _ := msg["token"].(string)
	require.NotEmpty(t, token)

	send(t, c, "REGISTER", map[string]string{"username": "alice", "password": "secret"})
	assert.Equal(t, "ERROR", read(t, c)["status"])

	send(t, c, "LOGIN", map[string]string{"username": "alice", "password": "wrong"})
	errMsg := read(t, c)
	assert.Equal(t, "ERROR", errMsg["status"])
	assert.Equal(t, "invalid username or password", errMsg["message"])

	// token login on a fresh connection
	c2 := env.dial(t)
	send(t, c2, "LOGIN", map[string]string{"token": token})
	assert.Equal(t, "LOGIN_SUCCESS", read(t, c2)["status"])
}

func TestSecondLoginEvictsFirst(t *testing.T) {
	env := newTestEnv(t)
	first := env.dial(t)
	env.login(t, first, "alice")

	second := env.dial(t)
	send(t, second, "LOGIN", map[string]string{"username": "alice", "password": "secret"})
	assert.Equal(t, "LOGIN_SUCCESS", read(t, second)["status"])

	assert.Equal(t, "FORCE_LOGOUT", read(t, first)["status"])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := first.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, ReplacedSessionCode, websocket.CloseStatus(err))
}

func TestRoomFlowOverWebsocket(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.dial(t), env.dial(t)
	env.login(t, alice, "alice")
	env.login(t, bob, "bob")

	send(t, alice, "CREATE_ROOM", map[string]any{"game_mode": 3})
	created := read(t, alice)
	require.Equal(t, "ROOM_CREATED", created["status"])
	code, _ := created["room_id"].(string)
	require.Len(t, code, 5)

	send(t, bob, "FIND_ROOM", map[string]any{"game_mode": 0})
	list := read(t, bob)
	require.Equal(t, "ROOM_LIST", list["status"])
	assert.Len(t, list["rooms"], 1)

	send(t, bob, "JOIN_ROOM", map[string]any{"room_id": code})
	assert.Equal(t, "JOIN_SUCCESS", read(t, bob)["status"])
	assert.Equal(t, "OPPONENT_JOINED", read(t, alice)["status"])

	send(t, bob, "CHAT", map[string]any{"message": "glhf"})
	chat := read(t, alice)
	assert.Equal(t, "OPPONENT_CHAT", chat["status"])
	assert.Equal(t, "bob", chat["sender"])

	send(t, alice, "PLAYER_READY", map[string]any{"is_ready": true})
	send(t, bob, "PLAYER_READY", map[string]any{"is_ready": true})
	startA := readUntil(t, alice, "GAME_START")
	startB := readUntil(t, bob, "GAME_START")
	assert.Equal(t, "X", startA["role"])
	assert.Equal(t, "O", startB["role"])

	moves := []struct {
		c        *websocket.Conn
		row, col int
	}{
		{alice, 0, 0}, {bob, 1, 0}, {alice, 0, 1}, {bob, 1, 1}, {alice, 0, 2},
	}
	for i, mv := range moves {
		send(t, mv.c, "MAKE_MOVE", map[string]int{"row": mv.row, "col": mv.col})
		if i < len(moves)-1 {
			other := bob
			if mv.c == bob {
				other = alice
			}
			assert.Equal(t, "OPPONENT_MOVE", read(t, other)["status"])
		}
	}

	overA := readUntil(t, alice, "GAME_OVER")
	overB := readUntil(t, bob, "GAME_OVER")
	assert.Equal(t, "WIN", overA["result"])
	assert.Equal(t, "LOSE", overB["result"])

	send(t, bob, "LEAVE_ROOM", nil)
	assert.Equal(t, "LEFT_ROOM", read(t, bob)["status"])
	assert.Equal(t, "OPPONENT_LEFT", read(t, alice)["status"])
}

func TestDisconnectFreesRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.dial(t)
	env.login(t, alice, "alice")

	send(t, alice, "CREATE_ROOM", nil)
	require.Equal(t, "ROOM_CREATED", read(t, alice)["status"])
	require.Equal(t, 1, env.srv.Manager.RoomCount())

	alice.Close(websocket.StatusNormalClosure, "bye")
	require.Eventually(t, func() bool { return env.srv.Manager.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLeaderboardOverWebsocket(t *testing.T) {
	env := newTestEnv(t)
	env.stats.entries = []models.LeaderboardEntry{
		{Rank: 1, UserID: uuid.New(), Username: "carol", Wins: 9},
		{Rank: 2, UserID: uuid.New(), Username: "dave", Wins: 4},
	}
	c := env.dial(t)
	env.login(t, c, "alice")

	send(t, c, "FETCH_LEADERBOARD", map[string]int{"limit": 1})
	msg := read(t, c)
	require.Equal(t, "LEADERBOARD", msg["status"])
	assert.Len(t, msg["entries"], 1)

	send(t, c, "FETCH_HISTORY", nil)
	assert.Equal(t, "MATCH_HISTORY", read(t, c)["status"])
}

// panickingStats panics on leaderboard queries.
type panickingStats struct{ *fakeStats }

func (panickingStats) Leaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	panic("leaderboard exploded")
}

func TestPanicInHandlerIsIsolated(t *testing.T) {
	env := newTestEnv(t, func(s *Server) { s.Stats = panickingStats{&fakeStats{}} })
	c := env.dial(t)
	env.login(t, c, "alice")

	send(t, c, "FETCH_LEADERBOARD", nil)
	msg := read(t, c)
	assert.Equal(t, "ERROR", msg["status"])
	assert.Equal(t, "internal server error", msg["message"])

	send(t, c, "CREATE_ROOM", nil)
	assert.Equal(t, "ROOM_CREATED", read(t, c)["status"])
}
