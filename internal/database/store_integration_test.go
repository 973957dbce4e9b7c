//go:build integration

// internal/database/store_integration_test.go
package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("caro"),
		tcpostgres.WithUsername("caro"),
		tcpostgres.WithPassword("caro"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, Migrate(dsn, logger))
	require.NoError(t, Migrate(dsn, logger), "migrating twice is a no-op")

	store, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestStoreIntegration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	alice, err := store.CreateUser(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, "bob", "pw-bob")
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	t.Run("authenticate", func(t *testing.T) {
		u, err := store.AuthenticateUser(ctx, "alice", "pw-alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)
		assert.Empty(t, u.Password)

		_, err = store.AuthenticateUser(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = store.AuthenticateUser(ctx, "nobody", "pw")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = store.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("results and stats", func(t *testing.T) {
		start := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
		winner := alice.ID
		res := models.MatchResult{
			MatchID: "01J00000000000000000000001", RoomCode: "ABCDE",
			PlayerX: alice.ID, PlayerO: bob.ID, WinnerID: &winner,
			GameMode: 5, Result: models.ResultNormal, MoveCount: 9,
			StartedAt: start, EndedAt: start.Add(time.Minute),
		}
		require.NoError(t, store.RecordMatchResult(ctx, res))
		require.NoError(t, store.RecordMatchResult(ctx, res), "recording twice is a no-op")
		require.NoError(t, store.UpdateWinLossCounts(ctx, alice.ID, bob.ID))

		draw := models.MatchResult{
			MatchID: "01J00000000000000000000002", RoomCode: "ABCDE",
			PlayerX: bob.ID, PlayerO: alice.ID, GameMode: 3, Result: models.ResultDraw,
			MoveCount: 9, StartedAt: start.Add(2 * time.Minute), EndedAt: start.Add(3 * time.Minute),
		}
		require.NoError(t, store.RecordMatchResult(ctx, draw))
		require.NoError(t, store.UpdateDrawCounts(ctx, bob.ID, alice.ID))

		board, err := store.FetchLeaderboard(ctx, 0)
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, models.LeaderboardEntry{Rank: 1, UserID: alice.ID, Username: "alice", Wins: 1, Draws: 1}, board[0])
		assert.Equal(t, models.LeaderboardEntry{Rank: 2, UserID: bob.ID, Username: "bob", Draws: 1, Losses: 1}, board[1])

		rank, err := store.GetUserRank(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, rank.Rank)

		history, err := store.FetchMatchHistory(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, draw.MatchID, history[0].MatchID, "newest first")
		assert.Nil(t, history[0].WinnerID)
		assert.False(t, history[0].PlayedAsX)
		assert.Equal(t, "bob", history[1].OpponentName)
		require.NotNil(t, history[1].WinnerID)
		assert.Equal(t, alice.ID, *history[1].WinnerID)
		assert.True(t, history[1].PlayedAsX)
		assert.Equal(t, models.ResultNormal, history[1].Result)
	})

	t.Run("rank breaks ties like the leaderboard", func(t *testing.T) {
		carol, err := store.CreateUser(ctx, "carol", "pw-carol")
		require.NoError(t, err)
		// alice 1-0, carol 1-1, bob 1-2
		require.NoError(t, store.UpdateWinLossCounts(ctx, carol.ID, bob.ID))
		require.NoError(t, store.UpdateWinLossCounts(ctx, bob.ID, carol.ID))

		board, err := store.FetchLeaderboard(ctx, 0)
		require.NoError(t, err)
		require.Len(t, board, 3)
		for _, e := range board {
			rank, err := store.GetUserRank(ctx, e.UserID)
			require.NoError(t, err)
			assert.Equal(t, e.Rank, rank.Rank, e.Username)
		}
		assert.Equal(t, []string{"alice", "carol", "bob"}, []string{board[0].Username, board[1].Username, board[2].Username})
	})

	t.Run("match events", func(t *testing.T) {
		now := time.Now().UnixMilli()
		events := []models.MatchEvent{
			{MatchID: "m1", Seq: 1, RoomCode: "ABCDE", ActorID: alice.ID, Kind: models.EventGameStart, Timestamp: now},
			{MatchID: "m1", Seq: 2, RoomCode: "ABCDE", ActorID: alice.ID, Kind: models.EventMove, Row: 4, Col: 4, Timestamp: now},
			{MatchID: "m1", Seq: 3, RoomCode: "ABCDE", Kind: models.EventGameOver, Result: "DRAW", Timestamp: now},
		}
		require.NoError(t, store.InsertMatchEvents(ctx, events))
		require.NoError(t, store.InsertMatchEvents(ctx, events[1:]), "duplicates are skipped")

		n, err := store.CountMatchEvents(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
