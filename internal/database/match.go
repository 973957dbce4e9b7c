// internal/database/match.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/caro/internal/models"
)

// MaxListLimit caps leaderboard and history pages.
const MaxListLimit = 50

// ClampLimit maps a requested page size onto 1..MaxListLimit, defaulting to MaxListLimit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// RecordMatchResult inserts one finished game. Recording the same match twice is a no-op.
func (s *Store) RecordMatchResult(ctx context.Context, res models.MatchResult) error {
	q := `INSERT INTO match_history (
	          match_id, room_code, player_x_id, player_o_id, winner_id,
	          game_mode, result_type, move_count, start_time, end_time
	      ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	      ON CONFLICT (match_id) DO NOTHING`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			res.MatchID, res.RoomCode, res.PlayerX, res.PlayerO, res.WinnerID,
			res.GameMode, string(res.Result), res.MoveCount, res.StartedAt, res.EndedAt,
		)
		return err
	})
}

// UpdateWinLossCounts adds a win to winner and a loss to loser in one transaction.
func (s *Store) UpdateWinLossCounts(ctx context.Context, winner, loser uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE users SET wins = wins + 1 WHERE id = $1`, winner); err != nil {
			return fmt.Errorf("update wins: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET losses = losses + 1 WHERE id = $1`, loser); err != nil {
			return fmt.Errorf("update losses: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateDrawCounts(ctx context.Context, a, b uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE users SET draws = draws + 1 WHERE id = $1 OR id = $2`, a, b)
		return err
	})
}

// FetchLeaderboard returns the top players by wins, then fewest losses.
func (s *Store) FetchLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `SELECT id, username, wins, draws, losses
	      FROM users
	      ORDER BY wins DESC, losses ASC, username ASC
	      LIMIT $1`
	rows, err := s.pool.Query(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		e := models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Wins, &e.Draws, &e.Losses); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetUserRank returns the user's stats with Rank = 1 + the number of players ahead of them in leaderboard
// order: more wins, or equal wins and fewer losses.
func (s *Store) GetUserRank(ctx context.Context, id uuid.UUID) (models.LeaderboardEntry, error) {
	q := `SELECT u.id, u.username, u.wins, u.draws, u.losses,
	             1 + (SELECT COUNT(*) FROM users o
	                  WHERE o.wins > u.wins OR (o.wins = u.wins AND o.losses < u.losses))
	      FROM users u
	      WHERE u.id = $1`
	var e models.LeaderboardEntry
	err := s.pool.QueryRow(ctx, q, id).Scan(&e.UserID, &e.Username, &e.Wins, &e.Draws, &e.Losses, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, ErrUserNotFound
	}
	return e, err
}

// FetchMatchHistory returns the user's finished matches, newest first.
func (s *Store) FetchMatchHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchHistoryEntry, error) {
	q := `SELECT mh.match_id,
	             CASE WHEN mh.player_x_id = $1 THEN mh.player_o_id ELSE mh.player_x_id END,
	             CASE WHEN mh.player_x_id = $1 THEN uo.username ELSE ux.username END,
	             mh.winner_id, mh.game_mode, mh.result_type, mh.player_x_id = $1,
	             mh.move_count, mh.start_time, mh.end_time
	      FROM match_history mh
	      JOIN users ux ON ux.id = mh.player_x_id
	      JOIN users uo ON uo.id = mh.player_o_id
	      WHERE mh.player_x_id = $1 OR mh.player_o_id = $1
	      ORDER BY mh.end_time DESC
	      LIMIT $2`
	rows, err := s.pool.Query(ctx, q, userID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query match history: %w", err)
	}
	defer rows.Close()

	out := []models.MatchHistoryEntry{}
	for rows.Next() {
		var (
			e      models.MatchHistoryEntry
			result string
		)
		if err := rows.Scan(&e.MatchID, &e.OpponentID, &e.OpponentName, &e.WinnerID, &e.GameMode,
			&result, &e.PlayedAsX, &e.MoveCount, &e.StartedAt, &e.EndedAt); err != nil {
			return nil, err
		}
		e.Result = models.ResultKind(result)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertMatchEvents writes a batch of match events in one transaction. Events already stored are skipped,
// so a batch may be retried.
func (s *Store) InsertMatchEvents(ctx context.Context, events []models.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := `INSERT INTO match_moves (match_id, seq, room_code, actor_id, kind, row_idx, col_idx, result, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	      ON CONFLICT (match_id, seq) DO NOTHING`
	return s.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			var actor *uuid.UUID
			if ev.ActorID != uuid.Nil {
				id := ev.ActorID
				actor = &id
			}
			batch.Queue(q, ev.MatchID, ev.Seq, ev.RoomCode, actor, string(ev.Kind),
				ev.Row, ev.Col, ev.Result, time.UnixMilli(ev.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// CountMatchEvents returns how many events of a match are stored.
func (s *Store) CountMatchEvents(ctx context.Context, matchID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM match_moves WHERE match_id = $1`, matchID).Scan(&n)
	return n, err
}
