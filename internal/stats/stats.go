// internal/stats/stats.go
package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/database"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/sirupsen/logrus"
)

// Repository is the persistent side, implemented by *database.Store.
type Repository interface {
	RecordMatchResult(ctx context.Context, res models.MatchResult) error
	UpdateWinLossCounts(ctx context.Context, winner, loser uuid.UUID) error
	UpdateDrawCounts(ctx context.Context, a, b uuid.UUID) error
	FetchLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	FetchMatchHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchHistoryEntry, error)
	GetUserRank(ctx context.Context, id uuid.UUID) (models.LeaderboardEntry, error)
}

// Cache holds leaderboard pages, implemented by *cache.LeaderboardCache.
type Cache interface {
	Get(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error)
	Set(ctx context.Context, limit int, entries []models.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// Service serves player statistics and records finished games. It sits between the session engine and
// the database so the leaderboard cache is dropped whenever counts change.
type Service struct {
	repo   Repository
	cache  Cache
	logger *logrus.Logger
}

// New builds a Service. cache may be nil.
func New(repo Repository, cache Cache, logger *logrus.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Leaderboard returns up to limit entries (clamped to 1..50), cached when a cache is configured.
// Cache failures fall back to the database.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = database.ClampLimit(limit)
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx, limit)
		if err != nil {
			s.logger.Warnf("Leaderboard cache read failed: %v", err)
		} else if ok {
			return entries, nil
		}
	}

	entries, err := s.repo.FetchLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, limit, entries); err != nil {
			s.logger.Warnf("Leaderboard cache write failed: %v", err)
		}
	}
	return entries, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.MatchHistoryEntry, error) {
	return s.repo.FetchMatchHistory(ctx, userID, database.ClampLimit(limit))
}

func (s *Service) Rank(ctx context.Context, userID uuid.UUID) (models.LeaderboardEntry, error) {
	return s.repo.GetUserRank(ctx, userID)
}

func (s *Service) RecordMatchResult(ctx context.Context, res models.MatchResult) error {
	return s.repo.RecordMatchResult(ctx, res)
}

func (s *Service) UpdateWinLossCounts(ctx context.Context, winner, loser uuid.UUID) error {
	if err := s.repo.UpdateWinLossCounts(ctx, winner, loser); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) UpdateDrawCounts(ctx context.Context, a, b uuid.UUID) error {
	if err := s.repo.UpdateDrawCounts(ctx, a, b); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warnf("Leaderboard cache invalidation failed: %v", err)
	}
}
