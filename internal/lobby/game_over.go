// internal/lobby/game_over.go
package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/models"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Storage persists finished games. Failures are logged and never affect the players.
type Storage interface {
	RecordMatchResult(ctx context.Context, res models.MatchResult) error
	UpdateWinLossCounts(ctx context.Context, winner, loser uuid.UUID) error
	UpdateDrawCounts(ctx context.Context, a, b uuid.UUID) error
}

// EventPublisher receives the action log of every match.
type EventPublisher interface {
	PublishMatchEvent(ctx context.Context, ev models.MatchEvent) error
}

const (
	storageTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

type outcome int

const (
	outcomeWin outcome = iota
	outcomeDraw
	outcomeSurrender
	outcomeTimeout
	outcomeOpponentLeft
)

func (o outcome) String() string {
	switch o {
	case outcomeWin:
		return "WIN"
	case outcomeDraw:
		return "DRAW"
	case outcomeSurrender:
		return "SURRENDER"
	case outcomeTimeout:
		return "TIMEOUT"
	case outcomeOpponentLeft:
		return "OPPONENT_LEFT"
	}
	return "UNKNOWN"
}

// results returns what the winner and the loser are told.
func (o outcome) results() (winner, loser protocol.Result) {
	switch o {
	case outcomeTimeout:
		return protocol.ResultTimeoutWin, protocol.ResultTimeoutLose
	case outcomeOpponentLeft:
		return protocol.ResultOpponentLeftWin, protocol.ResultLose
	case outcomeDraw:
		return protocol.ResultDraw, protocol.ResultDraw
	}
	return protocol.ResultWin, protocol.ResultLose
}

func (o outcome) kind() models.ResultKind {
	switch o {
	case outcomeDraw:
		return models.ResultDraw
	case outcomeSurrender:
		return models.ResultSurrender
	case outcomeTimeout:
		return models.ResultTimeout
	case outcomeOpponentLeft:
		return models.ResultDisconnect
	}
	return models.ResultNormal
}

// scores reports whether the outcome adds a point to the winner's room score and account record.
func (o outcome) scores() bool {
	return o == outcomeWin || o == outcomeTimeout || o == outcomeSurrender
}

// endGameUnsafe finishes the game in progress. winner and loser are nil on a draw.
// The room returns to the readying state with both ready flags cleared.
func (m *Manager) endGameUnsafe(r *Room, winner, loser *Slot, o outcome) {
	r.cancelClockUnsafe()

	if o.scores() && winner != nil {
		r.Score[winner.userID()]++
	}
	score := r.scoreCopyUnsafe()

	winRes, loseRes := o.results()
	if o == outcomeDraw {
		r.Host.Identity.send(protocol.NewGameOver(protocol.ResultDraw, score))
		r.Guest.Identity.send(protocol.NewGameOver(protocol.ResultDraw, score))
	} else {
		winner.Identity.send(protocol.NewGameOver(winRes, score))
		if o != outcomeOpponentLeft {
			loser.Identity.send(protocol.NewGameOver(loseRes, score))
		}
	}

	res := models.MatchResult{
		MatchID:   r.matchID,
		RoomCode:  r.Code,
		PlayerX:   r.playerX,
		GameMode:  int(r.Mode),
		Result:    o.kind(),
		MoveCount: r.moves,
		StartedAt: r.startedAt,
		EndedAt:   m.now(),
	}
	if other := r.opponentOfUnsafe(r.slotByUserUnsafe(r.playerX)); other != nil {
		res.PlayerO = other.userID()
	}
	var winnerID, loserID uuid.UUID
	if winner != nil {
		winnerID, loserID = winner.userID(), loser.userID()
		res.WinnerID = &winnerID
	}

	m.publishUnsafe(r, winnerID, models.EventGameOver, 0, 0, o.String())

	r.Board = nil
	r.TurnOwner = uuid.Nil
	r.resetReadyUnsafe()

	m.logger.WithFields(logrus.Fields{
		"room":   r.Code,
		"match":  r.matchID,
		"result": o.String(),
		"winner": winnerID,
	}).Info("Game over")

	m.persist(res, winnerID, loserID, o)
}

// persist writes the result through the storage collaborator off the caller's goroutine.
func (m *Manager) persist(res models.MatchResult, winner, loser uuid.UUID, o outcome) {
	if m.storage == nil {
		return
	}
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		log := m.logger.WithField("match", res.MatchID)

		if err := m.storage.RecordMatchResult(ctx, res); err != nil {
			log.Errorf("Failed to record match result: %v", err)
		}
		switch {
		case o == outcomeDraw:
			if err := m.storage.UpdateDrawCounts(ctx, res.PlayerX, res.PlayerO); err != nil {
				log.Errorf("Failed to update draw counts: %v", err)
			}
		case o.scores():
			if err := m.storage.UpdateWinLossCounts(ctx, winner, loser); err != nil {
				log.Errorf("Failed to update win/loss counts: %v", err)
			}
		}
	}()
}

// publishUnsafe appends one entry to the match's action log. Publishing happens asynchronously;
// Seq orders events for consumers.
func (m *Manager) publishUnsafe(r *Room, actor uuid.UUID, kind models.MatchEventKind, row, col int, result string) {
	r.eventSeq++
	if m.events == nil {
		return
	}
	ev := models.MatchEvent{
		MatchID:   r.matchID,
		Seq:       r.eventSeq,
		RoomCode:  r.Code,
		ActorID:   actor,
		Kind:      kind,
		Row:       row,
		Col:       col,
		Result:    result,
		Timestamp: m.now().UnixMilli(),
	}
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := m.events.PublishMatchEvent(ctx, ev); err != nil {
			m.logger.WithField("match", ev.MatchID).Warnf("Failed to publish match event %s: %v", ev.Kind, err)
		}
	}()
}
