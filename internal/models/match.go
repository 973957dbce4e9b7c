package models

import (
	"time"

	"github.com/google/uuid"
)

// ResultKind is how a match ended, as stored in match_history.result_type.
type ResultKind string

const (
	ResultNormal     ResultKind = "normal"
	ResultSurrender  ResultKind = "surrender"
	ResultTimeout    ResultKind = "timeout"
	ResultDisconnect ResultKind = "disconnect"
	ResultDraw       ResultKind = "draw"
)

// MatchResult is written once per finished game.
type MatchResult struct {
	MatchID   string     `json:"match_id"`
	RoomCode  string     `json:"room_code"`
	PlayerX   uuid.UUID  `json:"player_x"`
	PlayerO   uuid.UUID  `json:"player_o"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"` // nil on a draw
	GameMode  int        `json:"game_mode"`
	Result    ResultKind `json:"result_type"`
	MoveCount int        `json:"move_count"`
	StartedAt time.Time  `json:"start_time"`
	EndedAt   time.Time  `json:"end_time"`
}

// MatchHistoryEntry is a finished match as seen by one of its players.
type MatchHistoryEntry struct {
	MatchID      string     `json:"match_id"`
	OpponentID   uuid.UUID  `json:"opponent_id"`
	OpponentName string     `json:"opponent_name"`
	WinnerID     *uuid.UUID `json:"winner_id,omitempty"`
	GameMode     int        `json:"game_mode"`
	Result       ResultKind `json:"result_type"`
	PlayedAsX    bool       `json:"played_as_x"`
	MoveCount    int        `json:"move_count"`
	StartedAt    time.Time  `json:"start_time"`
	EndedAt      time.Time  `json:"end_time"`
}
