package models

import "github.com/google/uuid"

// MatchEventKind tags a MatchEvent.
type MatchEventKind string

const (
	EventGameStart MatchEventKind = "game_start"
	EventMove      MatchEventKind = "move"
	EventGameOver  MatchEventKind = "game_over"
)

// MatchEvent is one entry of a match's action log. Events are queued in Redis by the
// session engine and written to match_moves by the historian.
type MatchEvent struct {
	MatchID   string         `json:"match_id"`
	Seq       int            `json:"seq"`
	RoomCode  string         `json:"room_code"`
	ActorID   uuid.UUID      `json:"actor_id"`
	Kind      MatchEventKind `json:"kind"`
	Row       int            `json:"row"`
	Col       int            `json:"col"`
	Result    string         `json:"result,omitempty"`
	Timestamp int64          `json:"timestamp"` // epoch millis
}
