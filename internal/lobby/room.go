// internal/lobby/room.go
package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/protocol"
)

// Slot is one of the two player positions in a room.
type Slot struct {
	Identity *Identity
	Ready    bool
}

func (s *Slot) userID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.Identity.UserID
}

func (s *Slot) view() *protocol.PlayerView {
	if s == nil {
		return nil
	}
	return &protocol.PlayerView{
		UserID:   s.Identity.UserID,
		Username: s.Identity.Username,
		IsReady:  s.Ready,
	}
}

// Room is the live container for one pairing of players.
//
// All fields are guarded by the owning Manager's lock. Board is non-nil exactly while a game is in
// progress, and then TurnOwner is one of the two slot user ids and clock targets TurnOwner.
type Room struct {
	Code     string
	Password string
	Mode     game.Mode
	Rules    game.Rules
	Settings protocol.RoomSettings

	Host  *Slot // slot A, never nil while the room is live
	Guest *Slot // slot B, nil until a second player joins

	Board     game.Board
	TurnOwner uuid.UUID
	Score     map[uuid.UUID]int

	CreatedAt time.Time

	seq       uint64 // creation order, used for first-found quick-join scans
	matchID   string
	playerX   uuid.UUID
	startedAt time.Time
	moves     int
	eventSeq  int
	clock     *TurnClock
}

func (r *Room) inGameUnsafe() bool {
	return r.Board != nil
}

// slotOfUnsafe returns the slot held by this exact identity, or nil.
func (r *Room) slotOfUnsafe(id *Identity) *Slot {
	if r.Host != nil && r.Host.Identity == id {
		return r.Host
	}
	if r.Guest != nil && r.Guest.Identity == id {
		return r.Guest
	}
	return nil
}

func (r *Room) slotByUserUnsafe(userID uuid.UUID) *Slot {
	if r.Host != nil && r.Host.Identity.UserID == userID {
		return r.Host
	}
	if r.Guest != nil && r.Guest.Identity.UserID == userID {
		return r.Guest
	}
	return nil
}

func (r *Room) opponentOfUnsafe(s *Slot) *Slot {
	switch s {
	case r.Host:
		return r.Guest
	case r.Guest:
		return r.Host
	}
	return nil
}

// cancelClockUnsafe disarms the pending turn clock, if any.
func (r *Room) cancelClockUnsafe() {
	if r.clock != nil {
		r.clock.Cancel()
		r.clock = nil
	}
}

func (r *Room) resetReadyUnsafe() {
	if r.Host != nil {
		r.Host.Ready = false
	}
	if r.Guest != nil {
		r.Guest.Ready = false
	}
}

// ensureScoreUnsafe keeps the running score while the pairing is unchanged and resets it to 0-0 otherwise.
func (r *Room) ensureScoreUnsafe() {
	a, b := r.Host.userID(), r.Guest.userID()
	_, hasA := r.Score[a]
	_, hasB := r.Score[b]
	if len(r.Score) == 2 && hasA && hasB {
		return
	}
	r.Score = map[uuid.UUID]int{a: 0, b: 0}
}

func (r *Room) scoreCopyUnsafe() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(r.Score))
	for k, v := range r.Score {
		out[k] = v
	}
	return out
}

func (r *Room) snapshotUnsafe() protocol.RoomSnapshot {
	return protocol.RoomSnapshot{
		RoomID:      r.Code,
		GameMode:    r.Mode,
		BoardSize:   r.Rules.BoardSize,
		RunLength:   r.Rules.RunLength,
		HasPassword: r.Password != "",
		Settings:    r.Settings,
		Player1:     r.Host.view(),
		Player2:     r.Guest.view(),
		InGame:      r.inGameUnsafe(),
		Score:       r.scoreCopyUnsafe(),
	}
}

func (r *Room) summaryUnsafe() protocol.RoomSummary {
	return protocol.RoomSummary{
		RoomID:      r.Code,
		HostName:    r.Host.Identity.Username,
		HasPassword: r.Password != "",
		GameMode:    r.Mode,
		Settings:    r.Settings,
	}
}

// waitingUnsafe reports whether the room is listed for FIND_ROOM: one occupant and no game.
func (r *Room) waitingUnsafe() bool {
	return r.Guest == nil && !r.inGameUnsafe()
}
