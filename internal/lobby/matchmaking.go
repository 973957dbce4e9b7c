// internal/lobby/matchmaking.go
package lobby

import (
	"github.com/jason-s-yu/caro/internal/game"
	"github.com/jason-s-yu/caro/internal/protocol"
)

// MatchQueue holds at most one waiting identity per game mode, plus one wildcard slot.
// It is guarded by the Manager lock.
type MatchQueue struct {
	slots map[game.Mode]*Identity
}

func newMatchQueue() *MatchQueue {
	return &MatchQueue{slots: make(map[game.Mode]*Identity)}
}

// searchOrder lists the slots scanned for a caller asking for mode.
func searchOrder(mode game.Mode) []game.Mode {
	if mode == game.ModeAny {
		return append(append([]game.Mode(nil), game.Modes...), game.ModeAny)
	}
	return []game.Mode{mode, game.ModeAny}
}

// modeOf returns the slot the identity waits in.
func (q *MatchQueue) modeOf(id *Identity) (game.Mode, bool) {
	for mode, queued := range q.slots {
		if queued == id {
			return mode, true
		}
	}
	return game.ModeAny, false
}

// partnerFor finds a compatible waiting identity belonging to a different user.
func (q *MatchQueue) partnerFor(caller *Identity, mode game.Mode) (*Identity, game.Mode, bool) {
	for _, m := range searchOrder(mode) {
		queued, ok := q.slots[m]
		if ok && queued.UserID != caller.UserID {
			return queued, m, true
		}
	}
	return nil, game.ModeAny, false
}

// enqueue places the identity in the slot for mode. It reports false if the slot is taken.
func (q *MatchQueue) enqueue(id *Identity, mode game.Mode) bool {
	if _, taken := q.slots[mode]; taken {
		return false
	}
	q.slots[mode] = id
	return true
}

// remove drops the identity from whichever slot holds it.
func (q *MatchQueue) remove(id *Identity) bool {
	mode, ok := q.modeOf(id)
	if ok {
		delete(q.slots, mode)
	}
	return ok
}

func (q *MatchQueue) len() int {
	return len(q.slots)
}

// resolveMode picks the mode of a room synthesized from two queue entries.
func resolveMode(a, b game.Mode) game.Mode {
	if a != game.ModeAny {
		return a
	}
	if b != game.ModeAny {
		return b
	}
	return game.DefaultMode
}

// QuickJoin pairs the caller with an idle room, then with a waiting player, and otherwise queues them.
func (m *Manager) QuickJoin(caller *Identity, mode game.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCallerUnsafe(caller); err != nil {
		return err
	}
	if mode != game.ModeAny && !mode.Valid() {
		return game.ErrInvalidMode
	}
	if _, queued := m.queue.modeOf(caller); queued {
		return ErrAlreadyQueued
	}
	if caller.roomCode != "" {
		return ErrAlreadyInRoom
	}

	for _, r := range m.rooms.Rooms() {
		if r.Guest != nil || r.Password != "" || r.inGameUnsafe() {
			continue
		}
		if r.Host.Identity.UserID == caller.UserID || !r.Mode.Matches(mode) {
			continue
		}
		m.seatGuestUnsafe(r, caller, "")
		return nil
	}

	if partner, partnerMode, ok := m.queue.partnerFor(caller, mode); ok {
		m.queue.remove(partner)
		r := m.newRoomUnsafe(partner, "", m.defaultSettings(), resolveMode(partnerMode, mode))
		r.Guest = &Slot{Identity: caller}
		caller.roomCode = r.Code

		snap := r.snapshotUnsafe()
		partner.send(protocol.NewJoinSuccess(snap, "opponent found"))
		caller.send(protocol.NewJoinSuccess(snap, "opponent found"))
		m.logger.WithField("room", r.Code).Infof("Quick join matched %s and %s", partner.Username, caller.Username)
		return nil
	}

	if !m.queue.enqueue(caller, mode) {
		return ErrAlreadyQueued
	}
	caller.send(protocol.NewWaitingForMatch(mode))
	m.logger.WithField("user", caller.UserID).Debugf("Queued for quick join (mode %d)", mode)
	return nil
}

// CancelQuickJoin removes the caller's queue entry. It is a no-op if the caller is not queued.
func (m *Manager) CancelQuickJoin(caller *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue.remove(caller) {
		caller.send(protocol.NewQuickJoinCancelled())
	}
}

// QueueLen returns the number of waiting quick-join entries.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.len()
}
