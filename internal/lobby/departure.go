// internal/lobby/departure.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
)

const forceLogoutMessage = "your account logged in from another connection"

// Login registers a freshly authenticated identity. An older live identity of the same user is
// force-evicted; its room slot is cleaned up when that transport disconnects.
func (m *Manager) Login(id *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.identities[id.UserID]; ok && old != id {
		m.evictUnsafe(old)
	}
	id.evicted = false
	m.identities[id.UserID] = id
	m.logger.WithField("user", id.UserID).Infof("User %s logged in", id.Username)
}

// ForceEvict invalidates the live identity of userID, if any, and reports whether one existed.
func (m *Manager) ForceEvict(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.identities[userID]
	if !ok {
		return false
	}
	m.evictUnsafe(old)
	return true
}

func (m *Manager) evictUnsafe(old *Identity) {
	delete(m.identities, old.UserID)
	m.queue.remove(old)
	old.evicted = true
	old.send(protocol.NewForceLogout(forceLogoutMessage))
	if old.Conn != nil {
		old.Conn.Close("logged in elsewhere")
	}
	m.logger.WithField("user", old.UserID).Info("Evicted stale connection")
}

// LeaveRoom vacates the caller's slot. Leaving when not seated is a no-op.
func (m *Manager) LeaveRoom(caller *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveUnsafe(caller, true)
}

// Disconnect cleans up after a transport closed: the queue entry, the room slot and the login registration.
// It is safe to call more than once.
func (m *Manager) Disconnect(caller *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller == nil {
		return
	}
	m.queue.remove(caller)
	m.leaveUnsafe(caller, false)
	if m.identities[caller.UserID] == caller {
		delete(m.identities, caller.UserID)
	}
	caller.evicted = true
}

// leaveUnsafe removes the caller from its room. The room is destroyed if nobody is left; otherwise the
// remaining player becomes slot A and either wins the running game or is told they are waiting alone.
func (m *Manager) leaveUnsafe(caller *Identity, ack bool) {
	r, slot := m.roomOfUnsafe(caller)
	if r == nil {
		return
	}
	caller.roomCode = ""
	r.cancelClockUnsafe()

	log := m.logger.WithFields(logrus.Fields{"room": r.Code, "user": caller.UserID})
	if ack {
		caller.send(protocol.NewLeftRoom(r.Code))
	}

	other := r.opponentOfUnsafe(slot)
	if other == nil {
		m.rooms.Delete(r.Code)
		log.Info("Room destroyed, last occupant left")
		return
	}

	wasInGame := r.inGameUnsafe()
	if wasInGame {
		m.endGameUnsafe(r, other, slot, outcomeOpponentLeft)
	}

	r.Host = other
	r.Guest = nil
	r.Host.Ready = false
	log.Info("Player left room")

	if !wasInGame {
		other.Identity.send(protocol.NewOpponentLeft(r.snapshotUnsafe()))
	}
}
