// internal/lobby/turn_clock.go
package lobby

import (
	"time"

	"github.com/google/uuid"
)

// CancelHandle stops a scheduled callback. *time.Timer satisfies it.
type CancelHandle interface {
	Stop() bool
}

// Scheduler arms delayed callbacks. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) CancelHandle
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) CancelHandle {
	return time.AfterFunc(d, f)
}

// TurnClock is the single outstanding per-turn timeout of a room. It targets one expected mover.
//
// cancelled is guarded by the Manager lock, so a firing that lost the race against Cancel
// sees it once it acquires the lock.
type TurnClock struct {
	Mover uuid.UUID

	handle    CancelHandle
	cancelled bool
}

// Cancel disarms the clock. Calling it more than once is safe.
func (c *TurnClock) Cancel() {
	if c == nil || c.cancelled {
		return
	}
	c.cancelled = true
	if c.handle != nil {
		c.handle.Stop()
	}
}

// armClockUnsafe replaces any pending clock with a new one for the current turn owner.
func (m *Manager) armClockUnsafe(r *Room) {
	r.cancelClockUnsafe()

	limit := time.Duration(r.Settings.TimeLimit) * time.Second
	clock := &TurnClock{Mover: r.TurnOwner}
	clock.handle = m.scheduler.AfterFunc(limit, func() {
		m.onTurnTimeout(r, clock)
	})
	r.clock = clock
}

// onTurnTimeout runs on the timer goroutine. Every check is repeated under the lock; a firing that no
// longer matches the room's state is a stale no-op.
func (m *Manager) onTurnTimeout(r *Room, clock *TurnClock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverOp("turn timeout", r.Code)

	log := m.logger.WithField("room", r.Code).WithField("user", clock.Mover)

	if clock.cancelled || r.clock != clock {
		log.Debug("Stale turn clock fired after cancel")
		return
	}
	if live, ok := m.rooms.Get(r.Code); !ok || live != r {
		log.Debug("Turn clock fired for a destroyed room")
		return
	}
	if !r.inGameUnsafe() || r.TurnOwner != clock.Mover {
		log.Debug("Turn clock fired after the turn moved on")
		return
	}

	loser := r.slotByUserUnsafe(clock.Mover)
	winner := r.opponentOfUnsafe(loser)
	if loser == nil || winner == nil {
		return
	}
	r.clock = nil

	log.Info("Turn timed out")
	m.endGameUnsafe(r, winner, loser, outcomeTimeout)
}
