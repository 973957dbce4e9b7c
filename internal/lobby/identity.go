// internal/lobby/identity.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/caro/internal/protocol"
)

// Conn is the outbound half of a client transport.
type Conn interface {
	// Send queues msg without blocking. A full or closed queue drops the message.
	Send(msg protocol.Message)
	// Close shuts the transport down once queued messages are flushed.
	Close(reason string)
}

// Identity binds one live transport to an authenticated account.
//
// roomCode and evicted are guarded by the owning Manager's lock.
type Identity struct {
	Conn     Conn
	UserID   uuid.UUID
	Username string

	roomCode string // empty when not seated
	evicted  bool
}

// NewIdentity creates the identity for a freshly authenticated connection.
func NewIdentity(conn Conn, userID uuid.UUID, username string) *Identity {
	return &Identity{Conn: conn, UserID: userID, Username: username}
}

func (id *Identity) send(msg protocol.Message) {
	if id == nil || id.Conn == nil {
		return
	}
	id.Conn.Send(msg)
}
