// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application close codes sent when the server ends a session.
const (
	// ReplacedSessionCode closes a connection whose account logged in on another connection.
	ReplacedSessionCode websocket.StatusCode = 4000
	// SlowConsumerCode closes a connection that stopped draining its outbound queue.
	SlowConsumerCode websocket.StatusCode = 4001
)
