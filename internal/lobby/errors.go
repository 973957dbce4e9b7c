// internal/lobby/errors.go
package lobby

import "errors"

// Precondition errors. Their text is sent to the caller as the ERROR message; room state is unchanged.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrWrongPassword   = errors.New("wrong room password")
	ErrModeMismatch    = errors.New("room game mode does not match")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrOutOfBounds     = errors.New("move is out of bounds")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrAlreadyQueued   = errors.New("already waiting for a match")
	ErrGameNotStarted  = errors.New("game has not started")
	ErrNoActiveGame    = errors.New("no active game")
	ErrNotInRoom       = errors.New("not in a room")
	ErrAlreadyInRoom   = errors.New("already in a room")
	ErrNotHost         = errors.New("only the host can change room settings")
	ErrGameInProgress  = errors.New("not allowed while a game is in progress")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrNotLoggedIn     = errors.New("you must log in first")
	ErrChatTooLong     = errors.New("chat message too long")
)
