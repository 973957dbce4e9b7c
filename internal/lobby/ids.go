// internal/lobby/ids.go
package lobby

import "github.com/oklog/ulid/v2"

// NewMatchID returns a time-sortable id for one game.
func NewMatchID() string {
	return ulid.Make().String()
}
