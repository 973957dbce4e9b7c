// internal/game/rules.go
package game

import (
	"errors"
	"fmt"
)

// Mode selects the board size and the run length needed to win.
type Mode int

const (
	// ModeAny is the wildcard used by join, list and quick-join filters. It is never a room's mode.
	ModeAny Mode = 0
	Mode3   Mode = 3
	Mode4   Mode = 4
	Mode5   Mode = 5
	Mode6   Mode = 6

	// DefaultMode is used when a room is created without a mode, or when two wildcard entries are matched.
	DefaultMode = Mode5
)

// ErrInvalidMode is returned for a mode outside the rules table.
var ErrInvalidMode = errors.New("invalid game mode")

// Rules describes the board for one mode.
type Rules struct {
	BoardSize int `json:"board_size"`
	RunLength int `json:"run_length"`
}

// rulesTable is the mode -> board configuration. Smaller modes play on smaller boards.
var rulesTable = map[Mode]Rules{
	Mode3: {BoardSize: 3, RunLength: 3},
	Mode4: {BoardSize: 7, RunLength: 4},
	Mode5: {BoardSize: 9, RunLength: 5},
	Mode6: {BoardSize: 11, RunLength: 6},
}

// Modes lists the playable modes in ascending order.
var Modes = []Mode{Mode3, Mode4, Mode5, Mode6}

// Valid reports whether m is a playable (non-wildcard) mode.
func (m Mode) Valid() bool {
	_, ok := rulesTable[m]
	return ok
}

// Matches reports whether a room of mode m satisfies the filter. ModeAny matches every room.
func (m Mode) Matches(filter Mode) bool {
	return filter == ModeAny || filter == m
}

// ParseFilter validates a client-supplied mode that may be the wildcard.
func ParseFilter(v int) (Mode, error) {
	m := Mode(v)
	if m == ModeAny || m.Valid() {
		return m, nil
	}
	return ModeAny, fmt.Errorf("%w: %d", ErrInvalidMode, v)
}

// RulesFor returns the board configuration for a playable mode.
func RulesFor(m Mode) (Rules, error) {
	r, ok := rulesTable[m]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return r, nil
}

// BoardSizeForMode returns the side length of the board for m, or 0 if m is not playable.
func BoardSizeForMode(m Mode) int {
	return rulesTable[m].BoardSize
}

// RunLengthForMode returns how many cells in a line win a game of mode m, or 0 if m is not playable.
func RunLengthForMode(m Mode) int {
	return rulesTable[m].RunLength
}
