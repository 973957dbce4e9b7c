// internal/game/board.go
package game

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Board is a square matrix of cell owners. uuid.Nil marks an empty cell.
type Board [][]uuid.UUID

// directions are the four axes scanned through a placed cell: horizontal, vertical and both diagonals.
var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// NewBoard allocates an empty size x size board.
func NewBoard(size int) Board {
	b := make(Board, size)
	for i := range b {
		b[i] = make([]uuid.UUID, size)
	}
	return b
}

// Size returns the side length of the board.
func (b Board) Size() int {
	return len(b)
}

// InBounds reports whether (row, col) lies on the board.
func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < len(b) && col < len(b[row])
}

// Empty reports whether (row, col) has no owner. The cell must be in bounds.
func (b Board) Empty(row, col int) bool {
	return b[row][col] == uuid.Nil
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]uuid.UUID(nil), row...)
	}
	return out
}

// MarshalJSON encodes the board as rows of user id strings, with "" for empty cells.
func (b Board) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	rows := make([][]string, len(b))
	for i, row := range b {
		rows[i] = make([]string, len(row))
		for j, owner := range row {
			if owner != uuid.Nil {
				rows[i][j] = owner.String()
			}
		}
	}
	return json.Marshal(rows)
}

// CheckWin reports whether the cell just played at (row, col) completes a line of runLength cells owned by player.
//
// Each direction is scanned over a window of 2*runLength-1 cells centred on the move. Cells off the board or
// owned by anyone else reset the running count.
func CheckWin(b Board, row, col int, player uuid.UUID, runLength int) bool {
	if runLength <= 0 || player == uuid.Nil || !b.InBounds(row, col) {
		return false
	}
	reach := runLength - 1
	for _, d := range directions {
		count := 0
		for i := -reach; i <= reach; i++ {
			r, c := row+i*d[0], col+i*d[1]
			if b.InBounds(r, c) && b[r][c] == player {
				count++
				if count >= runLength {
					return true
				}
			} else {
				count = 0
			}
		}
	}
	return false
}

// IsFull reports whether no empty cell remains.
func IsFull(b Board) bool {
	for _, row := range b {
		for _, owner := range row {
			if owner == uuid.Nil {
				return false
			}
		}
	}
	return true
}
