package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrCellOutOfRange = errors.New("cell out of range")

const (
	// BoardSize is the side length of the ultimate tic-tac-toe grid.
	BoardSize = 9

	EmptyCell   = 0
	Player1Mark = 1
	Player2Mark = 2
)

// Move records a single cell assignment: who placed a mark and where.
type Move struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Player int `json:"player"`
}

// GameState is the minimal board snapshot for one lobby's active game. The
// server records moves without enforcing any game rules: clients validate
// legality and report completion themselves. Winner is kept as raw JSON so
// client-reported values pass through untouched.
type GameState struct {
	Board      [BoardSize][BoardSize]int `json:"board"`
	LastMove   *Move                     `json:"last_move"`
	IsComplete bool                      `json:"is_complete"`
	Winner     json.RawMessage           `json:"winner,omitempty"`
}

// NewGameState returns an empty board with no moves made.
func NewGameState() GameState {
	return GameState{}
}

// ApplyMove derives a new snapshot from the current one plus a single cell
// assignment. The receiver is never mutated: emit paths may keep reading an
// older snapshot while a move handler builds the next one.
func (that GameState) ApplyMove(playerMark, row, col int) (GameState, error) {
	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return that, fmt.Errorf("%w: row %d, col %d", ErrCellOutOfRange, row, col)
	}

	updated := that
	updated.Board[row][col] = playerMark
	updated.LastMove = &Move{Row: row, Col: col, Player: playerMark}

	return updated, nil
}

// Forfeit marks the game complete with the given mark as winner. Used when a
// bot misses its move deadline.
func (that GameState) Forfeit(winnerMark int) GameState {
	updated := that
	updated.IsComplete = true
	updated.Winner = json.RawMessage(strconv.Itoa(winnerMark))

	return updated
}

// MarkOf returns the board symbol for the named participant: 1 for the lobby
// creator's side, 2 for the second seat.
func MarkOf(lobby *Lobby, playerName string) int {
	if playerName == lobby.Player1 {
		return Player1Mark
	}
	return Player2Mark
}
