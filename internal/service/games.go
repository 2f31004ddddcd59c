package service

import (
	"sync"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
)

// GameStore holds the in-memory game state of every active lobby, keyed by
// lobby id. States are stored by value: readers get a snapshot, writers put
// a fresh one, so a slow emit path never observes a half-applied move.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]entity.GameState
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]entity.GameState),
	}
}

func (that *GameStore) Get(lobbyID string) (entity.GameState, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	state, ok := that.games[lobbyID]
	return state, ok
}

func (that *GameStore) Put(lobbyID string, state entity.GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[lobbyID] = state
}

// Delete evicts a lobby's state. Called when a lobby closes so finished
// games do not accumulate for the lifetime of the process.
func (that *GameStore) Delete(lobbyID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.games, lobbyID)
}
