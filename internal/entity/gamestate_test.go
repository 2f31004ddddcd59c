package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameState_ApplyMove(t *testing.T) {
	t.Run("ApplyMove", func(t *testing.T) {
		// Given: a fresh game state
		state := NewGameState()

		// When: player 1 marks cell (3, 4)
		updated, err := state.ApplyMove(Player1Mark, 3, 4)

		// Then: only that cell and last_move differ from the original
		require.NoError(t, err)
		require.Equal(t, Player1Mark, updated.Board[3][4])
		require.Equal(t, &Move{Row: 3, Col: 4, Player: Player1Mark}, updated.LastMove)
		assert.False(t, updated.IsComplete)

		for row := range updated.Board {
			for col := range updated.Board[row] {
				if row == 3 && col == 4 {
					continue
				}
				assert.Equal(t, EmptyCell, updated.Board[row][col])
			}
		}
	})

	t.Run("Original state is never mutated", func(t *testing.T) {
		// Given: a state with one move applied
		state := NewGameState()
		updated, err := state.ApplyMove(Player1Mark, 0, 0)
		require.NoError(t, err)

		// When: a second move derives from the first snapshot
		_, err = updated.ApplyMove(Player2Mark, 1, 1)
		require.NoError(t, err)

		// Then: neither ancestor snapshot changed
		assert.Equal(t, EmptyCell, state.Board[0][0])
		assert.Nil(t, state.LastMove)
		assert.Equal(t, EmptyCell, updated.Board[1][1])
	})

	t.Run("Same cell twice, last write wins", func(t *testing.T) {
		// Given: player 1 already occupies (2, 2)
		state := NewGameState()
		first, err := state.ApplyMove(Player1Mark, 2, 2)
		require.NoError(t, err)

		// When: player 2 writes the same cell, rules are not enforced
		second, err := first.ApplyMove(Player2Mark, 2, 2)

		// Then: the board stays consistent with the last write
		require.NoError(t, err)
		assert.Equal(t, Player2Mark, second.Board[2][2])
		assert.Equal(t, &Move{Row: 2, Col: 2, Player: Player2Mark}, second.LastMove)
	})

	t.Run("Error on cell out of range", func(t *testing.T) {
		state := NewGameState()

		_, err := state.ApplyMove(Player1Mark, BoardSize, 0)
		require.ErrorIs(t, err, ErrCellOutOfRange)

		_, err = state.ApplyMove(Player1Mark, 0, -1)
		require.ErrorIs(t, err, ErrCellOutOfRange)
	})
}

func TestGameState_Forfeit(t *testing.T) {
	// Given: an ongoing game
	state := NewGameState()
	ongoing, err := state.ApplyMove(Player1Mark, 0, 0)
	require.NoError(t, err)

	// When: the game is forfeited to player 1
	final := ongoing.Forfeit(Player1Mark)

	// Then: the final snapshot is complete with the winner recorded, and the
	// ongoing snapshot is untouched
	assert.True(t, final.IsComplete)
	assert.JSONEq(t, "1", string(final.Winner))
	assert.False(t, ongoing.IsComplete)
}

func TestMarkOf(t *testing.T) {
	lobby := NewLobby("duel", "alice", false, "")
	lobby.Player2 = "bob"

	assert.Equal(t, Player1Mark, MarkOf(lobby, "alice"))
	assert.Equal(t, Player2Mark, MarkOf(lobby, "bob"))
}

func TestNewLobby(t *testing.T) {
	t.Run("Human lobby starts open", func(t *testing.T) {
		// When: a lobby is created without a bot
		lobby := NewLobby("duel", "alice", false, "")

		// Then: the creator holds the first seat and the lobby is joinable
		require.NotEmpty(t, lobby.ID)
		assert.Equal(t, "alice", lobby.Creator)
		assert.Equal(t, "alice", lobby.Player1)
		assert.Empty(t, lobby.Player2)
		assert.False(t, lobby.IsFull)
		assert.True(t, lobby.IsActive)
	})

	t.Run("Bot lobby is full immediately", func(t *testing.T) {
		// When: a lobby is created against a bot
		lobby := NewLobby("vs-bot", "alice", true, "minimax")

		// Then: the bot occupies the second seat from the start
		assert.Equal(t, "minimax", lobby.BotName)
		assert.Equal(t, "minimax", lobby.Player2)
		assert.True(t, lobby.IsFull)
	})

	t.Run("is_full tracks the second seat", func(t *testing.T) {
		lobby := NewLobby("duel", "alice", false, "")

		assert.Equal(t, lobby.Player2 != "", lobby.IsFull)

		lobby.Player2 = "bob"
		lobby.IsFull = true

		assert.Equal(t, lobby.Player2 != "", lobby.IsFull)
	})
}

func TestLobby_Opponent(t *testing.T) {
	lobby := NewLobby("duel", "alice", false, "")
	lobby.Player2 = "bob"

	assert.Equal(t, "bob", lobby.Opponent("alice"))
	assert.Equal(t, "alice", lobby.Opponent("bob"))
	assert.Empty(t, lobby.Opponent("mallory"))
}
