package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/apperror"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
	"github.com/M4RKUS28/TicTacToeUltimate/testing/suite"
)

func TestLobbyRepository_CreateAndGet(t *testing.T) {
	ctx, st := suite.New(t)

	lobbyRepo := NewLobbyRepository(st.Storage)

	// Given: a fresh lobby
	lobby := entity.NewLobby("duel", "alice", false, "")

	// When: it is created and fetched back
	err := lobbyRepo.Create(ctx, lobby)
	require.NoError(t, err)

	retrieved, err := lobbyRepo.GetByID(ctx, lobby.ID)

	// Then: the stored record matches
	require.NoError(t, err)
	assert.Equal(t, lobby.ID, retrieved.ID)
	assert.Equal(t, "alice", retrieved.Creator)
	assert.True(t, retrieved.IsActive)
	assert.False(t, retrieved.IsFull)
}

func TestLobbyRepository_GetByID_NotFound(t *testing.T) {
	ctx, st := suite.New(t)

	lobbyRepo := NewLobbyRepository(st.Storage)

	_, err := lobbyRepo.GetByID(ctx, "no-such-lobby")
	require.ErrorIs(t, err, apperror.ErrLobbyNotFound)
}

func TestLobbyRepository_ListJoinable(t *testing.T) {
	ctx, st := suite.New(t)

	lobbyRepo := NewLobbyRepository(st.Storage)

	// Given: an open lobby, a full bot lobby and a closed lobby
	open := entity.NewLobby("open", "alice", false, "")
	full := entity.NewLobby("full", "bob", true, "minimax")
	closed := entity.NewLobby("closed", "carol", false, "")

	for _, lobby := range []*entity.Lobby{open, full, closed} {
		require.NoError(t, lobbyRepo.Create(ctx, lobby))
	}

	_, err := lobbyRepo.Close(ctx, closed.ID)
	require.NoError(t, err)

	// When: joinable lobbies are listed
	joinable, err := lobbyRepo.ListJoinable(ctx)

	// Then: only the open lobby remains
	require.NoError(t, err)
	require.Len(t, joinable, 1)
	assert.Equal(t, open.ID, joinable[0].ID)
}

func TestLobbyRepository_Join(t *testing.T) {
	t.Run("Join_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		lobbyRepo := NewLobbyRepository(st.Storage)

		lobby := entity.NewLobby("duel", "alice", false, "")
		require.NoError(t, lobbyRepo.Create(ctx, lobby))

		// When: bob joins
		joined, err := lobbyRepo.Join(ctx, lobby.ID, "bob")

		// Then: the seat is taken and the lobby is full
		require.NoError(t, err)
		assert.Equal(t, "bob", joined.Player2)
		assert.True(t, joined.IsFull)
	})

	t.Run("Join_Full_Conflict", func(t *testing.T) {
		ctx, st := suite.New(t)

		lobbyRepo := NewLobbyRepository(st.Storage)

		lobby := entity.NewLobby("duel", "alice", false, "")
		require.NoError(t, lobbyRepo.Create(ctx, lobby))

		_, err := lobbyRepo.Join(ctx, lobby.ID, "bob")
		require.NoError(t, err)

		// When: a second player tries the taken seat
		_, err = lobbyRepo.Join(ctx, lobby.ID, "carol")

		// Then: the join is rejected and bob keeps the seat
		require.ErrorIs(t, err, apperror.ErrLobbyFull)

		retrieved, err := lobbyRepo.GetByID(ctx, lobby.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", retrieved.Player2)
	})

	t.Run("Join_Inactive_Conflict", func(t *testing.T) {
		ctx, st := suite.New(t)

		lobbyRepo := NewLobbyRepository(st.Storage)

		lobby := entity.NewLobby("duel", "alice", false, "")
		require.NoError(t, lobbyRepo.Create(ctx, lobby))

		_, err := lobbyRepo.Close(ctx, lobby.ID)
		require.NoError(t, err)

		_, err = lobbyRepo.Join(ctx, lobby.ID, "bob")
		require.ErrorIs(t, err, apperror.ErrLobbyInactive)
	})

	t.Run("Join_Concurrent_ExactlyOneWins", func(t *testing.T) {
		ctx, st := suite.New(t)

		lobbyRepo := NewLobbyRepository(st.Storage)

		lobby := entity.NewLobby("duel", "alice", false, "")
		require.NoError(t, lobbyRepo.Create(ctx, lobby))

		// When: two players race for the one open seat
		players := []string{"bob", "carol"}
		errs := make([]error, len(players))

		var wg sync.WaitGroup
		for i, player := range players {
			i, player := i, player
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = lobbyRepo.Join(ctx, lobby.ID, player)
			}()
		}
		wg.Wait()

		// Then: exactly one join succeeds, the loser sees the lobby as full
		var wins, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			default:
				require.ErrorIs(t, err, apperror.ErrLobbyFull)
				conflicts++
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, 1, conflicts)
	})
}

func TestLobbyRepository_RemovePlayer2(t *testing.T) {
	ctx, st := suite.New(t)

	lobbyRepo := NewLobbyRepository(st.Storage)

	lobby := entity.NewLobby("duel", "alice", false, "")
	require.NoError(t, lobbyRepo.Create(ctx, lobby))

	_, err := lobbyRepo.Join(ctx, lobby.ID, "bob")
	require.NoError(t, err)

	// When: the second seat is freed
	updated, err := lobbyRepo.RemovePlayer2(ctx, lobby.ID)

	// Then: the lobby is joinable again
	require.NoError(t, err)
	assert.Empty(t, updated.Player2)
	assert.False(t, updated.IsFull)
}

func TestLobbyRepository_FindActiveByPlayer(t *testing.T) {
	ctx, st := suite.New(t)

	lobbyRepo := NewLobbyRepository(st.Storage)

	// Given: alice created one lobby and joined another
	created := entity.NewLobby("mine", "alice", false, "")
	joined := entity.NewLobby("other", "bob", false, "")
	require.NoError(t, lobbyRepo.Create(ctx, created))
	require.NoError(t, lobbyRepo.Create(ctx, joined))

	_, err := lobbyRepo.Join(ctx, joined.ID, "alice")
	require.NoError(t, err)

	// When: alice's active lobbies are looked up
	lobbies, err := lobbyRepo.FindActiveByPlayer(ctx, "alice")

	// Then: both lobbies are found
	require.NoError(t, err)
	require.Len(t, lobbies, 2)

	ids := []string{lobbies[0].ID, lobbies[1].ID}
	assert.ElementsMatch(t, []string{created.ID, joined.ID}, ids)
}
