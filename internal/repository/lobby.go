package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/apperror"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
)

// ErrConcurrentUpdate is returned when an optimistic transaction keeps
// losing against concurrent writers.
var ErrConcurrentUpdate = errors.New("lobby modified concurrently")

// LobbyRepository is the durable store for lobby records. Mutations are
// atomic per record: two concurrent joins on the same open lobby resolve to
// exactly one winner, the loser observes the lobby as full.
type LobbyRepository interface {
	Create(ctx context.Context, lobby *entity.Lobby) error
	GetByID(ctx context.Context, id string) (*entity.Lobby, error)
	ListJoinable(ctx context.Context) ([]*entity.Lobby, error)
	FindActiveByPlayer(ctx context.Context, playerName string) ([]*entity.Lobby, error)
	Join(ctx context.Context, id, playerName string) (*entity.Lobby, error)
	Close(ctx context.Context, id string) (*entity.Lobby, error)
	RemovePlayer2(ctx context.Context, id string) (*entity.Lobby, error)
}

const (
	lobbyKeyPrefix = "lobby:"
	activeSetKey   = "lobbies:active"

	txRetries = 10
)

type dbLobby struct {
	client *redis.Client
}

// NewLobbyRepository returns a redis-backed LobbyRepository. Records are
// stored as JSON blobs keyed by lobby id, with a set of active lobby ids as
// the scan index.
func NewLobbyRepository(client *redis.Client) LobbyRepository {
	return &dbLobby{
		client: client,
	}
}

func (that *dbLobby) Create(ctx context.Context, lobby *entity.Lobby) error {
	lobbyJSON, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("could not marshal lobby: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lobbyKeyPrefix+lobby.ID, lobbyJSON, 0)
		pipe.SAdd(ctx, activeSetKey, lobby.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set lobby: %w", err)
	}

	return nil
}

func (that *dbLobby) GetByID(ctx context.Context, id string) (*entity.Lobby, error) {
	response, err := that.client.Get(ctx, lobbyKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrLobbyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get lobby by ID: %w", err)
	}

	var existingLobby entity.Lobby
	if err = json.Unmarshal([]byte(response), &existingLobby); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lobby: %w", err)
	}

	return &existingLobby, nil
}

func (that *dbLobby) ListJoinable(ctx context.Context) ([]*entity.Lobby, error) {
	lobbies, err := that.activeLobbies(ctx)
	if err != nil {
		return nil, err
	}

	joinable := make([]*entity.Lobby, 0, len(lobbies))
	for _, lobby := range lobbies {
		if lobby.IsActive && !lobby.IsFull {
			joinable = append(joinable, lobby)
		}
	}

	return joinable, nil
}

func (that *dbLobby) FindActiveByPlayer(ctx context.Context, playerName string) ([]*entity.Lobby, error) {
	lobbies, err := that.activeLobbies(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*entity.Lobby, 0, 1)
	for _, lobby := range lobbies {
		if lobby.IsActive && lobby.HasPlayer(playerName) {
			matched = append(matched, lobby)
		}
	}

	return matched, nil
}

func (that *dbLobby) Join(ctx context.Context, id, playerName string) (*entity.Lobby, error) {
	return that.mutate(ctx, id, func(lobby *entity.Lobby) error {
		if !lobby.IsActive {
			return apperror.ErrLobbyInactive
		}
		if lobby.IsFull {
			return apperror.ErrLobbyFull
		}

		lobby.Player2 = playerName
		lobby.IsFull = true

		return nil
	})
}

func (that *dbLobby) Close(ctx context.Context, id string) (*entity.Lobby, error) {
	lobby, err := that.mutate(ctx, id, func(lobby *entity.Lobby) error {
		lobby.IsActive = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = that.client.SRem(ctx, activeSetKey, id).Err(); err != nil {
		return nil, fmt.Errorf("failed to unindex lobby: %w", err)
	}

	return lobby, nil
}

func (that *dbLobby) RemovePlayer2(ctx context.Context, id string) (*entity.Lobby, error) {
	return that.mutate(ctx, id, func(lobby *entity.Lobby) error {
		lobby.Player2 = ""
		lobby.IsFull = false
		return nil
	})
}

// mutate runs a read-modify-write on one lobby record under an optimistic
// WATCH transaction, so interleaved writers never produce a lost update.
func (that *dbLobby) mutate(ctx context.Context, id string, apply func(*entity.Lobby) error) (*entity.Lobby, error) {
	lobbyKey := lobbyKeyPrefix + id

	var updated *entity.Lobby

	txn := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, lobbyKey).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrLobbyNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get lobby: %w", err)
		}

		var lobby entity.Lobby
		if err = json.Unmarshal([]byte(response), &lobby); err != nil {
			return fmt.Errorf("failed to unmarshal lobby: %w", err)
		}

		if err = apply(&lobby); err != nil {
			return err
		}

		lobbyJSON, err := json.Marshal(&lobby)
		if err != nil {
			return fmt.Errorf("could not marshal lobby: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, lobbyKey, lobbyJSON, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to set lobby: %w", err)
		}

		updated = &lobby

		return nil
	}

	for i := 0; i < txRetries; i++ {
		err := that.client.Watch(ctx, txn, lobbyKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, ErrConcurrentUpdate
}

func (that *dbLobby) activeLobbies(ctx context.Context) ([]*entity.Lobby, error) {
	ids, err := that.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active lobbies: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = lobbyKeyPrefix + id
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lobbies: %w", err)
	}

	lobbies := make([]*entity.Lobby, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// id still indexed but record gone; skip it
			continue
		}

		var lobby entity.Lobby
		if err = json.Unmarshal([]byte(raw), &lobby); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lobby: %w", err)
		}

		lobbies = append(lobbies, &lobby)
	}

	return lobbies, nil
}
