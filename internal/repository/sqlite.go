package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/apperror"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
)

type sqliteLobby struct {
	conn *sql.DB
}

// NewSQLiteLobbyRepository returns a LobbyRepository over a relational
// lobbies table. Join atomicity relies on a guarded UPDATE: the statement
// only matches an open, active row, so the second of two concurrent joins
// affects zero rows and is reported as a conflict.
func NewSQLiteLobbyRepository(conn *sql.DB) LobbyRepository {
	return &sqliteLobby{
		conn: conn,
	}
}

const lobbyColumns = `id, name, creator, created_at, is_vs_bot, COALESCE(bot_name, ''), is_full, is_active, player1, COALESCE(player2, '')`

func (that *sqliteLobby) Create(ctx context.Context, lobby *entity.Lobby) error {
	query := `INSERT INTO lobbies (id, name, creator, created_at, is_vs_bot, bot_name, is_full, is_active, player1, player2)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''))`

	_, err := that.conn.ExecContext(ctx, query,
		lobby.ID, lobby.Name, lobby.Creator, lobby.CreatedAt, lobby.IsVsBot,
		lobby.BotName, lobby.IsFull, lobby.IsActive, lobby.Player1, lobby.Player2,
	)
	if err != nil {
		return fmt.Errorf("can't save lobby: %w", err)
	}

	return nil
}

func (that *sqliteLobby) GetByID(ctx context.Context, id string) (*entity.Lobby, error) {
	query := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE id = ?`

	lobby, err := scanLobby(that.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return lobby, nil
}

func (that *sqliteLobby) ListJoinable(ctx context.Context) ([]*entity.Lobby, error) {
	query := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE is_active = 1 AND is_full = 0 ORDER BY created_at`

	return that.queryLobbies(ctx, query)
}

func (that *sqliteLobby) FindActiveByPlayer(ctx context.Context, playerName string) ([]*entity.Lobby, error) {
	query := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE is_active = 1 AND (player1 = ? OR player2 = ?)`

	return that.queryLobbies(ctx, query, playerName, playerName)
}

func (that *sqliteLobby) Join(ctx context.Context, id, playerName string) (*entity.Lobby, error) {
	query := `UPDATE lobbies SET player2 = ?, is_full = 1 WHERE id = ? AND is_active = 1 AND is_full = 0`

	result, err := that.conn.ExecContext(ctx, query, playerName, id)
	if err != nil {
		return nil, fmt.Errorf("can't join lobby: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return nil, that.classifyJoinConflict(ctx, id)
	}

	return that.GetByID(ctx, id)
}

// classifyJoinConflict tells a missed UPDATE's cause apart: unknown lobby,
// closed lobby, or a seat already taken.
func (that *sqliteLobby) classifyJoinConflict(ctx context.Context, id string) error {
	lobby, err := that.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !lobby.IsActive {
		return apperror.ErrLobbyInactive
	}

	return apperror.ErrLobbyFull
}

func (that *sqliteLobby) Close(ctx context.Context, id string) (*entity.Lobby, error) {
	query := `UPDATE lobbies SET is_active = 0 WHERE id = ?`

	if err := that.mustUpdate(ctx, query, id); err != nil {
		return nil, err
	}

	return that.GetByID(ctx, id)
}

func (that *sqliteLobby) RemovePlayer2(ctx context.Context, id string) (*entity.Lobby, error) {
	query := `UPDATE lobbies SET player2 = NULL, is_full = 0 WHERE id = ?`

	if err := that.mustUpdate(ctx, query, id); err != nil {
		return nil, err
	}

	return that.GetByID(ctx, id)
}

func (that *sqliteLobby) mustUpdate(ctx context.Context, query string, args ...any) error {
	result, err := that.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("can't update lobby: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return apperror.ErrLobbyNotFound
	}

	return nil
}

func (that *sqliteLobby) queryLobbies(ctx context.Context, query string, args ...any) ([]*entity.Lobby, error) {
	rows, err := that.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't query lobbies: %w", err)
	}
	defer rows.Close()

	var lobbies []*entity.Lobby
	for rows.Next() {
		lobby, err := scanLobby(rows)
		if err != nil {
			return nil, err
		}
		lobbies = append(lobbies, lobby)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate lobbies: %w", err)
	}

	return lobbies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLobby(row rowScanner) (*entity.Lobby, error) {
	var lobby entity.Lobby

	err := row.Scan(
		&lobby.ID, &lobby.Name, &lobby.Creator, &lobby.CreatedAt, &lobby.IsVsBot,
		&lobby.BotName, &lobby.IsFull, &lobby.IsActive, &lobby.Player1, &lobby.Player2,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrLobbyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't scan lobby: %w", err)
	}

	return &lobby, nil
}
