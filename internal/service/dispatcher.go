package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

// DefaultBotResponseTimeout is how long a bot has to answer a move request
// before the game is forfeited to its opponent.
const DefaultBotResponseTimeout = 3 * time.Second

type dispatcherLobbyRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Lobby, error)
}

// BotDispatcher routes move requests to whichever transport a bot is
// registered on and arms the response deadline. Both transport paths share
// this one timeout-forfeiture implementation.
type BotDispatcher struct {
	logger  *slog.Logger
	lobbies dispatcherLobbyRepo
	games   *GameStore
	bots    *registry.BotRegistry
	emitter *emitter
	timeout time.Duration
}

func NewBotDispatcher(logger *slog.Logger, lobbies dispatcherLobbyRepo, games *GameStore, bots *registry.BotRegistry, players *registry.PlayerRegistry, timeout time.Duration) *BotDispatcher {
	if timeout <= 0 {
		timeout = DefaultBotResponseTimeout
	}

	return &BotDispatcher{
		logger:  logger.With("component", "dispatcher"),
		lobbies: lobbies,
		games:   games,
		bots:    bots,
		emitter: newEmitter(logger, players),
		timeout: timeout,
	}
}

// RequestMove asks the named bot for its next move and arms the forfeiture
// timer. An unregistered bot is reported to the lobby as an error event and
// the game is left as-is.
func (that *BotDispatcher) RequestMove(lobby *entity.Lobby, botName string, state entity.GameState, lastMove *entity.Move) {
	log := that.logger.With("method", "RequestMove", "lobbyID", lobby.ID, "bot", botName)

	conn, transport, ok := that.bots.Lookup(botName)
	if !ok {
		that.emitter.toLobby(lobby, proto.EventError, proto.Error{
			Message: fmt.Sprintf("Bot '%s' is not connected", botName),
		})
		return
	}

	err := conn.Send(proto.EventRequestMove, proto.RequestMove{
		LobbyID:   lobby.ID,
		GameState: state,
		LastMove:  lastMove,
	})
	if err != nil {
		log.Error("failed to send move request", "transport", transport, "error", err)
	}

	// The timer is never cancelled when a move arrives first; the state
	// re-check in onBotTimeout makes a superseded timer a no-op.
	time.AfterFunc(that.timeout, func() {
		that.onBotTimeout(lobby.ID, botName)
	})
}

// onBotTimeout forfeits the game to the bot's opponent unless the game is
// already gone, the lobby closed, or the bot in fact answered in time.
func (that *BotDispatcher) onBotTimeout(lobbyID, botName string) {
	log := that.logger.With("method", "onBotTimeout", "lobbyID", lobbyID, "bot", botName)

	state, ok := that.games.Get(lobbyID)
	if !ok {
		return
	}

	lobby, err := that.lobbies.GetByID(context.Background(), lobbyID)
	if err != nil || !lobby.IsActive {
		return
	}

	if !botIsDue(lobby, state, botName) {
		return
	}

	winner := lobby.Player1
	if botName == lobby.Player1 {
		winner = lobby.Player2
	}
	winnerMark := entity.MarkOf(lobby, winner)

	updated := state.Forfeit(winnerMark)
	that.games.Put(lobbyID, updated)

	winnerJSON, err := json.Marshal(winner)
	if err != nil {
		log.Error("failed to marshal winner", "error", err)
		return
	}

	log.Info("bot missed its move deadline, forfeiting", "winner", winner)

	that.emitter.toLobby(lobby, proto.EventGameCompleted, proto.GameCompleted{
		LobbyID:      lobbyID,
		Winner:       winnerJSON,
		WinnerSymbol: winnerMark,
		FinalState:   updated,
		Reason:       "Bot timeout",
	})
}

// botIsDue infers whose turn it is from the last recorded move: with no
// moves yet the bot is due only as player1, otherwise only when the last
// mover was its opponent.
func botIsDue(lobby *entity.Lobby, state entity.GameState, botName string) bool {
	if state.LastMove == nil {
		return lobby.Player1 == botName
	}

	lastPlayer := lobby.Player2
	if state.LastMove.Player == entity.Player1Mark {
		lastPlayer = lobby.Player1
	}

	return lastPlayer != botName
}
