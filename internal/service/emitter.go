package service

import (
	"log/slog"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

// emitter fans events out to the connected participants of a lobby. Bots
// never appear in the player registry, so lobby broadcasts reach humans
// only; bots are addressed through the BotDispatcher instead. A failed send
// means the connection died mid-write and is left to that connection's own
// disconnect cleanup.
type emitter struct {
	logger  *slog.Logger
	players *registry.PlayerRegistry
}

func newEmitter(logger *slog.Logger, players *registry.PlayerRegistry) *emitter {
	return &emitter{
		logger:  logger.With("component", "emitter"),
		players: players,
	}
}

// toLobby sends the event to every connected human participant of the lobby.
func (that *emitter) toLobby(lobby *entity.Lobby, event string, payload any) {
	that.toPlayer(lobby.Player1, event, payload)
	if lobby.Player2 != "" && lobby.Player2 != lobby.Player1 {
		that.toPlayer(lobby.Player2, event, payload)
	}
}

// toPlayer sends the event to the named player if currently connected and
// reports whether a connection was found.
func (that *emitter) toPlayer(name string, event string, payload any) bool {
	conn, ok := that.players.Lookup(name)
	if !ok {
		return false
	}

	if err := conn.Send(event, payload); err != nil {
		that.logger.Error("failed to send event", "event", event, "player", name, "error", err)
	}

	return true
}
