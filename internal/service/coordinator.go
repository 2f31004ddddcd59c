package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/apperror"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

type lobbyRepo interface {
	Create(ctx context.Context, lobby *entity.Lobby) error
	GetByID(ctx context.Context, id string) (*entity.Lobby, error)
	ListJoinable(ctx context.Context) ([]*entity.Lobby, error)
	FindActiveByPlayer(ctx context.Context, playerName string) ([]*entity.Lobby, error)
	Join(ctx context.Context, id, playerName string) (*entity.Lobby, error)
	Close(ctx context.Context, id string) (*entity.Lobby, error)
	RemovePlayer2(ctx context.Context, id string) (*entity.Lobby, error)
}

// Coordinator implements the lobby lifecycle and move-relay protocol. Every
// transport event handler calls into it; replies go back through the caller's
// connection, notifications through whichever connection currently belongs to
// the target participant. Protocol violations are answered with an error
// event and never touch state; only transport failures surface as returned
// errors.
type Coordinator struct {
	logger     *slog.Logger
	lobbies    lobbyRepo
	games      *GameStore
	players    *registry.PlayerRegistry
	bots       *registry.BotRegistry
	dispatcher *BotDispatcher
	emitter    *emitter
}

func NewCoordinator(logger *slog.Logger, lobbies lobbyRepo, games *GameStore, players *registry.PlayerRegistry, bots *registry.BotRegistry, dispatcher *BotDispatcher) *Coordinator {
	return &Coordinator{
		logger:     logger.With("component", "coordinator"),
		lobbies:    lobbies,
		games:      games,
		players:    players,
		bots:       bots,
		dispatcher: dispatcher,
		emitter:    newEmitter(logger, players),
	}
}

// RegisterPlayer binds the player name to this connection. Re-registration
// overwrites the previous connection: last registration wins.
func (that *Coordinator) RegisterPlayer(conn registry.Conn, req proto.RegisterPlayer) error {
	if req.PlayerName == "" {
		return that.sendError(conn, "Missing player_name")
	}

	that.players.Register(req.PlayerName, conn)

	return conn.Send(proto.EventRegistered, proto.Registered{PlayerName: req.PlayerName})
}

// RegisterBot binds a bot name to this connection on the given transport's
// sub-registry.
func (that *Coordinator) RegisterBot(conn registry.Conn, req proto.RegisterBot, transport registry.Transport) error {
	if req.BotName == "" {
		return that.sendError(conn, "Missing bot_name")
	}

	that.bots.Register(req.BotName, conn, transport)

	that.logger.Info("bot registered", "bot", req.BotName, "transport", transport)

	return conn.Send(proto.EventBotRegistered, proto.BotRegistered{
		BotName: req.BotName,
		Message: fmt.Sprintf("Bot %s registered successfully", req.BotName),
	})
}

// Lobbies replies with every active, not yet full lobby.
func (that *Coordinator) Lobbies(ctx context.Context, conn registry.Conn) error {
	lobbies, err := that.lobbies.ListJoinable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list lobbies: %w", err)
	}

	if lobbies == nil {
		lobbies = []*entity.Lobby{}
	}

	return conn.Send(proto.EventLobbies, lobbies)
}

// Bots replies with the names of every bot connected on either transport.
func (that *Coordinator) Bots(conn registry.Conn) error {
	return conn.Send(proto.EventBots, that.bots.Available())
}

// CreateLobby opens a new lobby for the calling player. A bot lobby requires
// the named bot to be connected and is full from the start.
func (that *Coordinator) CreateLobby(ctx context.Context, conn registry.Conn, req proto.CreateLobby) error {
	if req.Name == "" || req.PlayerName == "" {
		return that.sendError(conn, "Missing required fields")
	}

	botName := ""
	if req.IsVsBot {
		if req.BotName == "" {
			return that.sendError(conn, "Bot name is required for bot games")
		}

		if _, _, ok := that.bots.Lookup(req.BotName); !ok {
			return that.sendError(conn, fmt.Sprintf("Bot '%s' is not available", req.BotName))
		}

		botName = req.BotName
	}

	lobby := entity.NewLobby(req.Name, req.PlayerName, req.IsVsBot, botName)
	if err := that.lobbies.Create(ctx, lobby); err != nil {
		return fmt.Errorf("failed to create lobby: %w", err)
	}

	that.logger.Info("lobby created", "lobbyID", lobby.ID, "creator", lobby.Creator, "vsBot", lobby.IsVsBot)

	return conn.Send(proto.EventLobbyCreated, lobby)
}

// JoinLobby puts the calling player in the second seat. Of two concurrent
// joins exactly one succeeds; the other observes the lobby as full.
func (that *Coordinator) JoinLobby(ctx context.Context, conn registry.Conn, req proto.JoinLobby) error {
	if req.LobbyID == "" || req.PlayerName == "" {
		return that.sendError(conn, "Missing required fields")
	}

	lobby, err := that.lobbies.Join(ctx, req.LobbyID, req.PlayerName)
	if err != nil {
		if msg, ok := lobbyErrorMessage(err); ok {
			return that.sendError(conn, msg)
		}
		return fmt.Errorf("failed to join lobby: %w", err)
	}

	that.emitter.toPlayer(lobby.Player1, proto.EventPlayerJoined, proto.LobbyEvent{
		Lobby:  lobby,
		Player: req.PlayerName,
	})

	return conn.Send(proto.EventJoinedLobby, proto.LobbyEvent{Lobby: lobby})
}

// StartGame initializes the in-memory game state and tells both participants
// play has begun. Creator only, lobby must be full.
func (that *Coordinator) StartGame(ctx context.Context, conn registry.Conn, req proto.StartGame) error {
	if req.LobbyID == "" || req.PlayerName == "" {
		return that.sendError(conn, "Missing required fields")
	}

	lobby, err := that.lobbies.GetByID(ctx, req.LobbyID)
	if err != nil {
		if msg, ok := lobbyErrorMessage(err); ok {
			return that.sendError(conn, msg)
		}
		return fmt.Errorf("failed to get lobby: %w", err)
	}

	if !lobby.IsActive {
		return that.sendError(conn, "Lobby is no longer active")
	}

	if lobby.Creator != req.PlayerName {
		return that.sendError(conn, "Only the creator can start the game")
	}

	if !lobby.IsFull {
		return that.sendError(conn, "Cannot start game, lobby not full")
	}

	state := entity.NewGameState()
	that.games.Put(lobby.ID, state)

	that.logger.Info("game started", "lobbyID", lobby.ID)

	that.emitter.toLobby(lobby, proto.EventGameStarted, proto.GameStarted{
		LobbyID:       lobby.ID,
		InitialState:  state,
		CurrentPlayer: lobby.Player1,
	})

	// Bot in the first seat moves first.
	if lobby.IsVsBot && lobby.Player1 == lobby.BotName {
		that.dispatcher.RequestMove(lobby, lobby.BotName, state, nil)
	}

	return nil
}

// MakeMove records a human player's move. When the client supplies a full
// game state it is trusted verbatim; the server enforces no game rules.
func (that *Coordinator) MakeMove(ctx context.Context, conn registry.Conn, req proto.MakeMove) error {
	if req.LobbyID == "" || req.PlayerName == "" || req.Row == nil || req.Col == nil {
		return that.sendError(conn, "Missing required fields")
	}

	lobby, err := that.lobbies.GetByID(ctx, req.LobbyID)
	if err != nil {
		if msg, ok := lobbyErrorMessage(err); ok {
			return that.sendError(conn, msg)
		}
		return fmt.Errorf("failed to get lobby: %w", err)
	}

	if !lobby.IsActive {
		return that.sendError(conn, "Lobby is no longer active")
	}

	return that.recordMove(conn, lobby, req.PlayerName, *req.Row, *req.Col, req.GameState)
}

// GameWon is the trust-the-client completion report: the final state is
// stored and broadcast without validation. Incomplete reports are dropped
// silently.
func (that *Coordinator) GameWon(ctx context.Context, conn registry.Conn, req proto.GameWon) error {
	if req.LobbyID == "" || len(req.Winner) == 0 || req.FinalState == nil {
		return nil
	}

	lobby, err := that.lobbies.GetByID(ctx, req.LobbyID)
	if err != nil {
		if errors.Is(err, apperror.ErrLobbyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get lobby: %w", err)
	}

	that.games.Put(lobby.ID, *req.FinalState)

	that.emitter.toLobby(lobby, proto.EventGameCompleted, proto.GameCompleted{
		LobbyID:    lobby.ID,
		Winner:     req.Winner,
		FinalState: *req.FinalState,
	})

	return nil
}

// BotSocketMove handles a bot's move arriving over the websocket transport.
// The sender must be the connection currently registered for the lobby's
// bot; anything else is dropped silently.
func (that *Coordinator) BotSocketMove(ctx context.Context, conn registry.Conn, req proto.BotMove) error {
	if req.LobbyID == "" || req.Row == nil || req.Col == nil {
		return nil
	}

	lobby, err := that.lobbies.GetByID(ctx, req.LobbyID)
	if err != nil || !lobby.IsActive || !lobby.IsVsBot || lobby.BotName == "" {
		return nil
	}

	registered, _, ok := that.bots.Lookup(lobby.BotName)
	if !ok || registered != conn {
		return nil
	}

	return that.recordMove(conn, lobby, lobby.BotName, *req.Row, *req.Col, nil)
}

// BotStreamMove handles a bot's move arriving over the duplex-stream
// transport, with structured error replies and a move confirmation.
func (that *Coordinator) BotStreamMove(ctx context.Context, conn registry.Conn, botName string, req proto.BotMove) error {
	if req.LobbyID == "" || req.Row == nil || req.Col == nil {
		return that.sendError(conn, "Missing required fields")
	}

	lobby, err := that.lobbies.GetByID(ctx, req.LobbyID)
	if err != nil || !lobby.IsActive || !lobby.IsVsBot {
		return that.sendError(conn, "Invalid lobby")
	}

	if lobby.BotName != botName {
		return that.sendError(conn, "Bot is not in this lobby")
	}

	if err = that.recordMove(conn, lobby, botName, *req.Row, *req.Col, nil); err != nil {
		return err
	}

	return conn.Send(proto.EventMoveConfirmed, proto.MoveConfirmed{
		LobbyID: lobby.ID,
		Row:     *req.Row,
		Col:     *req.Col,
	})
}

// recordMove is the single move path shared by humans and both bot
// transports: store the new state, broadcast it, then either announce
// completion or hand the turn to the bot.
func (that *Coordinator) recordMove(conn registry.Conn, lobby *entity.Lobby, playerName string, row, col int, clientState *entity.GameState) error {
	state, ok := that.games.Get(lobby.ID)
	if !ok {
		return that.sendError(conn, "Game not found")
	}

	var updated entity.GameState
	if clientState != nil {
		updated = *clientState
	} else {
		var err error
		updated, err = state.ApplyMove(entity.MarkOf(lobby, playerName), row, col)
		if err != nil {
			return that.sendError(conn, err.Error())
		}
	}

	that.games.Put(lobby.ID, updated)

	that.emitter.toLobby(lobby, proto.EventMoveMade, proto.MoveMade{
		LobbyID: lobby.ID,
		Player:  playerName,
		Row:     row,
		Col:     col,
		State:   updated,
	})

	if updated.IsComplete {
		that.emitter.toLobby(lobby, proto.EventGameCompleted, proto.GameCompleted{
			LobbyID:    lobby.ID,
			Winner:     updated.Winner,
			FinalState: updated,
		})
		return nil
	}

	if lobby.IsVsBot {
		if next := lobby.Opponent(playerName); next != "" && next == lobby.BotName {
			lastMove := &entity.Move{Row: row, Col: col, Player: entity.MarkOf(lobby, playerName)}
			that.dispatcher.RequestMove(lobby, lobby.BotName, updated, lastMove)
		}
	}

	return nil
}

// Disconnect cleans up after a closed connection on either transport: a
// creator's departure closes their lobbies, a joiner's departure frees the
// seat, a bot's departure removes it from its sub-registry.
func (that *Coordinator) Disconnect(ctx context.Context, conn registry.Conn) {
	log := that.logger.With("method", "Disconnect")

	if playerName, ok := that.players.Unregister(conn); ok {
		lobbies, err := that.lobbies.FindActiveByPlayer(ctx, playerName)
		if err != nil {
			log.Error("failed to find lobbies for player", "player", playerName, "error", err)
			return
		}

		for _, lobby := range lobbies {
			that.leaveLobby(ctx, lobby, playerName)
		}
		return
	}

	if botName, ok := that.bots.UnregisterConn(conn); ok {
		log.Info("bot disconnected", "bot", botName)
	}
}

func (that *Coordinator) leaveLobby(ctx context.Context, lobby *entity.Lobby, playerName string) {
	log := that.logger.With("method", "leaveLobby", "lobbyID", lobby.ID)

	if lobby.Player1 == playerName {
		closed, err := that.lobbies.Close(ctx, lobby.ID)
		if err != nil {
			log.Error("failed to close lobby", "error", err)
			return
		}

		that.games.Delete(lobby.ID)

		if closed.Player2 != "" && !closed.IsVsBot {
			that.emitter.toPlayer(closed.Player2, proto.EventLobbyClosed, proto.LobbyEvent{
				Lobby:  closed,
				Reason: "Creator left",
			})
		}

		log.Info("lobby closed, creator left")
		return
	}

	updated, err := that.lobbies.RemovePlayer2(ctx, lobby.ID)
	if err != nil {
		log.Error("failed to free seat", "error", err)
		return
	}

	that.emitter.toPlayer(updated.Player1, proto.EventPlayerLeft, proto.LobbyEvent{
		Lobby:  updated,
		Player: playerName,
	})

	log.Info("player left lobby", "player", playerName)
}

func (that *Coordinator) sendError(conn registry.Conn, message string) error {
	return conn.Send(proto.EventError, proto.Error{Message: message})
}

// lobbyErrorMessage maps repository sentinels to the protocol's error
// strings.
func lobbyErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, apperror.ErrLobbyNotFound):
		return "Lobby not found", true
	case errors.Is(err, apperror.ErrLobbyInactive):
		return "Lobby is no longer active", true
	case errors.Is(err, apperror.ErrLobbyFull):
		return "Lobby is full", true
	default:
		return "", false
	}
}
