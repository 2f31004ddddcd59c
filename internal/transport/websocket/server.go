package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

type coordinator interface {
	RegisterPlayer(conn registry.Conn, req proto.RegisterPlayer) error
	RegisterBot(conn registry.Conn, req proto.RegisterBot, transport registry.Transport) error
	Lobbies(ctx context.Context, conn registry.Conn) error
	Bots(conn registry.Conn) error
	CreateLobby(ctx context.Context, conn registry.Conn, req proto.CreateLobby) error
	JoinLobby(ctx context.Context, conn registry.Conn, req proto.JoinLobby) error
	StartGame(ctx context.Context, conn registry.Conn, req proto.StartGame) error
	MakeMove(ctx context.Context, conn registry.Conn, req proto.MakeMove) error
	GameWon(ctx context.Context, conn registry.Conn, req proto.GameWon) error
	BotSocketMove(ctx context.Context, conn registry.Conn, req proto.BotMove) error
	Disconnect(ctx context.Context, conn registry.Conn)
}

type handlerFunc func(ctx context.Context, conn *wsConn, data json.RawMessage) error

// Server is the event-based websocket transport: the connection every human
// player uses, and the fallback registration path for bots.
type Server struct {
	logger      *slog.Logger
	coordinator coordinator

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, coordinator coordinator) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[proto.EventRegisterPlayer] = server.handleRegisterPlayer
	server.handlers[proto.EventRegisterBot] = server.handleRegisterBot
	server.handlers[proto.EventGetLobbies] = server.handleGetLobbies
	server.handlers[proto.EventGetBots] = server.handleGetBots
	server.handlers[proto.EventCreateLobby] = server.handleCreateLobby
	server.handlers[proto.EventJoinLobby] = server.handleJoinLobby
	server.handlers[proto.EventStartGame] = server.handleStartGame
	server.handlers[proto.EventMakeMove] = server.handleMakeMove
	server.handlers[proto.EventGameWon] = server.handleGameWon
	server.handlers[proto.EventBotMove] = server.handleBotMove

	return server
}

// Start - starts the WebSocket server and blocks until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Handler exposes the /ws endpoint; Start wraps it in a server, tests mount
// it directly.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.handleConnection(ctx, w, r)
	})

	return mux
}

func (that *Server) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("failed to accept connection", "error", err)
		return
	}

	wc := newWSConn(ctx, conn)

	log.Info("WebSocket connection established")

	err = that.readLoop(ctx, conn, wc)

	that.coordinator.Disconnect(ctx, wc)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Info("WebSocket connection closed", "error", err)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "closing")
}

// readLoop - processes messages from the client until the connection drops.
func (that *Server) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn) error {
	log := that.logger.With("method", "readLoop")

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message proto.Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)

			if err = wc.Send(proto.EventError, proto.Error{Message: "Invalid JSON"}); err != nil {
				return err
			}
			continue
		}

		handler, ok := that.handlers[message.Event]
		if !ok {
			log.Warn("unknown event", "event", message.Event)
			continue
		}

		if err = handler(ctx, wc, message.Data); err != nil {
			log.Error("error processing event", "event", message.Event, "error", err)
		}
	}
}
