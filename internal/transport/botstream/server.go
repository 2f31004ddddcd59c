// Package botstream is the raw duplex-stream transport for bots: a plain
// TCP listener speaking newline-delimited JSON. The first message on every
// connection must be a bot registration; after that the bot exchanges move
// requests and answers until the connection drops.
package botstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

const maxFrameSize = 1 << 20

type coordinator interface {
	RegisterBot(conn registry.Conn, req proto.RegisterBot, transport registry.Transport) error
	BotStreamMove(ctx context.Context, conn registry.Conn, botName string, req proto.BotMove) error
	Disconnect(ctx context.Context, conn registry.Conn)
}

// frame is the flat inbound message shape of the stream protocol.
type frame struct {
	Action  string `json:"action"`
	BotName string `json:"bot_name,omitempty"`
	LobbyID string `json:"lobby_id,omitempty"`
	Row     *int   `json:"row,omitempty"`
	Col     *int   `json:"col,omitempty"`
}

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
}

func New(logger *slog.Logger, coordinator coordinator) *Server {
	return &Server{
		logger:      logger.With("component", "botstream"),
		coordinator: coordinator,
	}
}

// Start - listens for bot connections and blocks until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.HandleConn(ctx, conn)
	}
}

// HandleConn runs the registration handshake and message loop for one bot
// connection. Exported so tests can drive it over a pipe.
func (that *Server) HandleConn(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "HandleConn", "remote", conn.RemoteAddr())

	defer conn.Close()

	sc := newStreamConn(conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	botName, err := that.handshake(sc, scanner)
	if err != nil {
		log.Warn("bot handshake failed", "error", err)
		return
	}

	log.Info("bot connected", "bot", botName)

	that.messageLoop(ctx, sc, scanner, botName)

	that.coordinator.Disconnect(ctx, sc)

	log.Info("bot connection closed", "bot", botName)
}

var errHandshakeViolation = errors.New("first message must be bot registration")

// handshake enforces the registration-first rule: a violation is answered
// with an error and the connection is closed.
func (that *Server) handshake(sc *streamConn, scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read registration: %w", err)
		}
		return "", errors.New("connection closed before registration")
	}

	var f frame
	if err := json.Unmarshal(scanner.Bytes(), &f); err != nil || f.Action != "register_bot" || f.BotName == "" {
		_ = sc.Send(proto.EventError, proto.Error{Message: "First message must be bot registration"})
		return "", errHandshakeViolation
	}

	if err := that.coordinator.RegisterBot(sc, proto.RegisterBot{BotName: f.BotName}, registry.TransportStream); err != nil {
		return "", fmt.Errorf("failed to register bot: %w", err)
	}

	return f.BotName, nil
}

// messageLoop handles frames after registration. Malformed JSON is reported
// and the loop continues; only connection loss ends it.
func (that *Server) messageLoop(ctx context.Context, sc *streamConn, scanner *bufio.Scanner, botName string) {
	log := that.logger.With("method", "messageLoop", "bot", botName)

	for scanner.Scan() {
		var f frame
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			if err = sc.Send(proto.EventError, proto.Error{Message: "Invalid JSON"}); err != nil {
				return
			}
			continue
		}

		switch f.Action {
		case "bot_move":
			err := that.coordinator.BotStreamMove(ctx, sc, botName, proto.BotMove{
				LobbyID: f.LobbyID,
				Row:     f.Row,
				Col:     f.Col,
			})
			if err != nil {
				log.Error("failed to process bot move", "error", err)
			}
		default:
			if err := sc.Send(proto.EventError, proto.Error{Message: fmt.Sprintf("Unknown action: %s", f.Action)}); err != nil {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		log.Info("bot stream read failed", "error", err)
	}
}
