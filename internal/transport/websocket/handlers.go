package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
)

func (that *Server) handleRegisterPlayer(_ context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.RegisterPlayer
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.RegisterPlayer(conn, req)
}

func (that *Server) handleRegisterBot(_ context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.RegisterBot
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.RegisterBot(conn, req, registry.TransportSocket)
}

func (that *Server) handleGetLobbies(ctx context.Context, conn *wsConn, _ json.RawMessage) error {
	return that.coordinator.Lobbies(ctx, conn)
}

func (that *Server) handleGetBots(_ context.Context, conn *wsConn, _ json.RawMessage) error {
	return that.coordinator.Bots(conn)
}

func (that *Server) handleCreateLobby(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.CreateLobby
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.CreateLobby(ctx, conn, req)
}

func (that *Server) handleJoinLobby(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.JoinLobby
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.JoinLobby(ctx, conn, req)
}

func (that *Server) handleStartGame(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.StartGame
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.StartGame(ctx, conn, req)
}

func (that *Server) handleMakeMove(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.MakeMove
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.MakeMove(ctx, conn, req)
}

func (that *Server) handleGameWon(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.GameWon
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.GameWon(ctx, conn, req)
}

func (that *Server) handleBotMove(ctx context.Context, conn *wsConn, data json.RawMessage) error {
	var req proto.BotMove
	if err := unmarshalPayload(conn, data, &req); err != nil {
		return err
	}

	return that.coordinator.BotSocketMove(ctx, conn, req)
}

// unmarshalPayload decodes an event payload, answering a malformed one with
// an error event so the connection stays usable.
func unmarshalPayload(conn *wsConn, data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	if err := json.Unmarshal(data, v); err != nil {
		if sendErr := conn.Send(proto.EventError, proto.Error{Message: "Invalid JSON"}); sendErr != nil {
			return fmt.Errorf("failed to report invalid payload: %w", sendErr)
		}
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}
