// Command refbot is a reference bot client for the duplex-stream transport.
// It registers under a name and answers every move request with the first
// empty cell it finds, which is enough to exercise the full protocol.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
)

type frame struct {
	Action    string            `json:"action,omitempty"`
	Status    string            `json:"status,omitempty"`
	Message   string            `json:"message,omitempty"`
	BotName   string            `json:"bot_name,omitempty"`
	LobbyID   string            `json:"lobby_id,omitempty"`
	GameState *entity.GameState `json:"game_state,omitempty"`
	Row       *int              `json:"row,omitempty"`
	Col       *int              `json:"col,omitempty"`
}

func main() {
	addr := flag.String("addr", "localhost:8081", "bot stream address")
	name := flag.String("name", "refbot", "bot name")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *addr, *name); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, name string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err = enc.Encode(frame{Action: "register_bot", BotName: name}); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		var f frame
		if err = json.Unmarshal(scanner.Bytes(), &f); err != nil {
			logger.Warn("skipping malformed frame", "error", err)
			continue
		}

		switch f.Action {
		case "bot_registered":
			logger.Info("registered", "bot", f.BotName)
		case "request_move":
			if f.GameState == nil {
				logger.Warn("move request without game state", "lobbyID", f.LobbyID)
				continue
			}

			row, col, ok := firstEmptyCell(f.GameState)
			if !ok {
				logger.Warn("no empty cells left", "lobbyID", f.LobbyID)
				continue
			}

			if err = enc.Encode(frame{Action: "bot_move", LobbyID: f.LobbyID, Row: &row, Col: &col}); err != nil {
				return fmt.Errorf("failed to send move: %w", err)
			}

			logger.Info("moved", "lobbyID", f.LobbyID, "row", row, "col", col)
		case "move_confirmed":
			logger.Debug("move confirmed", "lobbyID", f.LobbyID)
		default:
			if f.Status == "error" {
				logger.Warn("server error", "message", f.Message)
			}
		}
	}

	if err = scanner.Err(); err != nil {
		return fmt.Errorf("connection lost: %w", err)
	}

	return nil
}

func firstEmptyCell(state *entity.GameState) (int, int, bool) {
	for row := range state.Board {
		for col := range state.Board[row] {
			if state.Board[row][col] == entity.EmptyCell {
				return row, col, true
			}
		}
	}

	return 0, 0, false
}
