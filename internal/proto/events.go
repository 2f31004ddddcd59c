package proto

import (
	"encoding/json"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/entity"
)

// Message is the envelope for the websocket transport: a named event plus a
// structured payload, in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventRegisterPlayer = "register_player"
	EventRegisterBot    = "register_bot"
	EventGetLobbies     = "get_lobbies"
	EventGetBots        = "get_bots"
	EventCreateLobby    = "create_lobby"
	EventJoinLobby      = "join_lobby"
	EventStartGame      = "start_game"
	EventMakeMove       = "make_move"
	EventGameWon        = "game_won"
	EventBotMove        = "bot_move"
)

// Outbound event names.
const (
	EventRegistered    = "registered"
	EventBotRegistered = "bot_registered"
	EventLobbies       = "lobbies"
	EventBots          = "bots"
	EventLobbyCreated  = "lobby_created"
	EventJoinedLobby   = "joined_lobby"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventLobbyClosed   = "lobby_closed"
	EventGameStarted   = "game_started"
	EventMoveMade      = "move_made"
	EventGameCompleted = "game_completed"
	EventRequestMove   = "request_move"
	EventMoveConfirmed = "move_confirmed"
	EventError         = "error"
)

// RegisterPlayer announces a human player's name for this connection.
type RegisterPlayer struct {
	PlayerName string `json:"player_name"`
}

// RegisterBot announces a bot's name for this connection. On the stream
// transport this doubles as the mandatory first handshake message.
type RegisterBot struct {
	BotName string `json:"bot_name"`
}

// CreateLobby opens a new lobby. BotName is required when IsVsBot is set.
type CreateLobby struct {
	Name       string `json:"name"`
	PlayerName string `json:"player_name"`
	IsVsBot    bool   `json:"is_vs_bot"`
	BotName    string `json:"bot_name,omitempty"`
}

// JoinLobby takes the second seat of an open lobby.
type JoinLobby struct {
	LobbyID    string `json:"lobby_id"`
	PlayerName string `json:"player_name"`
}

// StartGame begins play in a full lobby: creator only.
type StartGame struct {
	LobbyID    string `json:"lobby_id"`
	PlayerName string `json:"player_name"`
}

// MakeMove records a move. Row and Col are pointers so a missing field can
// be told apart from a legitimate zero index. GameState, when present, is a
// full client-computed state trusted verbatim.
type MakeMove struct {
	LobbyID    string            `json:"lobby_id"`
	PlayerName string            `json:"player_name"`
	Row        *int              `json:"row"`
	Col        *int              `json:"col"`
	GameState  *entity.GameState `json:"game_state,omitempty"`
}

// GameWon is the trust-the-client completion report.
type GameWon struct {
	LobbyID    string            `json:"lobby_id"`
	Winner     json.RawMessage   `json:"winner"`
	FinalState *entity.GameState `json:"final_state"`
}

// BotMove is a bot's answer to a move request, on either transport.
type BotMove struct {
	LobbyID string `json:"lobby_id"`
	Row     *int   `json:"row"`
	Col     *int   `json:"col"`
}

// Registered acknowledges a player registration.
type Registered struct {
	PlayerName string `json:"player_name"`
}

// BotRegistered acknowledges a bot registration.
type BotRegistered struct {
	BotName string `json:"bot_name"`
	Message string `json:"message,omitempty"`
}

// LobbyEvent carries a lobby snapshot plus the participant that triggered
// the event, for player_joined / player_left / lobby_closed notifications.
type LobbyEvent struct {
	Lobby  *entity.Lobby `json:"lobby"`
	Player string        `json:"player,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// GameStarted is broadcast to both participants when play begins.
type GameStarted struct {
	LobbyID       string           `json:"lobby_id"`
	InitialState  entity.GameState `json:"initial_state"`
	CurrentPlayer string           `json:"current_player"`
}

// MoveMade is broadcast to the lobby after every recorded move.
type MoveMade struct {
	LobbyID string           `json:"lobby_id"`
	Player  string           `json:"player"`
	Row     int              `json:"row"`
	Col     int              `json:"col"`
	State   entity.GameState `json:"state"`
}

// GameCompleted announces the end of a game. WinnerSymbol and Reason are set
// only on forfeiture.
type GameCompleted struct {
	LobbyID      string           `json:"lobby_id"`
	Winner       json.RawMessage  `json:"winner,omitempty"`
	WinnerSymbol int              `json:"winner_symbol,omitempty"`
	FinalState   entity.GameState `json:"final_state"`
	Reason       string           `json:"reason,omitempty"`
}

// RequestMove asks a bot for its next move.
type RequestMove struct {
	LobbyID   string           `json:"lobby_id"`
	GameState entity.GameState `json:"game_state"`
	LastMove  *entity.Move     `json:"last_move"`
}

// MoveConfirmed acknowledges a stream bot's move.
type MoveConfirmed struct {
	LobbyID string `json:"lobby_id"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
}

// Error is the protocol-level error reply.
type Error struct {
	Message string `json:"message"`
}
