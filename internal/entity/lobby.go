package entity

import (
	"time"

	"github.com/google/uuid"
)

// Lobby pairs up to two participants (humans or a human and a bot) before
// and during a game. The JSON shape is the wire shape: every outbound event
// carrying a lobby serializes this struct as-is.
type Lobby struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
	IsVsBot   bool      `json:"is_vs_bot"`
	BotName   string    `json:"bot_name,omitempty"`
	IsFull    bool      `json:"is_full"`
	IsActive  bool      `json:"is_active"`
	Player1   string    `json:"player1"`
	Player2   string    `json:"player2,omitempty"`
}

// NewLobby - creates a lobby for the given creator. Bot lobbies are full
// immediately: the bot occupies the second seat from the start.
func NewLobby(name, creator string, isVsBot bool, botName string) *Lobby {
	lobby := &Lobby{
		ID:        uuid.NewString(),
		Name:      name,
		Creator:   creator,
		CreatedAt: time.Now().UTC(),
		IsVsBot:   isVsBot,
		IsActive:  true,
		Player1:   creator,
	}

	if isVsBot {
		lobby.BotName = botName
		lobby.Player2 = botName
		lobby.IsFull = true
	}

	return lobby
}

// HasPlayer reports whether the named participant occupies either seat.
func (that *Lobby) HasPlayer(name string) bool {
	return that.Player1 == name || that.Player2 == name
}

// Opponent returns the participant on the other side of name, or "" if name
// is not in the lobby or the second seat is empty.
func (that *Lobby) Opponent(name string) string {
	switch name {
	case that.Player1:
		return that.Player2
	case that.Player2:
		return that.Player1
	default:
		return ""
	}
}
