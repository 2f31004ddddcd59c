package apperror

import "errors"

// Lobby conflict sentinels, returned by the repository layer and mapped to
// protocol error strings by the coordinator.
var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrLobbyInactive = errors.New("lobby is no longer active")
	ErrLobbyFull     = errors.New("lobby is full")
)
