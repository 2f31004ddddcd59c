// Package registry tracks which connection currently speaks for each named
// player and bot. Bots may arrive over two independent transports; the
// duplex stream transport is preferred when a bot is present on both.
package registry

import "sync"

// Conn is a handle to one live connection on either transport. Send must be
// safe for concurrent use; a failed send means the connection is gone and is
// handled by the transport's own cleanup, never surfaced as a protocol error.
type Conn interface {
	Send(event string, payload any) error
}

// Transport identifies which adapter owns a bot connection.
type Transport string

const (
	// TransportStream is the raw duplex-stream bot transport.
	TransportStream Transport = "stream"
	// TransportSocket is the event-based websocket transport.
	TransportSocket Transport = "socket"
)

// PlayerRegistry maps player names to their single active connection.
// Registering a name that is already present overwrites the prior handle:
// last registration wins, the stale connection is left to its own read loop.
type PlayerRegistry struct {
	mu     sync.RWMutex
	byName map[string]Conn
	byConn map[Conn]string
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		byName: make(map[string]Conn),
		byConn: make(map[Conn]string),
	}
}

func (that *PlayerRegistry) Register(name string, conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if prev, ok := that.byName[name]; ok {
		delete(that.byConn, prev)
	}

	that.byName[name] = conn
	that.byConn[conn] = name
}

// Unregister drops the mapping for conn and returns the player name it held,
// if any. A handle that was already overwritten by a re-registration is not
// removed and reports no name.
func (that *PlayerRegistry) Unregister(conn Conn) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	name, ok := that.byConn[conn]
	if !ok {
		return "", false
	}

	if that.byName[name] == conn {
		delete(that.byName, name)
	}
	delete(that.byConn, conn)

	return name, true
}

func (that *PlayerRegistry) Lookup(name string) (Conn, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	conn, ok := that.byName[name]
	return conn, ok
}

// BotRegistry holds one sub-registry per transport. A bot name registered on
// both transports resolves to the stream connection.
type BotRegistry struct {
	mu     sync.RWMutex
	stream map[string]Conn
	socket map[string]Conn
}

func NewBotRegistry() *BotRegistry {
	return &BotRegistry{
		stream: make(map[string]Conn),
		socket: make(map[string]Conn),
	}
}

func (that *BotRegistry) Register(name string, conn Conn, transport Transport) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sub(transport)[name] = conn
}

// Unregister removes the named bot from the given transport's sub-registry
// only if conn still owns the entry, so a reconnected bot is not torn down
// by its predecessor's cleanup.
func (that *BotRegistry) Unregister(name string, conn Conn, transport Transport) {
	that.mu.Lock()
	defer that.mu.Unlock()

	reg := that.sub(transport)
	if reg[name] == conn {
		delete(reg, name)
	}
}

// UnregisterConn removes whichever bot entry conn holds, across both
// sub-registries, and returns the bot name it held.
func (that *BotRegistry) UnregisterConn(conn Conn) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, reg := range []map[string]Conn{that.stream, that.socket} {
		for name, c := range reg {
			if c == conn {
				delete(reg, name)
				return name, true
			}
		}
	}

	return "", false
}

// Lookup resolves a bot name to its connection, preferring the stream
// transport over the socket transport.
func (that *BotRegistry) Lookup(name string) (Conn, Transport, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if conn, ok := that.stream[name]; ok {
		return conn, TransportStream, true
	}
	if conn, ok := that.socket[name]; ok {
		return conn, TransportSocket, true
	}

	return nil, "", false
}

// Available returns the union of bot names across both transports, in no
// particular order.
func (that *BotRegistry) Available() []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	seen := make(map[string]struct{}, len(that.stream)+len(that.socket))
	names := make([]string, 0, len(that.stream)+len(that.socket))

	for name := range that.stream {
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range that.socket {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}

	return names
}

func (that *BotRegistry) sub(transport Transport) map[string]Conn {
	if transport == TransportStream {
		return that.stream
	}
	return that.socket
}
