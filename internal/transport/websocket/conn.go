package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
)

const writeTimeout = 10 * time.Second

// wsConn wraps one websocket connection as a registry handle. Writes are
// serialized: the emitter and a transport handler may send to the same
// connection concurrently.
type wsConn struct {
	ctx  context.Context
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConn(ctx context.Context, conn *websocket.Conn) *wsConn {
	return &wsConn{
		ctx:  ctx,
		conn: conn,
	}
}

func (that *wsConn) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	raw, err := json.Marshal(proto.Message{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	ctx, cancel := context.WithTimeout(that.ctx, writeTimeout)
	defer cancel()

	if err = that.conn.Write(ctx, websocket.MessageText, raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
