package botstream

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/proto"
)

// streamConn wraps one TCP connection as a registry handle. The wire format
// is newline-delimited JSON with the event name folded into the object as
// "action", plus a "status" marker on acknowledgements and errors.
type streamConn struct {
	enc *json.Encoder
	mu  sync.Mutex
}

func newStreamConn(conn net.Conn) *streamConn {
	return &streamConn{
		enc: json.NewEncoder(conn),
	}
}

func (that *streamConn) Send(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame := make(map[string]any)
	if err = json.Unmarshal(raw, &frame); err != nil {
		return fmt.Errorf("failed to flatten payload: %w", err)
	}

	switch event {
	case proto.EventError:
		frame["status"] = "error"
	case proto.EventRequestMove:
		frame["action"] = event
	default:
		frame["status"] = "success"
		frame["action"] = event
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if err = that.enc.Encode(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}
