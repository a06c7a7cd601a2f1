package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WsConnection serves a long-lived connection carrying many
// request/response pairs plus server-initiated pushes (§4.6). Grounded
// on eventsync/websocket_client.go's read-loop/mutex-guarded-send
// shape, generalized from one fixed message type ("sync") to the
// generic wire envelope dispatch used by PostConnection.
type WsConnection struct {
	conn     *websocket.Conn
	dispatch *Dispatcher
	log      *zap.Logger

	sendMu  sync.Mutex
	closed  bool
	onClose func()

	ctx    context.Context
	cancel context.CancelFunc
}

// SetOnClose registers a callback run exactly once when the connection
// closes, letting the app layer drop its bookkeeping entry (e.g. the
// live-connection set behind ActiveConnections) without WsConnection
// needing to know that registry exists.
func (c *WsConnection) SetOnClose(fn func()) {
	c.sendMu.Lock()
	c.onClose = fn
	c.sendMu.Unlock()
}

// Upgrade upgrades r into a WsConnection and starts its read loop in a
// new goroutine. Callers that need to push notifications hold onto the
// returned *WsConnection.
func Upgrade(w http.ResponseWriter, r *http.Request, dispatch *Dispatcher, log *zap.Logger) (*WsConnection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	// Not r.Context(): net/http cancels that once the upgrading handler
	// returns, which would end this long-lived connection early.
	ctx, cancel := context.WithCancel(context.Background())
	c := &WsConnection{conn: conn, dispatch: dispatch, log: log, ctx: ctx, cancel: cancel}
	go c.readLoop()
	return c, nil
}

func (c *WsConnection) readLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("ws read error", zap.Error(err))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.writeResponse(Response{Error: &WireError{Kind: "badValue", Message: "invalid request envelope"}})
			continue
		}

		resp := c.dispatch.Dispatch(c.ctx, req)
		c.writeResponse(resp)
	}
}

func (c *WsConnection) writeResponse(resp Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("ws: failed to encode response", zap.Error(err))
		return
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
		c.log.Warn("ws: failed to write response", zap.Error(err))
	}
}

// Push writes a server-initiated notification to this connection
// (§4.6). Safe to call from any goroutine.
func (c *WsConnection) Push(push Push) error {
	encoded, err := json.Marshal(push)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, encoded)
}

// Close terminates the connection, safe to call more than once.
func (c *WsConnection) Close() error {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	c.sendMu.Unlock()
	c.cancel()
	if onClose != nil {
		onClose()
	}
	return c.conn.Close()
}
