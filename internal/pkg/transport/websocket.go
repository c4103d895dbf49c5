package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DialWebSocket connects to a ws:// or wss:// endpoint.
func DialWebSocket(ctx context.Context, address string) (Subscriber, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, wrap(KindWebSocket, "dial", err)
	}
	return newDuplexClient(KindWebSocket, &wsCodec{conn: conn}), nil
}

type wsCodec struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsCodec) read() (json.RawMessage, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsCodec) write(ctx context.Context, v interface{}) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	return writeContext(ctx, c.conn, func() error {
		return c.conn.WriteJSON(v)
	})
}

func (c *wsCodec) close() error {
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}
