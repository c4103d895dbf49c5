package transport

import (
	"context"
	"encoding/json"
	"net"
	"sync"
)

// DialIPC connects to a node over a unix domain socket at path.
func DialIPC(ctx context.Context, path string) (Subscriber, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, wrap(KindIPC, "dial", err)
	}
	return newDuplexClient(KindIPC, newIPCCodec(conn)), nil
}

// ipcCodec frames messages as a plain stream of JSON values.
type ipcCodec struct {
	conn net.Conn
	dec  *json.Decoder

	wmu sync.Mutex
	enc *json.Encoder
}

func newIPCCodec(conn net.Conn) *ipcCodec {
	return &ipcCodec{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}
}

func (c *ipcCodec) read() (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *ipcCodec) write(ctx context.Context, v interface{}) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	return writeContext(ctx, c.conn, func() error {
		return c.enc.Encode(v)
	})
}

func (c *ipcCodec) close() error {
	return c.conn.Close()
}
