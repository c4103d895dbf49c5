package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testSubID = "0x9cef478923ff08bf67fde6c64013158d"

var (
	_ Caller     = (*HTTPClient)(nil)
	_ Subscriber = (*duplexClient)(nil)
)

type incoming struct {
	ID     uint64            `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type script struct {
	notifications        []interface{}
	notifyBeforeResponse bool
	// drop, when set, makes the server hang up once it is closed.
	drop chan struct{}
}

func response(id uint64, result interface{}) map[string]interface{} {
	return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result}
}

func errorResponse(id uint64, code int, msg string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]interface{}{"code": code, "message": msg},
	}
}

func notification(sub string, result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "eth_subscription",
		"params":  map[string]interface{}{"subscription": sub, "result": result},
	}
}

// serveRPC answers like a node: eth_blockNumber, eth_subscribe and eth_unsubscribe.
func serveRPC(read func(v interface{}) error, write func(v interface{}) error, s script) {
	for {
		var req incoming
		if err := read(&req); err != nil {
			return
		}
		switch req.Method {
		case "eth_blockNumber":
			_ = write(response(req.ID, "0x2a"))
		case "eth_subscribe":
			if s.notifyBeforeResponse {
				for _, n := range s.notifications {
					_ = write(notification(testSubID, n))
				}
				_ = write(response(req.ID, testSubID))
			} else {
				_ = write(response(req.ID, testSubID))
				for _, n := range s.notifications {
					_ = write(notification(testSubID, n))
				}
			}
			if s.drop != nil {
				<-s.drop
				return
			}
		case "eth_unsubscribe":
			_ = write(response(req.ID, true))
		default:
			_ = write(errorResponse(req.ID, -32601, "the method "+req.Method+" does not exist/is not available"))
		}
	}
}

func newWSServer(t *testing.T, s script) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serveRPC(conn.ReadJSON, conn.WriteJSON, s)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newIPCServer(t *testing.T, s script) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.ipc")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				serveRPC(json.NewDecoder(conn).Decode, json.NewEncoder(conn).Encode, s)
			}()
		}
	}()
	return path
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func next(t *testing.T, sub *Subscription) string {
	t.Helper()
	select {
	case raw, ok := <-sub.Notifications():
		require.True(t, ok, "subscription ended")
		var s string
		require.NoError(t, json.Unmarshal(raw, &s))
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
		return ""
	}
}

func collect(t *testing.T, sub *Subscription) []string {
	t.Helper()
	var out []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case raw, ok := <-sub.Notifications():
			if !ok {
				return out
			}
			var s string
			require.NoError(t, json.Unmarshal(raw, &s))
			out = append(out, s)
		case <-timeout:
			t.Fatalf("subscription did not end, got %v", out)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"http://127.0.0.1:8545":  KindHTTP,
		"https://rpc.example.io": KindHTTP,
		"ws://127.0.0.1:8546":    KindWebSocket,
		"wss://rpc.example.io":   KindWebSocket,
		"/tmp/geth.ipc":          KindIPC,
		"geth.ipc":               KindIPC,
		"%zz":                    KindIPC,
	}
	for address, want := range tests {
		require.Equal(t, want, KindOf(address), address)
	}
}

func TestConnectSubscriberRejectsHTTP(t *testing.T) {
	_, err := ConnectSubscriber(testContext(t), "http://127.0.0.1:1")
	require.ErrorIs(t, err, ErrSubscriptionsUnsupported)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindHTTP, terr.Kind)
}

func TestConnectHTTPIsRequestOnly(t *testing.T) {
	c, err := Connect(testContext(t), "http://127.0.0.1:1")
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, KindHTTP, c.Kind())
	_, ok := c.(Subscriber)
	require.False(t, ok)
}

func TestHTTPCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveRPC(json.NewDecoder(r.Body).Decode, func(v interface{}) error {
			return json.NewEncoder(w).Encode(v)
		}, script{})
	}))
	defer srv.Close()

	c, err := Connect(testContext(t), srv.URL)
	require.NoError(t, err)
	defer c.Close()

	var height string
	require.NoError(t, c.Call(testContext(t), &height, "eth_blockNumber"))
	require.Equal(t, "0x2a", height)
}

func TestHTTPCallRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveRPC(json.NewDecoder(r.Body).Decode, func(v interface{}) error {
			return json.NewEncoder(w).Encode(v)
		}, script{})
	}))
	defer srv.Close()

	c, err := DialHTTP(srv.URL)
	require.NoError(t, err)

	err = c.Call(testContext(t), nil, "eth_chainId")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32601, rpcErr.Code)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindHTTP, terr.Kind)
	require.Equal(t, "eth_chainId", terr.Op)
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := DialHTTP(srv.URL)
	require.NoError(t, err)

	err = c.Call(testContext(t), nil, "eth_blockNumber")
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, http.StatusTooManyRequests, herr.StatusCode)
	require.Contains(t, string(herr.Body), "rate limited")
}

func TestWebSocketCallAndSubscribe(t *testing.T) {
	addr := newWSServer(t, script{notifications: []interface{}{"0x01", "0x02", "0x03"}})

	s, err := ConnectSubscriber(testContext(t), addr)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, KindWebSocket, s.Kind())

	var height string
	require.NoError(t, s.Call(testContext(t), &height, "eth_blockNumber"))
	require.Equal(t, "0x2a", height)

	sub, err := s.Subscribe(testContext(t), "eth", "newPendingTransactions")
	require.NoError(t, err)
	require.Equal(t, testSubID, sub.ID())

	for _, want := range []string{"0x01", "0x02", "0x03"} {
		require.Equal(t, want, next(t, sub))
	}

	require.NoError(t, sub.Unsubscribe())
	require.Empty(t, collect(t, sub))
	require.NoError(t, sub.Err())
}

func TestWebSocketNotificationBeforeSubscribeResponse(t *testing.T) {
	addr := newWSServer(t, script{
		notifications:        []interface{}{"0x0a", "0x0b"},
		notifyBeforeResponse: true,
	})

	s, err := DialWebSocket(testContext(t), addr)
	require.NoError(t, err)
	defer s.Close()

	sub, err := s.Subscribe(testContext(t), "eth", "newPendingTransactions")
	require.NoError(t, err)
	require.Equal(t, "0x0a", next(t, sub))
	require.Equal(t, "0x0b", next(t, sub))
	require.NoError(t, sub.Unsubscribe())
}

func TestWebSocketDropEndsSubscription(t *testing.T) {
	drop := make(chan struct{})
	addr := newWSServer(t, script{
		notifications: []interface{}{"0x01", "0x02"},
		drop:          drop,
	})

	s, err := DialWebSocket(testContext(t), addr)
	require.NoError(t, err)
	defer s.Close()

	sub, err := s.Subscribe(testContext(t), "eth", "newPendingTransactions")
	require.NoError(t, err)
	close(drop)
	require.Equal(t, []string{"0x01", "0x02"}, collect(t, sub))
	require.ErrorIs(t, sub.Err(), ErrClosed)

	err = s.Call(testContext(t), nil, "eth_blockNumber")
	require.ErrorIs(t, err, ErrClosed)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindWebSocket, terr.Kind)
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Connect(testContext(t), addr)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindWebSocket, terr.Kind)
	require.Equal(t, "dial", terr.Op)
}

func TestIPCCallAndSubscribe(t *testing.T) {
	drop := make(chan struct{})
	path := newIPCServer(t, script{notifications: []interface{}{"0x01"}, drop: drop})

	s, err := ConnectSubscriber(testContext(t), path)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, KindIPC, s.Kind())

	var height string
	require.NoError(t, s.Call(testContext(t), &height, "eth_blockNumber"))
	require.Equal(t, "0x2a", height)

	sub, err := s.Subscribe(testContext(t), "eth", "newPendingTransactions", true)
	require.NoError(t, err)
	close(drop)
	require.Equal(t, []string{"0x01"}, collect(t, sub))
	require.ErrorIs(t, sub.Err(), ErrClosed)
}

func TestIPCDialFailure(t *testing.T) {
	_, err := Connect(testContext(t), filepath.Join(t.TempDir(), "missing.ipc"))

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindIPC, terr.Kind)
	require.Equal(t, "dial", terr.Op)
}

func TestCallAfterClose(t *testing.T) {
	path := newIPCServer(t, script{})

	s, err := DialIPC(testContext(t), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Call(testContext(t), nil, "eth_blockNumber")
	require.True(t, errors.Is(err, ErrClosed))
}

// newStalledIPCServer accepts connections and never reads from them.
func newStalledIPCServer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stalled.ipc")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	conns := make(chan net.Conn, 8)
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case c := <-conns:
				_ = c.Close()
			default:
				return
			}
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	return path
}

func TestIPCBlockedWriteStopsOnCancel(t *testing.T) {
	s, err := DialIPC(testContext(t), newStalledIPCServer(t))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	// Far larger than a unix socket buffer, so the write blocks on the idle peer.
	payload := strings.Repeat("f", 16<<20)
	start := time.Now()
	err = s.Call(ctx, nil, "eth_sendRawTransaction", payload)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 3*time.Second)

	require.Eventually(t, func() bool {
		err := s.Call(testContext(t), nil, "eth_blockNumber")
		return errors.Is(err, ErrClosed)
	}, 3*time.Second, 20*time.Millisecond)
}
