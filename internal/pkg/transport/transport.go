// Package transport implements JSON-RPC clients over WebSocket, IPC and HTTP.
//
// Every transport implements Caller. Only the persistent ones (WebSocket and
// IPC) implement Subscriber, so code that needs push subscriptions asks for a
// Subscriber and cannot be handed an HTTP connection by mistake.
package transport

import (
	"context"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"
)

// Kind identifies the transport behind a connection.
type Kind int

const (
	KindWebSocket Kind = iota + 1
	KindIPC
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindWebSocket:
		return "websocket"
	case KindIPC:
		return "ipc"
	case KindHTTP:
		return "http"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Caller performs JSON-RPC requests.
type Caller interface {
	Kind() Kind
	// Call invokes method and decodes the result into result, which may be nil.
	Call(ctx context.Context, result interface{}, method string, params ...interface{}) error
	Close() error
}

// Subscriber is a Caller that can also hold server-push subscriptions.
type Subscriber interface {
	Caller
	// Subscribe calls <namespace>_subscribe with channel and args as parameters.
	Subscribe(ctx context.Context, namespace, channel string, args ...interface{}) (*Subscription, error)
	// Unsubscribe calls <namespace>_unsubscribe for the given subscription id.
	Unsubscribe(ctx context.Context, namespace, id string) error
}

// KindOf reports which transport Connect would pick for address.
func KindOf(address string) Kind {
	u, err := url.Parse(address)
	if err != nil {
		return KindIPC
	}
	switch u.Scheme {
	case "http", "https":
		return KindHTTP
	case "ws", "wss":
		return KindWebSocket
	default:
		return KindIPC
	}
}

// Connect opens a connection to address. http(s) URLs get a request-only
// client, ws(s) URLs a WebSocket, and anything else is treated as the path of
// a unix domain socket. Persistent transports are dialled before Connect returns.
func Connect(ctx context.Context, address string) (Caller, error) {
	kind := KindOf(address)
	log.Debugf("Initiating %s connection to %s", kind, address)

	var (
		c   Caller
		err error
	)
	switch kind {
	case KindHTTP:
		c, err = DialHTTP(address)
	case KindWebSocket:
		c, err = DialWebSocket(ctx, address)
	default:
		c, err = DialIPC(ctx, address)
	}
	if err != nil {
		return nil, err
	}

	log.Debugf("Connection to %s established", address)
	return c, nil
}

// ConnectSubscriber is Connect for callers that need subscriptions. It refuses
// http(s) addresses without touching the network.
func ConnectSubscriber(ctx context.Context, address string) (Subscriber, error) {
	if KindOf(address) == KindHTTP {
		return nil, &Error{Kind: KindHTTP, Op: "connect", Err: ErrSubscriptionsUnsupported}
	}
	c, err := Connect(ctx, address)
	if err != nil {
		return nil, err
	}
	s, ok := c.(Subscriber)
	if !ok {
		_ = c.Close()
		return nil, &Error{Kind: c.Kind(), Op: "connect", Err: ErrSubscriptionsUnsupported}
	}
	return s, nil
}
