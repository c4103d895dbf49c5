package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation on a connection that was closed or dropped.
	ErrClosed = errors.New("connection closed")
	// ErrSubscriptionsUnsupported is returned when a request-only address is used for subscriptions.
	ErrSubscriptionsUnsupported = errors.New("transport does not support subscriptions")
	// ErrSubscriptionQueueOverflow terminates a subscription whose consumer fell too far behind.
	ErrSubscriptionQueueOverflow = errors.New("subscription queue overflow")
)

// Error is the single error type returned by all transports. Kind tells which
// transport produced it; Err holds the cause and can be an *RPCError or *HTTPError.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RPCError is an error object returned by the server.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is returned when an HTTP endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var terr *Error
	if errors.As(err, &terr) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
