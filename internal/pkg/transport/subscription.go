package transport

import (
	"context"
	"encoding/json"
	"time"
)

const (
	subscriptionBuffer = 20000
	unsubscribeTimeout = 5 * time.Second
)

// Subscription is a live server-push channel.
//
// Notifications is closed when the subscription ends, either because the
// caller unsubscribed or because the connection went away. Err tells which.
type Subscription struct {
	client    *duplexClient
	namespace string
	id        string

	ch  chan json.RawMessage
	err error
}

func newSubscription(client *duplexClient, namespace, id string) *Subscription {
	return &Subscription{
		client:    client,
		namespace: namespace,
		id:        id,
		ch:        make(chan json.RawMessage, subscriptionBuffer),
	}
}

// ID returns the server-assigned subscription id.
func (s *Subscription) ID() string {
	return s.id
}

// Notifications delivers the result field of each notification in arrival order.
func (s *Subscription) Notifications() <-chan json.RawMessage {
	return s.ch
}

// Err returns why the subscription ended. It is only meaningful once
// Notifications has been closed and is nil after Unsubscribe.
func (s *Subscription) Err() error {
	return s.err
}

// Unsubscribe ends the subscription locally and tells the server to stop sending.
func (s *Subscription) Unsubscribe() error {
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	return s.client.Unsubscribe(ctx, s.namespace, s.id)
}

// terminateLocked must be called with the client lock held, once per subscription.
func (s *Subscription) terminateLocked(err error) {
	s.err = err
	close(s.ch)
}
