package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// codec moves whole JSON messages over a persistent connection.
type codec interface {
	read() (json.RawMessage, error)
	write(ctx context.Context, v interface{}) error
	close() error
}

// writeTimeout bounds a single write when ctx carries no earlier deadline.
const writeTimeout = 10 * time.Second

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
	Close() error
}

// writeContext runs write under a bounded deadline and interrupts it when ctx
// is done. A failed write may leave a partial frame behind, so the connection
// is closed and the read loop reports it as gone.
func writeContext(ctx context.Context, conn writeDeadliner, write func() error) error {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now())
	})
	err := write()
	stop()
	if err == nil {
		return nil
	}

	_ = conn.Close()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// duplexClient multiplexes requests and subscriptions over one codec.
// A single goroutine reads; writes are serialized by the codec.
type duplexClient struct {
	kind   Kind
	codec  codec
	nextID uint64

	mu          sync.Mutex
	pending     map[uint64]chan *message
	subs        map[string]*Subscription
	early       map[string][]json.RawMessage
	subscribing int
	closeErr    error

	done      chan struct{}
	closeOnce sync.Once
}

func newDuplexClient(kind Kind, c codec) *duplexClient {
	d := &duplexClient{
		kind:    kind,
		codec:   c,
		pending: make(map[uint64]chan *message),
		subs:    make(map[string]*Subscription),
		early:   make(map[string][]json.RawMessage),
		done:    make(chan struct{}),
	}
	go d.readLoop()
	return d
}

func (d *duplexClient) Kind() Kind {
	return d.kind
}

func (d *duplexClient) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	resp, err := d.roundTrip(ctx, method, params)
	if err != nil {
		return wrap(d.kind, method, err)
	}
	return wrap(d.kind, method, resp.decodeResult(result))
}

func (d *duplexClient) roundTrip(ctx context.Context, method string, params []interface{}) (*message, error) {
	id := atomic.AddUint64(&d.nextID, 1)
	respCh := make(chan *message, 1)

	d.mu.Lock()
	if d.closeErr != nil {
		err := d.closeErr
		d.mu.Unlock()
		return nil, err
	}
	d.pending[id] = respCh
	d.mu.Unlock()

	if err := d.codec.write(ctx, NewRequest(id, method, params)); err != nil {
		d.forget(id)
		return nil, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		d.forget(id)
		return nil, ctx.Err()
	case <-d.done:
		d.mu.Lock()
		err := d.closeErr
		d.mu.Unlock()
		return nil, err
	}
}

func (d *duplexClient) forget(id uint64) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

func (d *duplexClient) Subscribe(ctx context.Context, namespace, channel string, args ...interface{}) (*Subscription, error) {
	op := namespace + subscribeSuffix

	d.mu.Lock()
	d.subscribing++
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.subscribing--
		if d.subscribing == 0 && len(d.early) > 0 {
			d.early = make(map[string][]json.RawMessage)
		}
		d.mu.Unlock()
	}()

	var id string
	params := append([]interface{}{channel}, args...)
	if err := d.Call(ctx, &id, op, params...); err != nil {
		return nil, err
	}

	sub := newSubscription(d, namespace, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return nil, wrap(d.kind, op, d.closeErr)
	}
	d.subs[id] = sub
	for _, raw := range d.early[id] {
		if _, live := d.subs[id]; !live {
			break
		}
		d.deliverLocked(sub, raw)
	}
	delete(d.early, id)

	log.Debugf("Subscribed to %s %s with id %s", namespace, channel, id)
	return sub, nil
}

func (d *duplexClient) Unsubscribe(ctx context.Context, namespace, id string) error {
	d.mu.Lock()
	if sub, ok := d.subs[id]; ok {
		delete(d.subs, id)
		sub.terminateLocked(nil)
	}
	d.mu.Unlock()

	var ok bool
	return d.Call(ctx, &ok, namespace+unsubscribeSuffix, id)
}

func (d *duplexClient) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.shutdown(ErrClosed)
		err = d.codec.close()
	})
	return err
}

func (d *duplexClient) readLoop() {
	for {
		raw, err := d.codec.read()
		if err != nil {
			d.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			d.closeOnce.Do(func() {
				_ = d.codec.close()
			})
			return
		}

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debugf("Ignoring malformed %s message: %v", d.kind, err)
			continue
		}

		switch {
		case msg.isNotification():
			d.dispatchNotification(&msg)
		case msg.isResponse():
			d.dispatchResponse(&msg)
		default:
			log.Debugf("Ignoring unexpected %s message: %s", d.kind, raw)
		}
	}
}

func (d *duplexClient) dispatchResponse(msg *message) {
	id, ok := msg.id()
	if !ok {
		log.Debugf("Ignoring %s response with id %s", d.kind, msg.ID)
		return
	}

	d.mu.Lock()
	respCh, ok := d.pending[id]
	delete(d.pending, id)
	d.mu.Unlock()

	if ok {
		respCh <- msg
	}
}

func (d *duplexClient) dispatchNotification(msg *message) {
	var params subscriptionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		log.Debugf("Ignoring malformed %s notification: %v", d.kind, err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sub, ok := d.subs[params.Subscription]
	if !ok {
		// The subscribe response may still be on its way to the caller.
		if d.subscribing > 0 {
			d.early[params.Subscription] = append(d.early[params.Subscription], params.Result)
		}
		return
	}
	d.deliverLocked(sub, params.Result)
}

func (d *duplexClient) deliverLocked(sub *Subscription, raw json.RawMessage) {
	select {
	case sub.ch <- raw:
	default:
		log.Warnf("Subscription %s dropped: consumer is too slow", sub.id)
		delete(d.subs, sub.id)
		sub.terminateLocked(ErrSubscriptionQueueOverflow)
	}
}

func (d *duplexClient) shutdown(reason error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closeErr != nil {
		return
	}
	d.closeErr = reason
	for id, sub := range d.subs {
		sub.terminateLocked(reason)
		delete(d.subs, id)
	}
	close(d.done)
}
