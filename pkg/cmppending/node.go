package cmppending

import (
	"context"
	"errors"
	"sync"

	"mempoolrace/internal/pkg/transport"
	"mempoolrace/pkg/provider"

	log "github.com/sirupsen/logrus"
)

// Endpoint describes one node to race.
type Endpoint struct {
	Name    string
	Address string
	Mode    provider.Mode
}

type dialFunc func(ctx context.Context, address string) (*provider.PubSubProvider, error)

// rpcNode is a Node backed by a subscription-capable provider. When the
// connection is gone it dials once more before giving up on a subscription.
type rpcNode struct {
	endpoint Endpoint
	dial     dialFunc

	mu       sync.Mutex
	provider *provider.PubSubProvider
}

func dialNode(ctx context.Context, endpoint Endpoint, dial dialFunc) (*rpcNode, error) {
	p, err := dial(ctx, endpoint.Address)
	if err != nil {
		return nil, err
	}
	return &rpcNode{endpoint: endpoint, dial: dial, provider: p}, nil
}

func (n *rpcNode) current() *provider.PubSubProvider {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.provider
}

func (n *rpcNode) BlockNumber(ctx context.Context) (uint64, error) {
	return n.current().BlockNumber(ctx)
}

func (n *rpcNode) Subscribe(ctx context.Context) (Stream, error) {
	stream, err := n.current().SubscribePendingTransactions(ctx, n.endpoint.Mode)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, transport.ErrClosed) {
		return nil, err
	}

	log.Warnf("%s: connection to %s lost, reconnecting", n.endpoint.Name, n.endpoint.Address)
	if err := n.reconnect(ctx); err != nil {
		return nil, err
	}
	stream, err = n.current().SubscribePendingTransactions(ctx, n.endpoint.Mode)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (n *rpcNode) reconnect(ctx context.Context) error {
	p, err := n.dial(ctx, n.endpoint.Address)
	if err != nil {
		return err
	}

	n.mu.Lock()
	old := n.provider
	n.provider = p
	n.mu.Unlock()

	_ = old.Close()
	return nil
}

func (n *rpcNode) Close() error {
	return n.current().Close()
}
