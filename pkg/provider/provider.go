// Package provider exposes typed node operations on top of a JSON-RPC transport.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mempoolrace/internal/pkg/transport"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
)

// ErrStreamEnded is returned by PendingTxStream.Next once the underlying
// subscription is gone. Callers may subscribe again.
var ErrStreamEnded = errors.New("pending transaction stream ended")

// Provider issues request/response calls. It works over any transport.
type Provider struct {
	caller transport.Caller
}

// New wraps an open transport.
func New(caller transport.Caller) *Provider {
	return &Provider{caller: caller}
}

// Dial connects to address with whatever transport its scheme selects. It is
// for request-only callers such as an http(s) endpoint; use DialPubSub for
// subscriptions.
func Dial(ctx context.Context, address string) (*Provider, error) {
	c, err := transport.Connect(ctx, address)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}

// BlockNumber returns the height of the node's current head.
func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := p.caller.Call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// TransactionByHash looks a transaction up. It returns nil without error when
// the node does not know the hash, e.g. because it already left the pool.
func (p *Provider) TransactionByHash(ctx context.Context, hash common.Hash) (*PendingTx, error) {
	var tx *rpcTransaction
	if err := p.caller.Call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	ptx := tx.pendingTx()
	return &ptx, nil
}

// Close closes the underlying transport.
func (p *Provider) Close() error {
	return p.caller.Close()
}

// PubSubProvider is a Provider over a transport that supports subscriptions.
type PubSubProvider struct {
	*Provider
	sub transport.Subscriber
}

// NewPubSub wraps an open subscription-capable transport.
func NewPubSub(sub transport.Subscriber) *PubSubProvider {
	return &PubSubProvider{Provider: New(sub), sub: sub}
}

// DialPubSub connects to a ws(s) URL or IPC path. http(s) addresses are rejected.
func DialPubSub(ctx context.Context, address string) (*PubSubProvider, error) {
	s, err := transport.ConnectSubscriber(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewPubSub(s), nil
}

// SubscribePendingTransactions opens a newPendingTransactions subscription.
func (p *PubSubProvider) SubscribePendingTransactions(ctx context.Context, mode Mode) (*PendingTxStream, error) {
	var args []interface{}
	switch mode {
	case ModeFull:
		args = append(args, true)
	case ModeHashes:
	default:
		return nil, fmt.Errorf("unknown feed mode %q", mode)
	}

	sub, err := p.sub.Subscribe(ctx, "eth", "newPendingTransactions", args...)
	if err != nil {
		return nil, err
	}
	return &PendingTxStream{provider: p.Provider, sub: sub, mode: mode}, nil
}

// PendingTxStream yields pending transactions one at a time.
type PendingTxStream struct {
	provider *Provider
	sub      *transport.Subscription
	mode     Mode
}

// Next blocks until the next pending transaction arrives. In ModeHashes,
// hashes the node can no longer resolve are skipped.
func (s *PendingTxStream) Next(ctx context.Context) (PendingTx, error) {
	for {
		select {
		case <-ctx.Done():
			return PendingTx{}, ctx.Err()
		case raw, ok := <-s.sub.Notifications():
			if !ok {
				if err := s.sub.Err(); err != nil {
					return PendingTx{}, fmt.Errorf("%w: %v", ErrStreamEnded, err)
				}
				return PendingTx{}, ErrStreamEnded
			}

			tx, found, err := s.decode(ctx, raw)
			if err != nil {
				if errors.Is(err, transport.ErrClosed) {
					return PendingTx{}, fmt.Errorf("%w: %v", ErrStreamEnded, err)
				}
				return PendingTx{}, err
			}
			if found {
				return tx, nil
			}
		}
	}
}

func (s *PendingTxStream) decode(ctx context.Context, raw []byte) (PendingTx, bool, error) {
	if s.mode == ModeFull {
		var tx rpcTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return PendingTx{}, false, fmt.Errorf("cannot decode pending transaction: %w", err)
		}
		return tx.pendingTx(), true, nil
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return PendingTx{}, false, fmt.Errorf("cannot decode pending transaction hash: %w", err)
	}
	tx, err := s.provider.TransactionByHash(ctx, hash)
	if err != nil {
		return PendingTx{}, false, err
	}
	if tx == nil {
		log.Debugf("Pending transaction %s is gone, skipping", hash.Hex())
		return PendingTx{}, false, nil
	}
	return *tx, true, nil
}

// Close unsubscribes. Errors are expected when the connection is already gone.
func (s *PendingTxStream) Close() error {
	return s.sub.Unsubscribe()
}
