package cmppending

import (
	"context"
	"errors"
	"sync"
	"time"

	"mempoolrace/pkg/provider"

	"github.com/ethereum/go-ethereum/common"
)

var (
	router = common.HexToAddress("0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad")
	other  = common.HexToAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")

	h1 = common.HexToHash("0x01")
	h2 = common.HexToHash("0x02")
	h3 = common.HexToHash("0x03")
	h4 = common.HexToHash("0x04")

	errBoom         = errors.New("boom")
	errFeedFinished = errors.New("no more scripted streams")
)

func toRouter(h common.Hash) provider.PendingTx {
	to := router
	return provider.PendingTx{Hash: h, To: &to}
}

func toOther(h common.Hash) provider.PendingTx {
	to := other
	return provider.PendingTx{Hash: h, To: &to}
}

// clock returns the given unix milliseconds one call at a time.
func clock(ms ...int64) func() time.Time {
	var (
		mu sync.Mutex
		i  int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := time.UnixMilli(ms[i])
		i++
		return t
	}
}

// fakeStream replays txs, then ends. With block set it waits for ctx instead of ending.
type fakeStream struct {
	txs   []provider.PendingTx
	err   error
	block bool

	mu     sync.Mutex
	pos    int
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) (provider.PendingTx, error) {
	s.mu.Lock()
	if s.pos < len(s.txs) {
		tx := s.txs[s.pos]
		s.pos++
		s.mu.Unlock()
		return tx, nil
	}
	s.mu.Unlock()

	if s.err != nil {
		return provider.PendingTx{}, s.err
	}
	if s.block {
		<-ctx.Done()
		return provider.PendingTx{}, ctx.Err()
	}
	return provider.PendingTx{}, provider.ErrStreamEnded
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) read() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeFeed hands out scripted streams in order. A nil entry fails with subscribeErr.
type fakeFeed struct {
	streams      []*fakeStream
	subscribeErr error

	mu         sync.Mutex
	subscribes int
}

func (f *fakeFeed) Subscribe(ctx context.Context) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.subscribes
	f.subscribes++
	if i >= len(f.streams) {
		return nil, errFeedFinished
	}
	if f.streams[i] == nil {
		return nil, f.subscribeErr
	}
	return f.streams[i], nil
}

func (f *fakeFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

// fakeNode is a Node with a fixed height.
type fakeNode struct {
	*fakeFeed
	height    uint64
	heightErr error
}

func (n *fakeNode) BlockNumber(ctx context.Context) (uint64, error) {
	return n.height, n.heightErr
}

func (n *fakeNode) Close() error {
	return nil
}
