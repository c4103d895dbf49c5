package cmppending

import (
	"context"
	"fmt"

	"mempoolrace/pkg/provider"

	"github.com/ethereum/go-ethereum/common"
)

// Observations maps a transaction hash to the unix millisecond at which an
// endpoint first reported it.
type Observations map[common.Hash]int64

// Stream is a live pending transaction feed.
type Stream interface {
	Next(ctx context.Context) (provider.PendingTx, error)
	Close() error
}

// Feed opens pending transaction streams.
type Feed interface {
	Subscribe(ctx context.Context) (Stream, error)
}

// Node is one endpoint taking part in the race.
type Node interface {
	Feed
	BlockNumber(ctx context.Context) (uint64, error)
	Close() error
}

// Winner tells which endpoint saw a transaction first.
type Winner int

const (
	WinnerA Winner = iota + 1
	WinnerB
)

// Race is the outcome for one transaction seen by both endpoints.
type Race struct {
	Hash   common.Hash
	A      int64
	B      int64
	Winner Winner
	// Diff is the winner's lead in milliseconds.
	Diff int64
}

// Result is the full comparison. Ties are counted but not listed in Races.
type Result struct {
	Races []Race
	WinsA int
	WinsB int
	Ties  int
}

// HeightMismatchError is returned when the endpoints are not at the same block.
type HeightMismatchError struct {
	NameA, NameB     string
	HeightA, HeightB uint64
}

func (e *HeightMismatchError) Error() string {
	return fmt.Sprintf("endpoints are not in sync: %s is at block %d, %s is at block %d",
		e.NameA, e.HeightA, e.NameB, e.HeightB)
}
