package provider

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Mode selects what a node pushes on its newPendingTransactions subscription.
type Mode string

const (
	// ModeFull asks the node for whole transaction objects.
	ModeFull Mode = "full"
	// ModeHashes receives hashes only and looks each transaction up.
	ModeHashes Mode = "hashes"
)

// ParseMode validates a feed mode given on the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeHashes:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown feed mode %q, expected %q or %q", s, ModeFull, ModeHashes)
	}
}

// PendingTx is the part of a pending transaction the race cares about.
// To is nil for contract creations.
type PendingTx struct {
	Hash common.Hash
	To   *common.Address
}

type rpcTransaction struct {
	Hash common.Hash     `json:"hash"`
	To   *common.Address `json:"to"`
}

func (tx *rpcTransaction) pendingTx() PendingTx {
	return PendingTx{Hash: tx.Hash, To: tx.To}
}
