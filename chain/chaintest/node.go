// Package chaintest provides an in-memory chain.Node for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"truape.co/arcmint/chain"
)

// Node records every call as a string ("status", "pending",
// "after:<round>", "send", "params", "assets") so tests can assert call order.
//
// Pending responses are consumed one per poll; the last one repeats.
type Node struct {
	mu sync.Mutex

	LastRound uint64
	Params    types.SuggestedParams
	Pending   []chain.PendingInfo
	SendErr   error
	PollErr   error
	Created   []chain.CreatedAsset
	AssetsErr error

	Calls []string
	Sent  []types.SignedTxn
	polls int
}

var _ chain.Node = (*Node)(nil)

// New returns a node at round 1000 with plausible testnet parameters.
func New() *Node {
	gh := make([]byte, 32)
	for i := range gh {
		gh[i] = 0x11
	}
	return &Node{
		LastRound: 1000,
		Params: types.SuggestedParams{
			Fee:             0,
			GenesisID:       "testnet-v1.0",
			GenesisHash:     gh,
			FirstRoundValid: 1000,
			LastRoundValid:  2000,
			MinFee:          1000,
		},
	}
}

// ConfirmAfter queues n unconfirmed responses followed by a confirmation
// at the round reached by then.
func (n *Node) ConfirmAfter(polls int, assetID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Pending = n.Pending[:0]
	for i := 0; i < polls; i++ {
		n.Pending = append(n.Pending, chain.PendingInfo{})
	}
	n.Pending = append(n.Pending, chain.PendingInfo{ConfirmedRound: n.LastRound + uint64(polls), AssetID: assetID})
}

func (n *Node) record(call string) {
	n.Calls = append(n.Calls, call)
}

func (n *Node) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("params")
	return n.Params, ctx.Err()
}

func (n *Node) SendRawTransaction(ctx context.Context, stx []byte) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("send")
	if n.SendErr != nil {
		return "", n.SendErr
	}
	var signed types.SignedTxn
	if err := msgpack.Decode(stx, &signed); err != nil {
		return "", fmt.Errorf("decode signed txn: %w", err)
	}
	n.Sent = append(n.Sent, signed)
	return crypto.GetTxID(signed.Txn), nil
}

func (n *Node) PendingTransactionInfo(ctx context.Context, txid string) (chain.PendingInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("pending")
	if n.PollErr != nil {
		return chain.PendingInfo{}, n.PollErr
	}
	if len(n.Pending) == 0 {
		return chain.PendingInfo{}, nil
	}
	i := n.polls
	if i >= len(n.Pending) {
		i = len(n.Pending) - 1
	}
	n.polls++
	return n.Pending[i], nil
}

func (n *Node) CreatedAssets(ctx context.Context, creator string) ([]chain.CreatedAsset, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("assets")
	if n.AssetsErr != nil {
		return nil, n.AssetsErr
	}
	return append([]chain.CreatedAsset(nil), n.Created...), nil
}

func (n *Node) Status(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record("status")
	return n.LastRound, nil
}

func (n *Node) StatusAfterBlock(ctx context.Context, round uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(fmt.Sprintf("after:%d", round))
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if round > n.LastRound {
		n.LastRound = round
	}
	return n.LastRound, nil
}

// CallsSnapshot returns a copy of the recorded calls.
func (n *Node) CallsSnapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Calls...)
}

// ResetCalls clears recorded calls and the poll cursor.
func (n *Node) ResetCalls() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = nil
	n.polls = 0
}
