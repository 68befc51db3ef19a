package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Action is what a re-run should do with a transaction signed by an earlier
// run.
type Action int

const (
	// ActionWait: the transaction may still confirm; keep polling it.
	ActionWait Action = iota
	// ActionMinted: the sender already holds the asset.
	ActionMinted
	// ActionRebuild: the transaction can never confirm, so signing a new
	// one cannot create a second asset.
	ActionRebuild
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionMinted:
		return "minted"
	case ActionRebuild:
		return "rebuild"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type Recovery struct {
	Action  Action
	AssetID uint64
	// Cause is the rebroadcast failure, if any.
	Cause error
}

// Recover rebroadcasts a previously signed transaction and decides whether
// it can still confirm.
//
// A failed rebroadcast leads to ActionRebuild only when the sender holds no
// asset matching spec, and either the node has no record of the
// transaction or its last valid round has passed.
func (m *Minter) Recover(ctx context.Context, s Signed, spec AssetSpec) (Recovery, error) {
	var stx types.SignedTxn
	if err := msgpack.Decode(s.Bytes, &stx); err != nil {
		return Recovery{}, fmt.Errorf("decode recorded transaction: %w", err)
	}

	_, cause := m.Submit(ctx, s)
	if cause == nil {
		return Recovery{Action: ActionWait}, nil
	}
	log := m.logger().With("txid", s.TxID)
	log.Warn("rebroadcast refused", "err", cause)

	info, err := m.Node.PendingTransactionInfo(ctx, s.TxID)
	unknown := errors.Is(err, ErrTxnNotFound)
	switch {
	case err == nil && info.ConfirmedRound > 0:
		return Recovery{Action: ActionWait, Cause: cause}, nil
	case err == nil && info.PoolError == "":
		// Still pending.
		return Recovery{Action: ActionWait, Cause: cause}, nil
	case err == nil:
		unknown = true
	case !unknown:
		log.Warn("pending lookup failed", "err", err)
	}

	assets, err := m.Node.CreatedAssets(ctx, spec.Sender)
	if err != nil {
		return Recovery{}, fmt.Errorf("created assets of %s: %w", spec.Sender, err)
	}
	for _, a := range assets {
		if a.URL == spec.URL && a.Reserve == spec.Reserve {
			log.Info("asset already created", "asset_id", a.ID)
			return Recovery{Action: ActionMinted, AssetID: a.ID, Cause: cause}, nil
		}
	}
	if unknown {
		return Recovery{Action: ActionRebuild, Cause: cause}, nil
	}

	round, err := m.Node.Status(ctx)
	if err != nil {
		return Recovery{}, fmt.Errorf("node status: %w", err)
	}
	if round > uint64(stx.Txn.LastValid) {
		log.Info("transaction expired", "last_valid", uint64(stx.Txn.LastValid), "round", round)
		return Recovery{Action: ActionRebuild, Cause: cause}, nil
	}
	return Recovery{Action: ActionWait, Cause: cause}, nil
}
