package chain

import (
	"context"
	"fmt"
	"time"
)

// Clock supplies the current time to the confirmation wait.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Policy bounds WaitForConfirmation. A zero field disables that bound; at
// least one should be set.
type Policy struct {
	MaxRounds uint64
	Timeout   time.Duration
	Clock     Clock
}

type Confirmation struct {
	Round   uint64
	AssetID uint64
}

// WaitForConfirmation polls txid until it reports a confirmed round.
//
// Starting from the node's last round, every unconfirmed poll is followed by
// exactly one StatusAfterBlock call for the next round. The wait ends with
// ErrConfirmationTimeout once MaxRounds blocks have passed or Timeout has
// elapsed on the policy clock, and with ErrPoolRejected when the node drops
// the transaction.
func WaitForConfirmation(ctx context.Context, node Node, txid string, p Policy) (Confirmation, error) {
	clock := p.Clock
	if clock == nil {
		clock = RealClock()
	}
	start := clock.Now()

	round, err := node.Status(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("node status: %w", err)
	}

	var waited uint64
	for {
		if err := ctx.Err(); err != nil {
			return Confirmation{}, err
		}
		info, err := node.PendingTransactionInfo(ctx, txid)
		if err != nil {
			return Confirmation{}, fmt.Errorf("pending transaction %s: %w", txid, err)
		}
		if info.ConfirmedRound > 0 {
			return Confirmation{Round: info.ConfirmedRound, AssetID: info.AssetID}, nil
		}
		if info.PoolError != "" {
			return Confirmation{}, fmt.Errorf("%w: %s", ErrPoolRejected, info.PoolError)
		}
		if p.MaxRounds > 0 && waited >= p.MaxRounds {
			return Confirmation{}, fmt.Errorf("%w: %s not confirmed after %d rounds", ErrConfirmationTimeout, txid, waited)
		}
		if p.Timeout > 0 && clock.Now().Sub(start) >= p.Timeout {
			return Confirmation{}, fmt.Errorf("%w: %s not confirmed after %s", ErrConfirmationTimeout, txid, p.Timeout)
		}
		round++
		if _, err := node.StatusAfterBlock(ctx, round); err != nil {
			return Confirmation{}, fmt.Errorf("wait for round %d: %w", round, err)
		}
		waited++
	}
}
