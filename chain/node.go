// Package chain builds, signs and submits the asset-creation transaction and
// waits for it to confirm.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// PendingInfo is the subset of a pending-transaction response the minter
// reads. ConfirmedRound is zero while the transaction is still pending.
type PendingInfo struct {
	ConfirmedRound uint64
	AssetID        uint64
	PoolError      string
}

// CreatedAsset is an asset created by an account.
type CreatedAsset struct {
	ID      uint64
	URL     string
	Reserve string
}

// Node is the algod surface used by the minter.
type Node interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	SendRawTransaction(ctx context.Context, stx []byte) (string, error)
	// PendingTransactionInfo fails with ErrTxnNotFound when the node holds
	// no record of txid.
	PendingTransactionInfo(ctx context.Context, txid string) (PendingInfo, error)
	CreatedAssets(ctx context.Context, creator string) ([]CreatedAsset, error)
	// Status returns the node's last round.
	Status(ctx context.Context) (uint64, error)
	// StatusAfterBlock blocks until round has passed and returns the new
	// last round.
	StatusAfterBlock(ctx context.Context, round uint64) (uint64, error)
}

type AlgodOptions struct {
	URL       string
	Token     string
	UserAgent string
}

// Algod adapts the SDK algod client to Node.
type Algod struct {
	client *algod.Client
}

var _ Node = (*Algod)(nil)

func NewAlgod(opts AlgodOptions) (*Algod, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("chain: node url is required")
	}
	var headers []*common.Header
	if opts.UserAgent != "" {
		headers = append(headers, &common.Header{Key: "User-Agent", Value: opts.UserAgent})
	}
	c, err := algod.MakeClientWithHeaders(opts.URL, opts.Token, headers)
	if err != nil {
		return nil, err
	}
	return &Algod{client: c}, nil
}

func (a *Algod) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return a.client.SuggestedParams().Do(ctx)
}

func (a *Algod) SendRawTransaction(ctx context.Context, stx []byte) (string, error) {
	return a.client.SendRawTransaction(stx).Do(ctx)
}

func (a *Algod) PendingTransactionInfo(ctx context.Context, txid string) (PendingInfo, error) {
	resp, _, err := a.client.PendingTransactionInformation(txid).Do(ctx)
	if err != nil {
		if isNotFound(err) {
			return PendingInfo{}, fmt.Errorf("%w: %v", ErrTxnNotFound, err)
		}
		return PendingInfo{}, err
	}
	return PendingInfo{
		ConfirmedRound: resp.ConfirmedRound,
		AssetID:        resp.AssetIndex,
		PoolError:      resp.PoolError,
	}, nil
}

func (a *Algod) CreatedAssets(ctx context.Context, creator string) ([]CreatedAsset, error) {
	acct, err := a.client.AccountInformation(creator).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CreatedAsset, 0, len(acct.CreatedAssets))
	for _, as := range acct.CreatedAssets {
		out = append(out, CreatedAsset{ID: as.Index, URL: as.Params.Url, Reserve: as.Params.Reserve})
	}
	return out, nil
}

func (a *Algod) Status(ctx context.Context) (uint64, error) {
	st, err := a.client.Status().Do(ctx)
	if err != nil {
		return 0, err
	}
	return st.LastRound, nil
}

func (a *Algod) StatusAfterBlock(ctx context.Context, round uint64) (uint64, error) {
	st, err := a.client.StatusAfterBlock(round).Do(ctx)
	if err != nil {
		return 0, err
	}
	return st.LastRound, nil
}

// The SDK reports HTTP failures as "HTTP <status>: <body>".
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "HTTP 404")
}
