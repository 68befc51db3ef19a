package chain

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// DefaultFee is the flat fee in microalgos.
const DefaultFee = 1000

// AssetSpec describes a single-unit asset to create.
type AssetSpec struct {
	Sender    string
	UnitName  string
	AssetName string
	// URL is the ARC-19 template URL.
	URL     string
	Reserve string
	// MetadataHash is empty or exactly 32 bytes.
	MetadataHash []byte
	Note         []byte
}

// Signed is a signed transaction ready for submission.
type Signed struct {
	TxID  string
	Bytes []byte
}

type Minter struct {
	Node   Node
	Fee    uint64
	Logger *slog.Logger
}

// Build constructs the asset-creation transaction: total 1, no decimals, not
// frozen by default, manager set to the sender, freeze and clawback unset.
func (m *Minter) Build(ctx context.Context, spec AssetSpec) (types.Transaction, error) {
	if _, err := types.DecodeAddress(spec.Sender); err != nil {
		return types.Transaction{}, fmt.Errorf("%w: sender: %v", ErrInvalidAsset, err)
	}
	if _, err := types.DecodeAddress(spec.Reserve); err != nil {
		return types.Transaction{}, fmt.Errorf("%w: reserve: %v", ErrInvalidAsset, err)
	}
	if n := len(spec.MetadataHash); n != 0 && n != 32 {
		return types.Transaction{}, fmt.Errorf("%w: metadata hash is %d bytes", ErrInvalidAsset, n)
	}

	sp, err := m.Node.SuggestedParams(ctx)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("suggested params: %w", err)
	}
	fee := m.Fee
	if fee == 0 {
		fee = DefaultFee
	}
	sp.FlatFee = true
	sp.Fee = types.MicroAlgos(fee)

	tx, err := transaction.MakeAssetCreateTxn(
		spec.Sender, spec.Note, sp,
		1, 0, false,
		spec.Sender, spec.Reserve, "", "",
		spec.UnitName, spec.AssetName, spec.URL, string(spec.MetadataHash),
	)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	m.logger().Debug("transaction built",
		"sender", spec.Sender,
		"reserve", spec.Reserve,
		"url", spec.URL,
		"fee", fee,
		"first_valid", uint64(tx.FirstValid),
		"last_valid", uint64(tx.LastValid),
	)
	return tx, nil
}

// Sign signs tx with sk.
func Sign(sk ed25519.PrivateKey, tx types.Transaction) (Signed, error) {
	txid, stx, err := crypto.SignTransaction(sk, tx)
	if err != nil {
		return Signed{}, fmt.Errorf("sign transaction: %w", err)
	}
	return Signed{TxID: txid, Bytes: stx}, nil
}

// Submit broadcasts a signed transaction and returns the node's txid.
func (m *Minter) Submit(ctx context.Context, s Signed) (string, error) {
	txid, err := m.Node.SendRawTransaction(ctx, s.Bytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if s.TxID != "" && txid != s.TxID {
		m.logger().Warn("node returned unexpected txid", "want", s.TxID, "got", txid)
	}
	m.logger().Info("transaction submitted", "txid", txid)
	return txid, nil
}

func (m *Minter) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
