package chain

import "errors"

var (
	ErrRejected            = errors.New("chain: transaction rejected by node")
	ErrPoolRejected        = errors.New("chain: transaction dropped from pool")
	ErrConfirmationTimeout = errors.New("chain: timed out awaiting confirmation")
	ErrInvalidAsset        = errors.New("chain: invalid asset parameters")
	ErrTxnNotFound         = errors.New("chain: transaction not known to node")
)
