package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Uploader pushes bytes to a content-addressed store and returns the CID the
// store assigned to them.
//
// Contract:
//   - Uploaded bytes are public and immutable; there is no delete.
//   - The returned CID is the store's, not necessarily a locally computed one
//     (remote services may wrap bytes in UnixFS and return dag-pb CIDs).
//   - A failed Upload leaves no usable CID; callers re-run the stage.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (cid.Cid, error)
}

// Fetcher is implemented by backends that can return previously stored bytes.
// Fetch MUST return ErrNotFound when the CID is absent.
type Fetcher interface {
	Fetch(ctx context.Context, id cid.Cid) ([]byte, error)
}

// Named associates an Uploader with the backend name it was opened under.
type Named struct {
	Name     string
	Uploader Uploader
}
