package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
)

// Replicating uploads the same bytes to every configured backend, in order.
//
// The first backend is authoritative: its CID is the one returned by Upload
// and the one the rest of the pipeline references. Later backends are mirrors.
// Mirrors may legitimately assign a different CID to the same bytes (for
// example a raw-block CID where the primary returns a UnixFS dag-pb CID), so
// CIDs are not required to agree.
//
// Use UploadAll when you need the per-backend CID mapping.
type Replicating struct {
	Backends []Named
}

var _ Uploader = Replicating{}

// UploadAll writes data to all backends and returns the primary CID along
// with a map of backend name -> returned CID.
//
// The first failing backend aborts the fan-out. The partial map is returned
// so callers can record what already landed. A failure after the primary
// succeeded is reported as a *MirrorError carrying the primary CID.
func (r Replicating) UploadAll(ctx context.Context, data []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: Replicating has no backends")
	}
	if len(data) == 0 {
		return cid.Undef, nil, ErrEmptyPayload
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	var primary cid.Cid
	for i, b := range r.Backends {
		got, err := uploadOne(ctx, b, data)
		if err != nil {
			if i > 0 {
				err = &MirrorError{Primary: primary, Backend: b.Name, Err: err}
			}
			return cid.Undef, out, err
		}
		out[b.Name] = got
		if i == 0 {
			primary = got
		}
	}
	return primary, out, nil
}

func uploadOne(ctx context.Context, b Named, data []byte) (cid.Cid, error) {
	if b.Uploader == nil {
		return cid.Undef, fmt.Errorf("storage: nil uploader for backend %q", b.Name)
	}
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	got, err := b.Uploader.Upload(ctx, data)
	if err != nil {
		return cid.Undef, fmt.Errorf("storage: backend %q: %w", b.Name, err)
	}
	if !got.Defined() {
		return cid.Undef, fmt.Errorf("storage: backend %q: %w", b.Name, ErrInvalidCID)
	}
	return got, nil
}

// MirrorError reports a mirror failure after the primary already stored the
// bytes under Primary.
type MirrorError struct {
	Primary cid.Cid
	Backend string
	Err     error
}

func (e *MirrorError) Error() string { return e.Err.Error() }
func (e *MirrorError) Unwrap() error { return e.Err }

func (r Replicating) Upload(ctx context.Context, data []byte) (cid.Cid, error) {
	id, _, err := r.UploadAll(ctx, data)
	return id, err
}
