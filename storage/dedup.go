package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/ipfs/go-cid"
)

// Index remembers which byte blobs were already uploaded, keyed by the
// lowercase hex sha256 of the bytes.
type Index interface {
	Lookup(sha256Hex string) (cid.Cid, bool)
	Record(sha256Hex string, id cid.Cid, size int) error
}

// Dedup skips uploads whose bytes are already present in Index.
//
// Remote services do not report whether an upload was a duplicate, so a
// re-run after a crash would otherwise publish the same artifact twice.
type Dedup struct {
	Uploader Uploader
	Index    Index
	Logger   *slog.Logger
}

var _ Uploader = (*Dedup)(nil)

// Sum returns the dedup key for data.
func Sum(data []byte) string {
	s := sha256.Sum256(data)
	return hex.EncodeToString(s[:])
}

func (d *Dedup) Upload(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(data) == 0 {
		return cid.Undef, ErrEmptyPayload
	}
	key := Sum(data)
	if id, ok := d.Index.Lookup(key); ok && id.Defined() {
		d.logger().Info("upload skipped, bytes already stored", "sha256", key, "cid", id.String())
		return id, nil
	}
	id, err := d.Uploader.Upload(ctx, data)
	if err != nil {
		// The primary copy exists even though a mirror failed; a re-run
		// must not publish it again.
		var me *MirrorError
		if errors.As(err, &me) && me.Primary.Defined() {
			if rerr := d.Index.Record(key, me.Primary, len(data)); rerr != nil {
				return cid.Undef, errors.Join(err, rerr)
			}
			d.logger().Warn("mirror upload failed, primary recorded", "sha256", key, "cid", me.Primary.String(), "backend", me.Backend)
		}
		return cid.Undef, err
	}
	if err := d.Index.Record(key, id, len(data)); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (d *Dedup) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
