package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/storage"
)

// NewUploader constructs a fresh, empty uploader for a test.
// The returned uploader MUST be isolated from other tests.
type NewUploader func(t *testing.T) storage.Uploader

// RunUploaderConformance checks the storage.Uploader contract. Backends that
// also implement storage.Fetcher get the fetch checks as well.
func RunUploaderConformance(t *testing.T, newUploader NewUploader) {
	t.Helper()
	ctx := context.Background()

	t.Run("UploadReturnsDefinedCID", func(t *testing.T) {
		u := newUploader(t)
		id, err := u.Upload(ctx, []byte("hello, arcmint storage"))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if !id.Defined() {
			t.Fatalf("Upload returned undefined CID")
		}
	})

	t.Run("UploadIdempotent", func(t *testing.T) {
		u := newUploader(t)
		b := []byte("same bytes")

		id1, err := u.Upload(ctx, b)
		if err != nil {
			t.Fatalf("Upload(1) failed: %v", err)
		}
		id2, err := u.Upload(ctx, b)
		if err != nil {
			t.Fatalf("Upload(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Upload not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("DistinctBytesDistinctCIDs", func(t *testing.T) {
		u := newUploader(t)
		a, err := u.Upload(ctx, []byte("image"))
		if err != nil {
			t.Fatalf("Upload(a) failed: %v", err)
		}
		b, err := u.Upload(ctx, []byte("metadata"))
		if err != nil {
			t.Fatalf("Upload(b) failed: %v", err)
		}
		if a == b {
			t.Fatalf("distinct payloads collided on %s", a)
		}
	})

	t.Run("RejectEmptyPayload", func(t *testing.T) {
		u := newUploader(t)
		if _, err := u.Upload(ctx, nil); !errors.Is(err, storage.ErrEmptyPayload) {
			t.Fatalf("Upload(nil): got %v want ErrEmptyPayload", err)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		u := newUploader(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := u.Upload(cctx, []byte("late")); err == nil {
			t.Fatalf("Upload with canceled context should fail")
		}
	})

	t.Run("FetchRoundTrip", func(t *testing.T) {
		u := newUploader(t)
		f, ok := u.(storage.Fetcher)
		if !ok {
			t.Skip("backend does not implement storage.Fetcher")
		}
		want := []byte("fetch me")
		id, err := u.Upload(ctx, want)
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		got, err := f.Fetch(ctx, id)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Fetch bytes mismatch")
		}
	})

	t.Run("FetchMissingAndUndef", func(t *testing.T) {
		u := newUploader(t)
		f, ok := u.(storage.Fetcher)
		if !ok {
			t.Skip("backend does not implement storage.Fetcher")
		}
		other := newUploader(t)
		id, err := other.Upload(ctx, []byte("only elsewhere"))
		if err != nil {
			t.Fatalf("Upload(other) failed: %v", err)
		}
		if _, err := f.Fetch(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Fetch missing: got err=%v want ErrNotFound", err)
		}
		var undef cid.Cid
		if _, err := f.Fetch(ctx, undef); err == nil {
			t.Fatalf("Fetch should fail for undefined CID")
		}
	})
}
