package cidutil

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestCIDv1RawSHA256Deterministic(t *testing.T) {
	a := CIDv1RawSHA256([]byte("dally"))
	b := CIDv1RawSHA256([]byte("dally"))
	if a == "" || a != b {
		t.Fatalf("expected stable non-empty cid, got %q and %q", a, b)
	}
	if c := CIDv1RawSHA256([]byte("dally2")); c == a {
		t.Fatalf("expected different bytes to produce different cids")
	}
}

func TestDigestMatchesSHA256(t *testing.T) {
	data := []byte("metadata bytes")
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	got, err := Digest(id)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	want := sha256.Sum256(data)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("digest mismatch: got %x want %x", got, want)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-cid"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	want := CIDv1RawSHA256([]byte("x"))
	got, err := Parse("  " + want + "\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.String() != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestFromDigestRoundTrip(t *testing.T) {
	id, err := CIDv1RawSHA256CID([]byte("round trip"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	digest, err := Digest(id)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	back, err := FromDigest(1, cid.Raw, multihash.SHA2_256, digest)
	if err != nil {
		t.Fatalf("FromDigest: %v", err)
	}
	if !back.Equals(id) {
		t.Fatalf("round trip mismatch: got %s want %s", back, id)
	}
}

func TestFromDigestV0RequiresDagPB(t *testing.T) {
	digest := make([]byte, 32)
	if _, err := FromDigest(0, cid.Raw, multihash.SHA2_256, digest); err == nil {
		t.Fatalf("expected error for CIDv0 with raw codec")
	}
	id, err := FromDigest(0, cid.DagProtobuf, multihash.SHA2_256, digest)
	if err != nil {
		t.Fatalf("FromDigest v0: %v", err)
	}
	if id.Version() != 0 {
		t.Fatalf("expected version 0, got %d", id.Version())
	}
}
