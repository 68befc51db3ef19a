package cidutil

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse decodes a CID string as returned by a storage backend.
// Surrounding whitespace is ignored.
func Parse(s string) (cid.Cid, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return cid.Undef, fmt.Errorf("cidutil: empty cid")
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: decode %q: %w", s, err)
	}
	if !id.Defined() {
		return cid.Undef, fmt.Errorf("cidutil: undefined cid %q", s)
	}
	return id, nil
}

// Digest returns the raw hash digest carried by id's multihash, without the
// function-code and length prefix.
func Digest(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, fmt.Errorf("cidutil: undefined cid")
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return nil, fmt.Errorf("cidutil: decode multihash: %w", err)
	}
	return dec.Digest, nil
}

// FromDigest rebuilds a CID from a bare digest. hashCode is a multihash
// function code such as multihash.SHA2_256.
func FromDigest(version uint64, codec uint64, hashCode uint64, digest []byte) (cid.Cid, error) {
	mh, err := multihash.Encode(digest, hashCode)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: encode multihash: %w", err)
	}
	switch version {
	case 0:
		if codec != cid.DagProtobuf || hashCode != multihash.SHA2_256 {
			return cid.Undef, fmt.Errorf("cidutil: CIDv0 requires dag-pb and sha2-256")
		}
		return cid.NewCidV0(mh), nil
	case 1:
		return cid.NewCidV1(codec, mh), nil
	default:
		return cid.Undef, fmt.Errorf("cidutil: unsupported cid version %d", version)
	}
}
