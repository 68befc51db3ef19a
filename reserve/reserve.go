// Package reserve maps content identifiers onto Algorand addresses.
//
// An asset's reserve field is an ordinary 32-byte account address. Storing a
// CID's sha2-256 digest there lets the asset commit to off-chain content
// without carrying the CID on chain; an ARC-19 template URL tells indexers how
// to rebuild the CID from the address.
package reserve

import (
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/ipfs/go-cid"

	"truape.co/arcmint/cidutil"
)

// DigestSize is the length of an Algorand public key, and therefore the only
// digest length that fits in an address.
const DigestSize = 32

var (
	ErrInvalidCID     = errors.New("reserve: invalid cid")
	ErrDigestLength   = errors.New("reserve: digest must be 32 bytes")
	ErrInvalidAddress = errors.New("reserve: invalid address")
)

// FromCID derives the reserve address for a CID string.
func FromCID(s string) (string, error) {
	id, err := cidutil.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	return FromCIDValue(id)
}

// FromCIDValue derives the reserve address for a parsed CID.
func FromCIDValue(id cid.Cid) (string, error) {
	digest, err := cidutil.Digest(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	return FromDigest(digest)
}

// FromDigest encodes a bare 32-byte digest as an address: base32 without
// padding over digest || checksum, where checksum is the last four bytes of
// SHA-512/256(digest).
func FromDigest(digest []byte) (string, error) {
	if len(digest) != DigestSize {
		return "", fmt.Errorf("%w: got %d", ErrDigestLength, len(digest))
	}
	var addr types.Address
	copy(addr[:], digest)
	return addr.String(), nil
}

// Digest decodes an address back into the 32 bytes it carries, verifying the
// checksum.
func Digest(address string) ([]byte, error) {
	addr, err := types.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	out := make([]byte, DigestSize)
	copy(out, addr[:])
	return out, nil
}

// ToCID rebuilds a CID from a reserve address given the CID parameters the
// address was derived under (see package arc19).
func ToCID(address string, version uint64, codec uint64, hashCode uint64) (cid.Cid, error) {
	digest, err := Digest(address)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.FromDigest(version, codec, hashCode, digest)
}
