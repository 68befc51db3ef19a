package reserve

import (
	"crypto/sha256"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truape.co/arcmint/cidutil"
)

func cidForDigest(t *testing.T, codec uint64, digest []byte) cid.Cid {
	t.Helper()
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	require.NoError(t, err)
	return cid.NewCidV1(codec, mh)
}

func TestZeroDigestGolden(t *testing.T) {
	id := cidForDigest(t, cid.Raw, make([]byte, 32))

	addr, err := FromCID(id.String())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "zero_digest", []byte(addr))
}

func TestCodecDoesNotAffectAddress(t *testing.T) {
	digest := sha256.Sum256([]byte("metadata.json"))
	raw := cidForDigest(t, cid.Raw, digest[:])
	dagpb := cidForDigest(t, cid.DagProtobuf, digest[:])

	a, err := FromCID(raw.String())
	require.NoError(t, err)
	b, err := FromCID(dagpb.String())
	require.NoError(t, err)
	assert.Equal(t, a, b, "only the digest is committed to")
}

func TestDeterministicAndDistinct(t *testing.T) {
	a := cidutil.CIDv1RawSHA256([]byte("image"))
	b := cidutil.CIDv1RawSHA256([]byte("metadata"))

	first, err := FromCID(a)
	require.NoError(t, err)
	again, err := FromCID(a)
	require.NoError(t, err)
	other, err := FromCID(b)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 58)
}

func TestCIDv0(t *testing.T) {
	digest := sha256.Sum256([]byte("legacy"))
	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	require.NoError(t, err)
	v0 := cid.NewCidV0(mh)

	addr, err := FromCID(v0.String())
	require.NoError(t, err)
	want, err := FromDigest(digest[:])
	require.NoError(t, err)
	assert.Equal(t, want, addr)
}

func TestRejectsInvalidInput(t *testing.T) {
	_, err := FromCID("definitely not a cid")
	assert.ErrorIs(t, err, ErrInvalidCID)

	short, err := multihash.Sum([]byte("x"), multihash.SHA2_256, 16)
	require.NoError(t, err)
	_, err = FromCID(cid.NewCidV1(cid.Raw, short).String())
	assert.ErrorIs(t, err, ErrDigestLength)

	_, err = FromDigest(make([]byte, 31))
	assert.ErrorIs(t, err, ErrDigestLength)
}

func TestToCIDRoundTrip(t *testing.T) {
	id, err := cidutil.CIDv1RawSHA256CID([]byte("arc19"))
	require.NoError(t, err)
	addr, err := FromCIDValue(id)
	require.NoError(t, err)

	back, err := ToCID(addr, 1, cid.Raw, multihash.SHA2_256)
	require.NoError(t, err)
	assert.True(t, back.Equals(id))
}

func TestDigestRejectsBadChecksum(t *testing.T) {
	addr, err := FromDigest(make([]byte, 32))
	require.NoError(t, err)
	tampered := addr[:len(addr)-1] + "A"
	if tampered == addr {
		tampered = addr[:len(addr)-1] + "B"
	}
	_, err = Digest(tampered)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
