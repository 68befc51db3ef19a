package arc19

import (
	"crypto/sha256"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/reserve"
)

func TestRawTemplateString(t *testing.T) {
	id, err := cidutil.CIDv1RawSHA256CID([]byte("metadata"))
	require.NoError(t, err)

	tpl, err := ForCID(id, SuffixARC3)
	require.NoError(t, err)
	assert.Equal(t, "template-ipfs://{ipfscid:1:raw:reserve:sha2-256}#arc3", tpl.String())
}

func TestRoundTripDagPB(t *testing.T) {
	digest := sha256.Sum256([]byte("unixfs node"))
	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	require.NoError(t, err)
	id := cid.NewCidV1(cid.DagProtobuf, mh)

	tpl, err := ForCID(id, SuffixARC3)
	require.NoError(t, err)
	assert.Equal(t, "dag-pb", tpl.Codec)

	addr, err := reserve.FromCIDValue(id)
	require.NoError(t, err)

	parsed, err := Parse(tpl.String())
	require.NoError(t, err)
	assert.Equal(t, tpl, parsed)

	back, err := parsed.Resolve(addr)
	require.NoError(t, err)
	assert.True(t, back.Equals(id))

	url, err := ResolveURL(tpl.String(), addr)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+id.String()+"#arc3", url)
}

func TestParseRejects(t *testing.T) {
	bad := []string{
		"ipfs://bafy",
		"template-ipfs://ipfscid:1:raw:reserve:sha2-256",
		"template-ipfs://{ipfscid:1:raw:reserve:sha2-256",
		"template-ipfs://{ipfscid:2:raw:reserve:sha2-256}",
		"template-ipfs://{ipfscid:1:git-raw:reserve:sha2-256}",
		"template-ipfs://{ipfscid:1:raw:manager:sha2-256}",
		"template-ipfs://{ipfscid:1:raw:reserve:sha3-256}",
		"template-ipfs://{cid:1:raw:reserve:sha2-256}",
	}
	for _, in := range bad {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidTemplate, in)
	}
}

func TestForCIDRejectsNonSHA256(t *testing.T) {
	mh, err := multihash.Sum([]byte("x"), multihash.SHA2_512, -1)
	require.NoError(t, err)
	_, err = ForCID(cid.NewCidV1(cid.Raw, mh), "")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}
