package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/compose"
)

func sampleInput(t *testing.T) Input {
	t.Helper()
	img := []byte("png bytes")
	id, err := cidutil.CIDv1RawSHA256CID(img)
	require.NoError(t, err)
	return Input{
		Name:        "DALLY018",
		Description: "Dynamic Dally - Configurable NFT project",
		ImageCID:    id,
		ImageBytes:  img,
		Properties:  compose.Params{"background": "blue", "bow": "green"},
	}
}

func TestBuildFields(t *testing.T) {
	in := sampleInput(t)
	rec, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, "arc3", rec.Standard)
	assert.Equal(t, 0, rec.Decimals)
	assert.Equal(t, "ipfs://"+in.ImageCID.String(), rec.Image)
	assert.Equal(t, "image/png", rec.ImageMimetype)
	assert.Equal(t, Integrity(in.ImageBytes), rec.ImageIntegrity)
	assert.Equal(t, in.Properties, rec.Properties)
}

func TestIntegrityKnownVector(t *testing.T) {
	// sha256("") in base64.
	assert.Equal(t, "sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", Integrity(nil))
}

func TestMarshalShape(t *testing.T) {
	rec, err := Build(sampleInput(t))
	require.NoError(t, err)
	doc, err := rec.Marshal()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(doc, &got))
	for _, key := range []string{"name", "description", "standard", "decimals", "image", "image_mimetype", "image_integrity", "properties"} {
		assert.Contains(t, got, key)
	}
	assert.Equal(t, map[string]any{"background": "blue", "bow": "green"}, got["properties"])

	again, err := rec.Marshal()
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestBuildDoesNotAliasProperties(t *testing.T) {
	in := sampleInput(t)
	rec, err := Build(in)
	require.NoError(t, err)
	in.Properties["bow"] = "red"
	assert.Equal(t, "green", rec.Properties["bow"])
}

func TestBuildRejectsIncomplete(t *testing.T) {
	in := sampleInput(t)
	in.Name = " "
	_, err := Build(in)
	assert.ErrorIs(t, err, ErrIncomplete)

	in = sampleInput(t)
	in.ImageBytes = nil
	_, err = Build(in)
	assert.ErrorIs(t, err, ErrIncomplete)
}
