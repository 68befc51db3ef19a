package registry

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truape.co/arcmint/storage"
)

type stubUploader struct{ settings Settings }

func (stubUploader) Upload(context.Context, []byte) (cid.Cid, error) { return cid.Undef, nil }

func init() {
	MustRegister(Backend{
		Name:    "test-offline",
		Offline: true,
		Open: func(s Settings) (storage.Uploader, error) {
			return stubUploader{settings: s}, nil
		},
	})
	MustRegister(Backend{
		Name: "test-online",
		Open: func(s Settings) (storage.Uploader, error) {
			return stubUploader{settings: s}, nil
		},
	})
}

func TestRegisterRejectsInvalid(t *testing.T) {
	assert.Error(t, Register(Backend{}))
	assert.Error(t, Register(Backend{Name: "no-open"}))
	assert.Error(t, Register(Backend{Name: "test-offline", Open: func(Settings) (storage.Uploader, error) { return nil, nil }}))
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("does-not-exist", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test-offline")
}

func TestConfigOpenPreservesOrderAndSettings(t *testing.T) {
	cfg := Config{
		Backends: []string{"test-online", "test-offline"},
		Settings: map[string]Settings{"test-offline": {"dir": "cas"}},
	}
	named, err := cfg.Open()
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "test-online", named[0].Name)
	assert.Equal(t, "test-offline", named[1].Name)
	assert.Equal(t, "cas", named[1].Uploader.(stubUploader).settings["dir"])
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Backends: []string{""}}.Validate())
	assert.Error(t, Config{Backends: []string{"a", "a"}}.Validate())
	assert.NoError(t, Config{Backends: []string{"a", "b"}}.Validate())
}

func TestOfflineOnly(t *testing.T) {
	assert.NoError(t, Config{Backends: []string{"test-offline"}}.OfflineOnly())
	assert.Error(t, Config{Backends: []string{"test-offline", "test-online"}}.OfflineOnly())
	assert.Error(t, Config{Backends: []string{"nope"}}.OfflineOnly())
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
