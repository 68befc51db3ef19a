package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/localfs"
)

type countingUploader struct {
	calls int
	err   error
}

func (c *countingUploader) Upload(_ context.Context, data []byte) (cid.Cid, error) {
	c.calls++
	if c.err != nil {
		return cid.Undef, c.err
	}
	return cidutil.CIDv1RawSHA256CID(data)
}

type memIndex map[string]cid.Cid

func (m memIndex) Lookup(sum string) (cid.Cid, bool) {
	id, ok := m[sum]
	return id, ok
}

func (m memIndex) Record(sum string, id cid.Cid, _ int) error {
	m[sum] = id
	return nil
}

func TestDedupSkipsKnownBytes(t *testing.T) {
	ctx := context.Background()
	up := &countingUploader{}
	d := &storage.Dedup{Uploader: up, Index: memIndex{}}

	first, err := d.Upload(ctx, []byte("image"))
	require.NoError(t, err)
	second, err := d.Upload(ctx, []byte("image"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, up.calls, "identical bytes must only be uploaded once")

	_, err = d.Upload(ctx, []byte("metadata"))
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestDedupDoesNotRecordFailures(t *testing.T) {
	idx := memIndex{}
	d := &storage.Dedup{Uploader: &countingUploader{err: storage.ErrUpload}, Index: idx}

	_, err := d.Upload(context.Background(), []byte("image"))
	assert.ErrorIs(t, err, storage.ErrUpload)
	assert.Empty(t, idx)
}

func TestReplicatingPrimaryIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	mirror, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	primary := &countingUploader{}

	r := storage.Replicating{Backends: []storage.Named{
		{Name: "primary", Uploader: primary},
		{Name: "mirror", Uploader: mirror},
	}}
	data := []byte("artifact")
	id, per, err := r.UploadAll(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, per["primary"], id)
	assert.Contains(t, per, "mirror")
	assert.True(t, mirror.Has(per["mirror"]))
}

func TestReplicatingMirrorFailureIsReported(t *testing.T) {
	r := storage.Replicating{Backends: []storage.Named{
		{Name: "primary", Uploader: &countingUploader{}},
		{Name: "mirror", Uploader: &countingUploader{err: errors.New("disk full")}},
	}}
	_, per, err := r.UploadAll(context.Background(), []byte("artifact"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mirror"`)
	assert.Contains(t, per, "primary")

	var me *storage.MirrorError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, per["primary"], me.Primary)
	assert.Equal(t, "mirror", me.Backend)
}

func TestReplicatingPrimaryFailureIsNotMirrorError(t *testing.T) {
	r := storage.Replicating{Backends: []storage.Named{
		{Name: "primary", Uploader: &countingUploader{err: storage.ErrUpload}},
		{Name: "mirror", Uploader: &countingUploader{}},
	}}
	_, err := r.Upload(context.Background(), []byte("artifact"))
	require.ErrorIs(t, err, storage.ErrUpload)
	var me *storage.MirrorError
	assert.False(t, errors.As(err, &me))
}

func TestDedupRecordsPrimaryWhenMirrorFails(t *testing.T) {
	ctx := context.Background()
	primary := &countingUploader{}
	mirror := &countingUploader{err: errors.New("mirror down")}
	idx := memIndex{}
	d := &storage.Dedup{
		Uploader: storage.Replicating{Backends: []storage.Named{
			{Name: "nftstorage", Uploader: primary},
			{Name: "localfs", Uploader: mirror},
		}},
		Index: idx,
	}

	data := []byte("image")
	_, err := d.Upload(ctx, data)
	require.Error(t, err)
	want, err := cidutil.CIDv1RawSHA256CID(data)
	require.NoError(t, err)
	assert.Equal(t, want, idx[storage.Sum(data)])

	mirror.err = nil
	got, err := d.Upload(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, primary.calls, "primary must not receive the same bytes twice")
}

func TestReplicatingRequiresBackends(t *testing.T) {
	_, err := storage.Replicating{}.Upload(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestFetchersFallback(t *testing.T) {
	ctx := context.Background()
	a, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	b, err := localfs.New(t.TempDir())
	require.NoError(t, err)

	id, err := b.Upload(ctx, []byte("only in b"))
	require.NoError(t, err)

	f := storage.Fetchers([]storage.Named{
		{Name: "net", Uploader: &countingUploader{}},
		{Name: "a", Uploader: a},
		{Name: "b", Uploader: b},
	})
	require.Len(t, f.Fetchers, 2)

	got, err := f.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("only in b"), got)

	missing, err := cidutil.CIDv1RawSHA256CID([]byte("nowhere"))
	require.NoError(t, err)
	_, err = f.Fetch(ctx, missing)
	assert.True(t, storage.IsNotFound(err))
}
