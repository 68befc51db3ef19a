package ipfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
)

// fakeIPFS writes a shell script standing in for the Kubo CLI.
func fakeIPFS(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ipfs")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestUploadAcceptsMatchingCID(t *testing.T) {
	data := []byte("block bytes")
	want := cidutil.CIDv1RawSHA256(data)
	bin := fakeIPFS(t, "cat >/dev/null\necho "+want+"\n")

	got, err := New(Options{Bin: bin}).Upload(context.Background(), data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got.String() != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestUploadRejectsForeignCID(t *testing.T) {
	other := cidutil.CIDv1RawSHA256([]byte("something else"))
	bin := fakeIPFS(t, "cat >/dev/null\necho "+other+"\n")

	_, err := New(Options{Bin: bin}).Upload(context.Background(), []byte("block bytes"))
	if !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("got %v want ErrCIDMismatch", err)
	}
}

func TestUploadSurfacesStderr(t *testing.T) {
	bin := fakeIPFS(t, "echo 'Error: no IPFS repo found' >&2\nexit 1\n")

	_, err := New(Options{Bin: bin}).Upload(context.Background(), []byte("x"))
	if !errors.Is(err, storage.ErrUpload) {
		t.Fatalf("got %v want ErrUpload", err)
	}
}

func TestFetchNotFound(t *testing.T) {
	bin := fakeIPFS(t, "echo 'Error: block not found locally' >&2\nexit 1\n")
	id, err := cidutil.CIDv1RawSHA256CID([]byte("missing"))
	if err != nil {
		t.Fatalf("cid: %v", err)
	}
	if _, err := New(Options{Bin: bin}).Fetch(context.Background(), id); !storage.IsNotFound(err) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}
