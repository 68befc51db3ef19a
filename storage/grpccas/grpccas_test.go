package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/localfs"
	"truape.co/arcmint/storage/registry"
	"truape.co/arcmint/storage/testkit"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	store, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterBlockStoreServer(srv, &Server{Store: store})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPC_LocalFS_RoundTrip(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	payload := []byte("hello grpc block store")
	id, err := client.Upload(ctx, payload)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id.String() != cidutil.CIDv1RawSHA256(payload) {
		t.Fatalf("cid = %s, want raw sha2-256 cid", id)
	}
	ok, err := client.Has(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Has = %v, %v; want true", ok, err)
	}
	got, err := client.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPC_FetchMissing(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	id, err := cidutil.CIDv1RawSHA256CID([]byte("never uploaded"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Fetch(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Fetch err = %v, want ErrNotFound", err)
	}
	ok, err := client.Has(ctx, id)
	if err != nil || ok {
		t.Fatalf("Has = %v, %v; want false", ok, err)
	}
}

func TestGRPC_Conformance(t *testing.T) {
	testkit.RunUploaderConformance(t, func(t *testing.T) storage.Uploader {
		return startServer(t)
	})
}

func TestGRPC_Registered(t *testing.T) {
	b, ok := registry.Lookup("grpc")
	if !ok {
		t.Fatalf("grpc backend not registered")
	}
	if b.Offline {
		t.Fatalf("grpc backend should not be offline")
	}
	if _, err := registry.Open("grpc", registry.Settings{}); err == nil {
		t.Fatalf("expected error for missing target")
	}
	if _, err := registry.Open("grpc", registry.Settings{"target": "localhost:1", "timeout": "soon"}); err == nil {
		t.Fatalf("expected error for bad timeout")
	}
}
