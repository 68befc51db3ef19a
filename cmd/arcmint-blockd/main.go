// Command arcmint-blockd serves a localfs block directory over gRPC so that
// several arcmint runs can share one content-addressed mirror.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"truape.co/arcmint/storage/grpccas"
	"truape.co/arcmint/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("arcmint-blockd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	dir := fs.String("dir", "", "block directory (required)")
	maxMsg := fs.Int("max-msg-bytes", 64<<20, "maximum message size in bytes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(errOut, "error: --dir is required")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(errOut, nil))

	store, err := localfs.New(*dir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.MaxRecvMsgSize(*maxMsg), grpc.MaxSendMsgSize(*maxMsg))
	grpccas.RegisterBlockStoreServer(s, &grpccas.Server{Store: store})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Info("block store listening", "addr", lis.Addr().String(), "dir", store.Root())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}
