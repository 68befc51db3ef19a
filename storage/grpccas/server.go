package grpccas

import (
	"context"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
)

// Store is what the server exposes; *localfs.Store satisfies it.
type Store interface {
	storage.Uploader
	storage.Fetcher
	Has(id cid.Cid) bool
}

// Server exposes a Store over the BlockStore service.
type Server struct {
	UnimplementedBlockStoreServer
	Store Store
}

func (s *Server) Upload(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b := in.GetValue()
	if len(b) == 0 {
		return nil, toStatus(storage.ErrEmptyPayload)
	}
	expected, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	id, err := s.Store.Upload(ctx, b)
	if err != nil {
		return nil, toStatus(err)
	}
	if !id.Equals(expected) {
		return nil, toStatus(storage.ErrCIDMismatch)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, toStatus(storage.ErrInvalidCID)
	}
	b, err := s.Store.Fetch(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cid.Decode(in.GetValue())
	if err != nil || !id.Defined() {
		return nil, toStatus(storage.ErrInvalidCID)
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}
