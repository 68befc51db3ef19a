package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// MultiFetcher provides deterministic, ordered fallback across several fetchers.
//
// Lookup order is the slice order; callers MUST supply a fixed order.
type MultiFetcher struct {
	Fetchers []Fetcher
}

var _ Fetcher = MultiFetcher{}

func (m MultiFetcher) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	for _, f := range m.Fetchers {
		b, err := f.Fetch(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

// Fetchers returns the subset of backends that can also fetch, preserving order.
func Fetchers(backends []Named) MultiFetcher {
	var out MultiFetcher
	for _, b := range backends {
		if f, ok := b.Uploader.(Fetcher); ok {
			out.Fetchers = append(out.Fetchers, f)
		}
	}
	return out
}
