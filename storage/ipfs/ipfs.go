package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/registry"
)

// Store is a content-addressed store backed by the local Kubo "ipfs" CLI.
//
// Blocks are written raw (CIDv1 raw + sha2-256), so the CID returned for a
// payload is the same one the localfs backend computes. Publishing to the
// wider network is left to the operator's node (pinning, reproviding).
type Store struct {
	bin string
	env []string
	pin bool
}

var (
	_ storage.Uploader = (*Store)(nil)
	_ storage.Fetcher  = (*Store)(nil)
)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Pin pins uploaded blocks in the local repo.
	Pin bool
}

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo node via the ipfs CLI",
		Offline:     true,
		Open: func(s registry.Settings) (storage.Uploader, error) {
			opts := Options{Bin: s["bin"], Pin: true}
			if p := strings.TrimSpace(s["ipfs-path"]); p != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+p)
			}
			if raw := strings.TrimSpace(s["pin"]); raw != "" {
				v, err := strconv.ParseBool(raw)
				if err != nil {
					return nil, fmt.Errorf("ipfs: invalid pin setting %q", raw)
				}
				opts.Pin = v
			}
			return New(opts), nil
		},
	})
}

func New(opts Options) *Store {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &Store{bin: bin, env: opts.Env, pin: opts.Pin}
}

func (s *Store) Upload(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(data) == 0 {
		return cid.Undef, storage.ErrEmptyPayload
	}
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}

	out, err := s.run(ctx, data,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype=sha2-256",
		"--mhlen=32",
		"--pin="+strconv.FormatBool(s.pin),
		"/dev/stdin",
	)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", storage.ErrUpload, err)
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: ipfs block put output: %v", storage.ErrMalformedResponse, err)
	}
	if got.String() != id.String() {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (s *Store) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	out, err := s.run(ctx, nil, "block", "get", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	got, herr := cidutil.CIDv1RawSHA256CID(out)
	if herr != nil {
		return nil, herr
	}
	if got.String() != id.String() {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (s *Store) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.bin, args...)
	if s.env != nil {
		cmd.Env = s.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if msg == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", msg)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "block not found")
}
