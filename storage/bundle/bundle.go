// Package bundle archives run artifacts as a deterministic TAR.
//
// Layout:
//
//	blocks/<cid>            artifact bytes, keyed by CIDv1 raw + sha2-256
//	manifests/<name>        run records (not content addressed)
//	index.json              block list and labels such as "image", "metadata"
//
// A bundle can be imported into any Uploader, typically a localfs store, to
// re-pin or inspect a finished run offline.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

type ExportOptions struct {
	// Labels maps names to CIDs in index.json. Every label must point at an
	// exported block.
	Labels map[string]cid.Cid
	// Manifests are written verbatim under manifests/.
	Manifests map[string][]byte
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes the blocks for ids, read from src, to w.
//
// Entry order is lexicographic and TAR headers are normalized, so equal
// inputs give equal bytes. Every block is checked against its CID.
func Export(ctx context.Context, w io.Writer, src storage.Fetcher, ids []cid.Cid, opts ExportOptions) error {
	if src == nil {
		return fmt.Errorf("bundle: nil fetcher")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	cidStrings := sortedKeys(uniq)

	tw := tar.NewWriter(w)
	abort := func(err error) error {
		_ = tw.Close()
		return err
	}

	blocks := make([]indexBlock, 0, len(cidStrings))
	for _, s := range cidStrings {
		id := uniq[s]
		b, err := src.Fetch(ctx, id)
		if err != nil {
			return abort(fmt.Errorf("bundle: fetch %s: %w", s, err))
		}
		got, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			return abort(err)
		}
		if !got.Equals(id) {
			return abort(storage.ErrCIDMismatch)
		}
		if err := writeFile(tw, "blocks/"+s, b); err != nil {
			return abort(err)
		}
		blocks = append(blocks, indexBlock{CID: s, Size: len(b)})
	}

	for _, name := range sortedKeys(opts.Manifests) {
		if cleanTarPath(name) != name || strings.Contains(name, "/") {
			return abort(fmt.Errorf("bundle: invalid manifest name %q", name))
		}
		if err := writeFile(tw, "manifests/"+name, opts.Manifests[name]); err != nil {
			return abort(err)
		}
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Blocks:    blocks,
		}
		for _, k := range sortedKeys(opts.Labels) {
			if k == "" {
				return abort(fmt.Errorf("bundle: empty label key"))
			}
			v := opts.Labels[k]
			if _, ok := uniq[v.String()]; !ok || !v.Defined() {
				return abort(fmt.Errorf("bundle: label %q: %w", k, storage.ErrInvalidCID))
			}
			idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
		}
		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			return abort(err)
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			return abort(err)
		}
	}

	return tw.Close()
}

type ImportOptions struct {
	// IgnoreUnknown skips unknown entries instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r and uploads every block to dst. It returns
// the imported CIDs in bundle order.
func Import(ctx context.Context, r io.Reader, dst storage.Uploader, opts ImportOptions) ([]cid.Cid, error) {
	if dst == nil {
		return nil, fmt.Errorf("bundle: nil uploader")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var out []cid.Cid

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == "index.json" || strings.HasPrefix(name, "manifests/") {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return out, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, derr := cid.Decode(strings.TrimPrefix(name, "blocks/"))
		if derr != nil || !id.Defined() {
			return out, storage.ErrInvalidCID
		}
		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return out, rerr
		}
		got, herr := cidutil.CIDv1RawSHA256CID(payload)
		if herr != nil {
			return out, herr
		}
		if !got.Equals(id) {
			return out, storage.ErrCIDMismatch
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return out, fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, perr := dst.Upload(ctx, payload)
		if perr != nil {
			return out, perr
		}
		if putID.Prefix().Codec == cid.Raw && !putID.Equals(id) {
			return out, storage.ErrCIDMismatch
		}
		out = append(out, id)
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
