// Package arc19 builds and resolves ARC-19 template URLs of the form
//
//	template-ipfs://{ipfscid:<version>:<codec>:reserve:<hash>}[suffix]
//
// The template lets a mutable reserve address stand in for an IPFS CID.
package arc19

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"truape.co/arcmint/reserve"
)

const (
	Scheme      = "template-ipfs://"
	FieldName   = "reserve"
	HashSHA2256 = "sha2-256"

	// SuffixARC3 marks the referenced document as ARC-3 metadata.
	SuffixARC3 = "#arc3"
)

var ErrInvalidTemplate = errors.New("arc19: invalid template")

var codecs = map[string]uint64{
	"raw":      cid.Raw,
	"dag-pb":   cid.DagProtobuf,
	"dag-cbor": cid.DagCBOR,
}

// Template is the parsed {ipfscid:...} placeholder plus whatever follows it.
type Template struct {
	Version uint64
	Codec   string
	Field   string
	Hash    string
	Suffix  string
}

// ForCID returns the template that reproduces id from its reserve address.
func ForCID(id cid.Cid, suffix string) (Template, error) {
	if !id.Defined() {
		return Template{}, fmt.Errorf("%w: undefined cid", ErrInvalidTemplate)
	}
	pre := id.Prefix()
	if pre.MhType != multihash.SHA2_256 {
		return Template{}, fmt.Errorf("%w: unsupported multihash 0x%x", ErrInvalidTemplate, pre.MhType)
	}
	name := ""
	for n, code := range codecs {
		if code == pre.Codec {
			name = n
			break
		}
	}
	if name == "" {
		return Template{}, fmt.Errorf("%w: unsupported codec 0x%x", ErrInvalidTemplate, pre.Codec)
	}
	return Template{
		Version: pre.Version,
		Codec:   name,
		Field:   FieldName,
		Hash:    HashSHA2256,
		Suffix:  suffix,
	}, nil
}

func (t Template) String() string {
	return fmt.Sprintf("%s{ipfscid:%d:%s:%s:%s}%s", Scheme, t.Version, t.Codec, t.Field, t.Hash, t.Suffix)
}

// Parse reads a template URL.
func Parse(url string) (Template, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(url), Scheme)
	if !ok {
		return Template{}, fmt.Errorf("%w: missing %s scheme", ErrInvalidTemplate, Scheme)
	}
	if !strings.HasPrefix(rest, "{") {
		return Template{}, fmt.Errorf("%w: missing placeholder", ErrInvalidTemplate)
	}
	end := strings.IndexByte(rest, '}')
	if end < 0 {
		return Template{}, fmt.Errorf("%w: unterminated placeholder", ErrInvalidTemplate)
	}
	parts := strings.Split(rest[1:end], ":")
	if len(parts) != 5 || parts[0] != "ipfscid" {
		return Template{}, fmt.Errorf("%w: placeholder must be ipfscid:<version>:<codec>:<field>:<hash>", ErrInvalidTemplate)
	}
	version, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || version > 1 {
		return Template{}, fmt.Errorf("%w: version %q", ErrInvalidTemplate, parts[1])
	}
	if _, ok := codecs[parts[2]]; !ok {
		return Template{}, fmt.Errorf("%w: codec %q", ErrInvalidTemplate, parts[2])
	}
	if parts[3] != FieldName {
		return Template{}, fmt.Errorf("%w: field %q", ErrInvalidTemplate, parts[3])
	}
	if parts[4] != HashSHA2256 {
		return Template{}, fmt.Errorf("%w: hash %q", ErrInvalidTemplate, parts[4])
	}
	return Template{
		Version: version,
		Codec:   parts[2],
		Field:   parts[3],
		Hash:    parts[4],
		Suffix:  rest[end+1:],
	}, nil
}

// Resolve rebuilds the CID the template points at for the given reserve address.
func (t Template) Resolve(reserveAddress string) (cid.Cid, error) {
	code, ok := codecs[t.Codec]
	if !ok {
		return cid.Undef, fmt.Errorf("%w: codec %q", ErrInvalidTemplate, t.Codec)
	}
	return reserve.ToCID(reserveAddress, t.Version, code, multihash.SHA2_256)
}

// ResolveURL returns the ipfs:// URL for a template URL and reserve address,
// keeping any suffix.
func ResolveURL(url string, reserveAddress string) (string, error) {
	t, err := Parse(url)
	if err != nil {
		return "", err
	}
	id, err := t.Resolve(reserveAddress)
	if err != nil {
		return "", err
	}
	return "ipfs://" + id.String() + t.Suffix, nil
}
