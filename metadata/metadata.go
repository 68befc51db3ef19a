// Package metadata renders ARC-3 token metadata.
package metadata

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/compose"
)

const (
	StandardARC3 = "arc3"
	MimePNG      = "image/png"
)

var ErrIncomplete = errors.New("metadata: incomplete record")

// Record is the ARC-3 JSON document uploaded after the image.
type Record struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Standard       string         `json:"standard"`
	Decimals       int            `json:"decimals"`
	Image          string         `json:"image"`
	ImageMimetype  string         `json:"image_mimetype"`
	ImageIntegrity string         `json:"image_integrity"`
	Properties     compose.Params `json:"properties"`
}

// Input is everything needed to describe one minted piece.
type Input struct {
	Name        string
	Description string
	ImageCID    cid.Cid
	ImageBytes  []byte
	Mimetype    string
	Properties  compose.Params
}

// Build assembles the record. The integrity hash is computed over the exact
// image bytes that were uploaded.
func Build(in Input) (Record, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Record{}, fmt.Errorf("%w: name is empty", ErrIncomplete)
	}
	if !in.ImageCID.Defined() {
		return Record{}, fmt.Errorf("%w: image cid is undefined", ErrIncomplete)
	}
	if len(in.ImageBytes) == 0 {
		return Record{}, fmt.Errorf("%w: image bytes are empty", ErrIncomplete)
	}
	mime := in.Mimetype
	if mime == "" {
		mime = MimePNG
	}
	return Record{
		Name:           in.Name,
		Description:    in.Description,
		Standard:       StandardARC3,
		Decimals:       0,
		Image:          "ipfs://" + in.ImageCID.String(),
		ImageMimetype:  mime,
		ImageIntegrity: Integrity(in.ImageBytes),
		Properties:     in.Properties.Clone(),
	}, nil
}

// Integrity returns the SRI-style digest "sha256-<base64>" of data.
func Integrity(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:])
}

// Marshal renders the record as JSON. Map keys are sorted by encoding/json,
// so equal records render to equal bytes.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Hash returns the sha256 of the rendered document, suitable for an asset's
// metadata hash field.
func Hash(doc []byte) [32]byte {
	return sha256.Sum256(doc)
}
