// Package nftstorage uploads artifacts to the NFT.Storage HTTP API.
package nftstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/registry"
)

const (
	DefaultEndpoint = "https://api.nft.storage/upload"
	DefaultTimeout  = 60 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client posts raw bytes to an NFT.Storage compatible upload endpoint.
type Client struct {
	endpoint  string
	token     string
	userAgent string
	http      *http.Client
}

var _ storage.Uploader = (*Client)(nil)

type Options struct {
	Endpoint  string
	Token     string
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "nftstorage",
		Description: "NFT.Storage upload API (bearer token from the key file)",
		Open: func(s registry.Settings) (storage.Uploader, error) {
			opts := Options{
				Endpoint:  s["endpoint"],
				Token:     s["token"],
				UserAgent: s["user_agent"],
			}
			if raw := strings.TrimSpace(s["timeout"]); raw != "" {
				d, err := time.ParseDuration(raw)
				if err != nil {
					return nil, fmt.Errorf("nftstorage: invalid timeout %q: %w", raw, err)
				}
				opts.Timeout = d
			}
			return New(opts)
		},
	})
}

// New returns a client. A bearer token is required.
func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("nftstorage: bearer token is required")
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:  endpoint,
		token:     token,
		userAgent: strings.TrimSpace(opts.UserAgent),
		http:      hc,
	}, nil
}

// uploadResponse is the success body: {"ok":true,"value":{"cid":"..."}}.
type uploadResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// Upload performs a single blocking POST. There is no retry: a failed upload
// must be re-run by the caller.
func (c *Client) Upload(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(data) == 0 {
		return cid.Undef, storage.ErrEmptyPayload
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return cid.Undef, fmt.Errorf("nftstorage: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", storage.ErrUpload, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: read body: %v", storage.ErrUpload, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cid.Undef, decodeError(resp.StatusCode, body)
	}

	var res uploadResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", storage.ErrMalformedResponse, err)
	}
	if res.Value.CID == "" {
		return cid.Undef, fmt.Errorf("%w: missing value.cid", storage.ErrMalformedResponse)
	}
	id, err := cidutil.Parse(res.Value.CID)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", storage.ErrMalformedResponse, err)
	}
	return id, nil
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var res uploadResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Error != nil {
		apiErr.Name = res.Error.Name
		apiErr.Message = res.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
