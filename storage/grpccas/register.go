package grpccas

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "gRPC block store (e.g. arcmint-blockd serving a localfs directory)",
		Open: func(s registry.Settings) (storage.Uploader, error) {
			target := strings.TrimSpace(s["target"])
			if target == "" {
				return nil, fmt.Errorf("grpc: target is required")
			}
			opts := DialOptions{}
			if raw := strings.TrimSpace(s["timeout"]); raw != "" {
				d, err := time.ParseDuration(raw)
				if err != nil {
					return nil, fmt.Errorf("grpc: invalid timeout %q: %w", raw, err)
				}
				opts.Timeout = d
			}
			if raw := strings.TrimSpace(s["max_msg_bytes"]); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("grpc: invalid max_msg_bytes %q", raw)
				}
				opts.MaxMsgBytes = n
			}
			return Dial(target, opts)
		},
	})
}
