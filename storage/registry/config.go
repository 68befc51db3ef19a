package registry

import (
	"errors"
	"fmt"

	"truape.co/arcmint/storage"
)

// Config selects the storage backends for a run.
//
// Backends are ordered: the first one is authoritative and its CIDs are the
// ones embedded in metadata and used for the reserve address. The rest are
// mirrors (see storage.Replicating).
//
// Example:
//
//	[storage]
//	backends = ["nftstorage", "localfs"]
//	[storage.settings.nftstorage]
//	endpoint = "https://api.nft.storage/upload"
//	[storage.settings.localfs]
//	dir = "runs/dally018/cas"
type Config struct {
	Backends []string            `toml:"backends"`
	Settings map[string]Settings `toml:"settings"`
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("registry: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, name := range c.Backends {
		if name == "" {
			return errors.New("registry: backend name is required")
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("registry: duplicate backend %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Open opens every configured backend, in order.
func (c Config) Open() ([]storage.Named, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make([]storage.Named, 0, len(c.Backends))
	for _, name := range c.Backends {
		u, err := Open(name, c.Settings[name])
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Named{Name: name, Uploader: u})
	}
	return out, nil
}

// OfflineOnly reports an error naming the first configured backend that
// needs network access.
func (c Config) OfflineOnly() error {
	for _, name := range c.Backends {
		b, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("registry: unknown backend %q", name)
		}
		if !b.Offline {
			return fmt.Errorf("registry: backend %q requires network access", name)
		}
	}
	return nil
}
