package pipeline

import (
	"fmt"
	"path/filepath"

	"truape.co/arcmint/config"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/registry"
)

// RunDir returns the directory holding the manifest and local artifacts.
// Dry runs use a sibling directory so their local CIDs never satisfy the
// upload index of a real run.
func RunDir(cfg config.Config, dryRun bool) string {
	dir := cfg.Path(cfg.RunDir)
	if dryRun {
		return filepath.Join(dir, "dry-run")
	}
	return dir
}

// StorageConfig returns the backend configuration for a run with paths
// resolved and the storage token injected. Dry runs write only to a localfs
// store inside the run directory.
func StorageConfig(cfg config.Config, token string, dryRun bool) (registry.Config, error) {
	if dryRun {
		out := registry.Config{
			Backends: []string{"localfs"},
			Settings: map[string]registry.Settings{
				"localfs": {"dir": filepath.Join(RunDir(cfg, true), "cas")},
			},
		}
		return out, out.OfflineOnly()
	}

	out := registry.Config{
		Backends: append([]string(nil), cfg.Storage.Backends...),
		Settings: make(map[string]registry.Settings, len(cfg.Storage.Backends)),
	}
	for _, name := range out.Backends {
		s := registry.Settings{}
		for k, v := range cfg.Storage.Settings[name] {
			s[k] = v
		}
		switch name {
		case "nftstorage":
			if s["token"] == "" {
				s["token"] = token
			}
			if s["user_agent"] == "" {
				s["user_agent"] = cfg.Chain.UserAgent
			}
		case "localfs":
			if s["dir"] == "" {
				s["dir"] = filepath.Join(RunDir(cfg, false), "cas")
			} else {
				s["dir"] = cfg.Path(s["dir"])
			}
		case "ipfs":
			if s["ipfs-path"] != "" {
				s["ipfs-path"] = cfg.Path(s["ipfs-path"])
			}
		}
		out.Settings[name] = s
	}
	return out, out.Validate()
}

// OpenStorage opens the configured backends and combines them: the first is
// authoritative and the rest are mirrors.
func OpenStorage(cfg config.Config, token string, dryRun bool) (storage.Replicating, error) {
	rc, err := StorageConfig(cfg, token, dryRun)
	if err != nil {
		return storage.Replicating{}, err
	}
	backends, err := rc.Open()
	if err != nil {
		return storage.Replicating{}, fmt.Errorf("open storage: %w", err)
	}
	return storage.Replicating{Backends: backends}, nil
}
