// Package config loads arcmint run configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"truape.co/arcmint/compose"
	"truape.co/arcmint/storage/registry"
)

const (
	DefaultFileName   = "arcmint.toml"
	DefaultLogLevel   = "info"
	DefaultKeyFile    = "keys.json"
	DefaultNodeURL    = "https://node.algoexplorerapi.io"
	DefaultUserAgent  = "arcmint"
	DefaultFee        = 1000
	DefaultMaxRounds  = 20
	DefaultConfirmFor = 2 * time.Minute

	// Ledger limits on asset parameters.
	MaxUnitNameBytes  = 8
	MaxAssetNameBytes = 32

	EnvNodeURL  = "ARCMINT_NODE_URL"
	EnvKeyFile  = "ARCMINT_KEY_FILE"
	EnvRunDir   = "ARCMINT_RUN_DIR"
	EnvLogLevel = "ARCMINT_LOG_LEVEL"
)

var ErrInvalid = errors.New("config: invalid")

// Duration decodes TOML strings such as "90s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// CollectionConfig names the piece being minted.
type CollectionConfig struct {
	Index           int    `toml:"index"`
	ImagePrefix     string `toml:"image_prefix"`
	NameFormat      string `toml:"name_format"`
	UnitNameFormat  string `toml:"unit_name_format"`
	AssetNameFormat string `toml:"asset_name_format"`
	Description     string `toml:"description"`
}

type ComposeConfig struct {
	AssetsDir string   `toml:"assets_dir"`
	ImagesDir string   `toml:"images_dir"`
	Layers    []string `toml:"layers"`
}

type ChainConfig struct {
	NodeURL            string `toml:"node_url"`
	NodeToken          string `toml:"node_token"`
	UserAgent          string `toml:"user_agent"`
	Fee                uint64 `toml:"fee"`
	CommitMetadataHash bool   `toml:"commit_metadata_hash"`
}

type ConfirmConfig struct {
	MaxRounds uint64   `toml:"max_rounds"`
	Timeout   Duration `toml:"timeout"`
}

// Config is the full run configuration.
type Config struct {
	LogLevel   string           `toml:"log_level"`
	KeyFile    string           `toml:"key_file"`
	RunDir     string           `toml:"run_dir"`
	Collection CollectionConfig `toml:"collection"`
	Traits     compose.Params   `toml:"traits"`
	Compose    ComposeConfig    `toml:"compose"`
	Storage    registry.Config  `toml:"storage"`
	Chain      ChainConfig      `toml:"chain"`
	Confirm    ConfirmConfig    `toml:"confirm"`

	// BaseDir anchors relative paths. Load sets it to the config file's
	// directory.
	BaseDir string `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		KeyFile:  DefaultKeyFile,
		RunDir:   "runs",
		Collection: CollectionConfig{
			Index:           1,
			ImagePrefix:     "piece",
			NameFormat:      "PIECE%03d",
			UnitNameFormat:  "PIECE%03d",
			AssetNameFormat: "Piece %03d",
		},
		Traits: compose.Params{},
		Compose: ComposeConfig{
			AssetsDir: "assets",
			ImagesDir: "images",
		},
		Storage: registry.Config{
			Backends: []string{"nftstorage"},
			Settings: map[string]registry.Settings{},
		},
		Chain: ChainConfig{
			NodeURL:   DefaultNodeURL,
			UserAgent: DefaultUserAgent,
			Fee:       DefaultFee,
		},
		Confirm: ConfirmConfig{
			MaxRounds: DefaultMaxRounds,
			Timeout:   Duration(DefaultConfirmFor),
		},
	}
}

// Load reads path over the defaults and applies ARCMINT_* environment
// overrides. A missing file is an error; the operator always names one.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}
	cfg.BaseDir = filepath.Dir(abs)
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overlays environment overrides. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Chain.NodeURL, EnvNodeURL)
	set(&c.KeyFile, EnvKeyFile)
	set(&c.RunDir, EnvRunDir)
	set(&c.LogLevel, EnvLogLevel)
}

// Validate reports the first problem that would stop a run.
func (c Config) Validate() error {
	if err := (compose.Plan{Layers: c.Compose.Layers}).Validate(c.Traits); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(c.Compose.Layers) == 0 {
		return fmt.Errorf("%w: compose.layers is empty", ErrInvalid)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, name := range c.Storage.Backends {
		if _, ok := registry.Lookup(name); !ok {
			return fmt.Errorf("%w: unknown storage backend %q (known: %s)", ErrInvalid, name, strings.Join(registry.Names(), ", "))
		}
	}
	if c.Chain.Fee == 0 {
		return fmt.Errorf("%w: chain.fee must be positive", ErrInvalid)
	}
	if strings.TrimSpace(c.Chain.NodeURL) == "" {
		return fmt.Errorf("%w: chain.node_url is required", ErrInvalid)
	}
	if c.Collection.Index < 0 {
		return fmt.Errorf("%w: collection.index must not be negative", ErrInvalid)
	}
	if strings.TrimSpace(c.Collection.NameFormat) == "" {
		return fmt.Errorf("%w: collection.name_format is required", ErrInvalid)
	}
	if n := len(c.UnitName()); n > MaxUnitNameBytes {
		return fmt.Errorf("%w: unit name %q is %d bytes, max %d", ErrInvalid, c.UnitName(), n, MaxUnitNameBytes)
	}
	if n := len(c.AssetName()); n > MaxAssetNameBytes {
		return fmt.Errorf("%w: asset name %q is %d bytes, max %d", ErrInvalid, c.AssetName(), n, MaxAssetNameBytes)
	}
	if c.Confirm.MaxRounds == 0 && c.Confirm.Timeout <= 0 {
		return fmt.Errorf("%w: confirm needs max_rounds or timeout", ErrInvalid)
	}
	return nil
}

// Path resolves p against BaseDir unless it is already absolute.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// Name formats the ARC-3 metadata name for the configured index.
func (c Config) Name() string { return fmt.Sprintf(c.Collection.NameFormat, c.Collection.Index) }

func (c Config) UnitName() string {
	return fmt.Sprintf(c.Collection.UnitNameFormat, c.Collection.Index)
}

func (c Config) AssetName() string {
	return fmt.Sprintf(c.Collection.AssetNameFormat, c.Collection.Index)
}

// ImageName is the file name of the composited image, e.g. dally18.png.
func (c Config) ImageName() string {
	return fmt.Sprintf("%s%d.png", c.Collection.ImagePrefix, c.Collection.Index)
}

// Plan returns the compositing plan with paths resolved.
func (c Config) Plan() compose.Plan {
	return compose.Plan{AssetsDir: c.Path(c.Compose.AssetsDir), Layers: append([]string(nil), c.Compose.Layers...)}
}
