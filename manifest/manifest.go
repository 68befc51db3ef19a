// Package manifest persists the outputs of each pipeline stage so an
// interrupted run can resume where it stopped.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/compose"
	"truape.co/arcmint/storage"
)

const (
	FileName = "manifest.json"
	Version  = 1
)

var (
	ErrNotFound       = errors.New("manifest: not found")
	ErrVersion        = errors.New("manifest: unsupported version")
	ErrParamsConflict = errors.New("manifest: run was started with different parameters")
)

// Upload is one content-addressed upload, keyed in Manifest.Uploads by the
// sha256 of its bytes.
type Upload struct {
	CID        string    `json:"cid" yaml:"cid"`
	Size       int       `json:"size" yaml:"size"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

// Artifact is a file produced by the run.
type Artifact struct {
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	CID    string `json:"cid,omitempty" yaml:"cid,omitempty"`
}

// Manifest is the on-disk record of a run. Zero values mean the stage has
// not completed.
type Manifest struct {
	Version   int            `json:"version" yaml:"version"`
	RunID     string         `json:"run_id" yaml:"run_id"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
	Index     int            `json:"index" yaml:"index"`
	Name      string         `json:"name" yaml:"name"`
	Params    compose.Params `json:"params" yaml:"params"`

	Uploads map[string]Upload `json:"uploads,omitempty" yaml:"uploads,omitempty"`

	Image    *Artifact `json:"image,omitempty" yaml:"image,omitempty"`
	Metadata *Artifact `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Reserve string `json:"reserve_address,omitempty" yaml:"reserve_address,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`

	TxID      string `json:"txid,omitempty" yaml:"txid,omitempty"`
	SignedTxn []byte `json:"signed_txn,omitempty" yaml:"-"`

	ConfirmedRound uint64 `json:"confirmed_round,omitempty" yaml:"confirmed_round,omitempty"`
	AssetID        uint64 `json:"asset_id,omitempty" yaml:"asset_id,omitempty"`

	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ storage.Index = (*Manifest)(nil)

// Path returns the manifest file path inside a run directory.
func Path(dir string) string { return filepath.Join(dir, FileName) }

// Load reads the manifest in dir. It returns ErrNotFound if the run has not
// started.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, Path(dir))
		}
		return nil, err
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", Path(dir), err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, m.Version)
	}
	if m.Uploads == nil {
		m.Uploads = map[string]Upload{}
	}
	m.dir = dir
	m.now = time.Now
	return m, nil
}

// Open loads the manifest in dir or starts a new one for index and params.
// An existing manifest for a different index or parameter set is rejected
// with ErrParamsConflict. created reports whether a new run was started.
func Open(dir string, index int, name string, params compose.Params) (m *Manifest, created bool, err error) {
	m, err = Load(dir)
	switch {
	case err == nil:
		if m.Index != index || !m.Params.Equal(params) {
			return nil, false, fmt.Errorf("%w: %s holds index %d %v", ErrParamsConflict, dir, m.Index, m.Params)
		}
		return m, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, err
	}
	m = &Manifest{
		Version: Version,
		RunID:   uuid.NewString(),
		Index:   index,
		Name:    name,
		Params:  params.Clone(),
		Uploads: map[string]Upload{},
		dir:     dir,
		now:     time.Now,
	}
	m.CreatedAt = m.now().UTC()
	if err := m.Save(); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Dir returns the run directory.
func (m *Manifest) Dir() string { return m.dir }

// SetClock replaces the time source used for timestamps.
func (m *Manifest) SetClock(now func() time.Time) { m.now = now }

// Save writes the manifest atomically: a temp file in the run directory is
// renamed over manifest.json.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manifest) saveLocked() error {
	if m.dir == "" {
		return errors.New("manifest: no run directory")
	}
	m.UpdatedAt = m.now().UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(m.dir, ".manifest-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, Path(m.dir)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Lookup implements storage.Index.
func (m *Manifest) Lookup(sha256Hex string) (cid.Cid, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Uploads[sha256Hex]
	if !ok {
		return cid.Undef, false
	}
	id, err := cidutil.Parse(u.CID)
	if err != nil {
		return cid.Undef, false
	}
	return id, true
}

// Record implements storage.Index and persists immediately.
func (m *Manifest) Record(sha256Hex string, id cid.Cid, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Uploads == nil {
		m.Uploads = map[string]Upload{}
	}
	m.Uploads[sha256Hex] = Upload{CID: id.String(), Size: size, UploadedAt: m.now().UTC()}
	return m.saveLocked()
}

// Update applies fn under the manifest lock and saves.
func (m *Manifest) Update(fn func(*Manifest)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
	return m.saveLocked()
}

// Stage names the furthest completed step, for status output.
func (m *Manifest) Stage() string {
	switch {
	case m.AssetID != 0:
		return "confirmed"
	case m.TxID != "":
		return "submitted"
	case m.Reserve != "":
		return "reserved"
	case m.Metadata != nil && m.Metadata.CID != "":
		return "metadata-uploaded"
	case m.Image != nil && m.Image.CID != "":
		return "image-uploaded"
	case m.Image != nil:
		return "composed"
	default:
		return "started"
	}
}
