// Package pipeline runs the mint as a sequence of resumable stages:
// compose, upload image, upload metadata, derive reserve, submit, confirm.
//
// Every stage output is written to the run manifest before the next stage
// starts. Re-running against the same run directory skips finished stages,
// never uploads identical bytes twice and never builds a second transaction
// once one has been signed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ipfs/go-cid"

	"truape.co/arcmint/arc19"
	"truape.co/arcmint/chain"
	"truape.co/arcmint/compose"
	"truape.co/arcmint/config"
	"truape.co/arcmint/keys"
	"truape.co/arcmint/manifest"
	"truape.co/arcmint/metadata"
	"truape.co/arcmint/reserve"
	"truape.co/arcmint/storage"
)

// MetadataFileName is the copy of the uploaded metadata kept in the run
// directory.
const MetadataFileName = "metadata.json"

type Deps struct {
	Config   config.Config
	Uploader storage.Uploader
	// Node may be nil for dry runs.
	Node    chain.Node
	Account keys.Account
	Clock   chain.Clock
	Logger  *slog.Logger
	// DryRun stops after the reserve address is derived.
	DryRun bool
}

// Result summarizes a run.
type Result struct {
	RunID       string
	RunDir      string
	ImagePath   string
	ImageCID    string
	MetadataCID string
	Reserve     string
	URL         string
	TxID        string
	Round       uint64
	AssetID     uint64
	DryRun      bool
}

// Run executes or resumes the pipeline.
func Run(ctx context.Context, d Deps) (Result, error) {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	cfg := d.Config
	if d.Uploader == nil {
		return Result{}, errors.New("pipeline: uploader is required")
	}
	if !d.DryRun && d.Node == nil {
		return Result{}, errors.New("pipeline: node is required")
	}

	dir := RunDir(cfg, d.DryRun)
	m, created, err := manifest.Open(dir, cfg.Collection.Index, cfg.Name(), cfg.Traits)
	if err != nil {
		if errors.Is(err, manifest.ErrParamsConflict) {
			err = fmt.Errorf("%w: %v", ErrParamsChanged, err)
		}
		return Result{}, fail(StageManifest, err)
	}
	log = log.With("run_id", m.RunID)
	log.Info("run opened", "dir", dir, "new", created, "stage", m.Stage(), "dry_run", d.DryRun)

	res := Result{RunID: m.RunID, RunDir: dir, DryRun: d.DryRun}
	if m.AssetID != 0 {
		fill(&res, m)
		log.Info("run already confirmed", "asset_id", m.AssetID, "round", m.ConfirmedRound)
		return res, nil
	}

	png, imagePath, err := composeStage(cfg, m, log)
	if err != nil {
		return res, fail(StageCompose, err)
	}
	res.ImagePath = imagePath

	up := &storage.Dedup{Uploader: d.Uploader, Index: m, Logger: log}

	imageCID, err := uploadImage(ctx, up, m, png, log)
	if err != nil {
		return res, fail(StageUploadImage, err)
	}
	res.ImageCID = imageCID.String()

	doc, metaCID, err := uploadMetadata(ctx, up, cfg, m, imageCID, png, log)
	if err != nil {
		return res, fail(StageUploadMetadata, err)
	}
	res.MetadataCID = metaCID.String()

	addr, url, err := reserveStage(m, metaCID, log)
	if err != nil {
		return res, fail(StageReserve, err)
	}
	res.Reserve, res.URL = addr, url

	if d.DryRun {
		log.Info("dry run complete, nothing submitted", "reserve", addr, "url", url)
		return res, nil
	}

	txid, minted, err := submitStage(ctx, d, cfg, m, doc, addr, url, log)
	res.TxID = txid
	if err != nil {
		return res, fail(StageSubmit, err)
	}

	var conf chain.Confirmation
	if minted != nil {
		conf = *minted
	} else {
		conf, err = chain.WaitForConfirmation(ctx, d.Node, txid, chain.Policy{
			MaxRounds: cfg.Confirm.MaxRounds,
			Timeout:   time.Duration(cfg.Confirm.Timeout),
			Clock:     d.Clock,
		})
		if err != nil {
			return res, fail(StageConfirm, err)
		}
	}
	if err := m.Update(func(m *manifest.Manifest) {
		m.ConfirmedRound = conf.Round
		m.AssetID = conf.AssetID
	}); err != nil {
		return res, fail(StageConfirm, err)
	}
	res.Round, res.AssetID = conf.Round, conf.AssetID
	log.Info("asset confirmed", "txid", txid, "round", conf.Round, "asset_id", conf.AssetID)
	return res, nil
}

// ComposeImage builds and writes the configured image, returning the PNG
// bytes and the written path.
func ComposeImage(cfg config.Config) ([]byte, string, error) {
	img, err := compose.Composite(cfg.Plan(), cfg.Traits)
	if err != nil {
		return nil, "", err
	}
	data, err := compose.EncodePNG(img)
	if err != nil {
		return nil, "", err
	}
	path, err := compose.WriteFile(cfg.Path(cfg.Compose.ImagesDir), cfg.ImageName(), data)
	if err != nil {
		return nil, "", err
	}
	return data, path, nil
}

func composeStage(cfg config.Config, m *manifest.Manifest, log *slog.Logger) ([]byte, string, error) {
	if m.Image != nil && m.Image.CID != "" {
		// Already uploaded: the bytes on disk must be the ones recorded.
		data, err := os.ReadFile(m.Image.Path)
		if err == nil && storage.Sum(data) == m.Image.SHA256 {
			log.Debug("compose skipped, image already uploaded", "path", m.Image.Path)
			return data, m.Image.Path, nil
		}
	}
	data, path, err := ComposeImage(cfg)
	if err != nil {
		return nil, "", err
	}
	sum := storage.Sum(data)
	if m.Image != nil && m.Image.SHA256 != "" && m.Image.SHA256 != sum {
		return nil, "", fmt.Errorf("%w: image sha256 %s, recorded %s", ErrParamsChanged, sum, m.Image.SHA256)
	}
	if err := m.Update(func(m *manifest.Manifest) {
		if m.Image == nil {
			m.Image = &manifest.Artifact{}
		}
		m.Image.Path = path
		m.Image.SHA256 = sum
	}); err != nil {
		return nil, "", err
	}
	log.Info("image composed", "path", path, "sha256", sum, "bytes", len(data))
	return data, path, nil
}

func uploadImage(ctx context.Context, up storage.Uploader, m *manifest.Manifest, png []byte, log *slog.Logger) (cid.Cid, error) {
	id, err := up.Upload(ctx, png)
	if err != nil {
		return cid.Undef, err
	}
	if err := m.Update(func(m *manifest.Manifest) { m.Image.CID = id.String() }); err != nil {
		return cid.Undef, err
	}
	log.Info("image uploaded", "cid", id.String())
	return id, nil
}

func uploadMetadata(ctx context.Context, up storage.Uploader, cfg config.Config, m *manifest.Manifest, imageCID cid.Cid, png []byte, log *slog.Logger) ([]byte, cid.Cid, error) {
	rec, err := metadata.Build(metadata.Input{
		Name:        cfg.Name(),
		Description: cfg.Collection.Description,
		ImageCID:    imageCID,
		ImageBytes:  png,
		Mimetype:    metadata.MimePNG,
		Properties:  cfg.Traits,
	})
	if err != nil {
		return nil, cid.Undef, err
	}
	doc, err := rec.Marshal()
	if err != nil {
		return nil, cid.Undef, err
	}
	sum := storage.Sum(doc)
	if m.Metadata != nil && m.Metadata.SHA256 != "" && m.Metadata.SHA256 != sum {
		return nil, cid.Undef, fmt.Errorf("%w: metadata sha256 %s, recorded %s", ErrParamsChanged, sum, m.Metadata.SHA256)
	}
	path, err := compose.WriteFile(m.Dir(), MetadataFileName, doc)
	if err != nil {
		return nil, cid.Undef, err
	}
	id, err := up.Upload(ctx, doc)
	if err != nil {
		return nil, cid.Undef, err
	}
	if err := m.Update(func(m *manifest.Manifest) {
		m.Metadata = &manifest.Artifact{Path: path, SHA256: sum, CID: id.String()}
	}); err != nil {
		return nil, cid.Undef, err
	}
	log.Info("metadata uploaded", "cid", id.String(), "integrity", rec.ImageIntegrity)
	return doc, id, nil
}

// reserveStage derives the reserve address from the metadata CID, never the
// image CID, and the ARC-19 URL that resolves back to it.
func reserveStage(m *manifest.Manifest, metaCID cid.Cid, log *slog.Logger) (string, string, error) {
	addr, err := reserve.FromCIDValue(metaCID)
	if err != nil {
		return "", "", err
	}
	tmpl, err := arc19.ForCID(metaCID, arc19.SuffixARC3)
	if err != nil {
		return "", "", err
	}
	url := tmpl.String()
	if back, err := tmpl.Resolve(addr); err != nil || !back.Equals(metaCID) {
		return "", "", fmt.Errorf("reserve %s does not resolve to %s", addr, metaCID)
	}
	if m.TxID != "" && m.Reserve != "" && m.Reserve != addr {
		return "", "", fmt.Errorf("%w: derived %s, submitted %s", ErrReserveMismatch, addr, m.Reserve)
	}
	if err := m.Update(func(m *manifest.Manifest) {
		m.Reserve = addr
		m.URL = url
	}); err != nil {
		return "", "", err
	}
	log.Info("reserve derived", "cid", metaCID.String(), "address", addr, "url", url)
	return addr, url, nil
}

// submitStage returns the txid to wait for. A non-nil Confirmation means an
// earlier transaction already created the asset.
func submitStage(ctx context.Context, d Deps, cfg config.Config, m *manifest.Manifest, doc []byte, addr, url string, log *slog.Logger) (string, *chain.Confirmation, error) {
	minter := &chain.Minter{Node: d.Node, Fee: cfg.Chain.Fee, Logger: log}
	spec := chain.AssetSpec{
		Sender:    d.Account.Address,
		UnitName:  cfg.UnitName(),
		AssetName: cfg.AssetName(),
		URL:       url,
		Reserve:   addr,
	}
	if cfg.Chain.CommitMetadataHash {
		h := metadata.Hash(doc)
		spec.MetadataHash = h[:]
	}

	if m.TxID != "" {
		log.Info("resuming submitted transaction", "txid", m.TxID)
		if len(m.SignedTxn) == 0 {
			return m.TxID, nil, nil
		}
		rec, err := minter.Recover(ctx, chain.Signed{TxID: m.TxID, Bytes: m.SignedTxn}, spec)
		if err != nil {
			return m.TxID, nil, err
		}
		switch rec.Action {
		case chain.ActionWait:
			return m.TxID, nil, nil
		case chain.ActionMinted:
			return m.TxID, &chain.Confirmation{AssetID: rec.AssetID}, nil
		}
		log.Warn("recorded transaction can never confirm, signing a new one", "txid", m.TxID, "cause", rec.Cause)
		if err := m.Update(func(m *manifest.Manifest) {
			m.TxID = ""
			m.SignedTxn = nil
		}); err != nil {
			return "", nil, err
		}
	}

	tx, err := minter.Build(ctx, spec)
	if err != nil {
		return "", nil, err
	}
	if tx.AssetParams.Reserve.String() != addr {
		return "", nil, fmt.Errorf("%w: built %s, derived %s", ErrReserveMismatch, tx.AssetParams.Reserve.String(), addr)
	}
	signed, err := chain.Sign(d.Account.PrivateKey, tx)
	if err != nil {
		return "", nil, err
	}
	if err := m.Update(func(m *manifest.Manifest) {
		m.TxID = signed.TxID
		m.SignedTxn = signed.Bytes
	}); err != nil {
		return "", nil, err
	}
	// The txid stays recorded when Submit fails; a re-run hands it to
	// Recover rather than signing a second asset blindly.
	if _, err := minter.Submit(ctx, signed); err != nil {
		return signed.TxID, nil, err
	}
	return signed.TxID, nil, nil
}

func fill(res *Result, m *manifest.Manifest) {
	if m.Image != nil {
		res.ImagePath, res.ImageCID = m.Image.Path, m.Image.CID
	}
	if m.Metadata != nil {
		res.MetadataCID = m.Metadata.CID
	}
	res.Reserve, res.URL = m.Reserve, m.URL
	res.TxID, res.Round, res.AssetID = m.TxID, m.ConfirmedRound, m.AssetID
}
