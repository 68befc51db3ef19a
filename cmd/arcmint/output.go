package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"truape.co/arcmint/pipeline"
)

func checkOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return usage("unsupported --output %q (want %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writeYAML(w io.Writer, payload any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	return enc.Close()
}

type resultView struct {
	RunID       string `json:"run_id"`
	RunDir      string `json:"run_dir"`
	Image       string `json:"image,omitempty"`
	ImageCID    string `json:"image_cid,omitempty"`
	MetadataCID string `json:"metadata_cid,omitempty"`
	Reserve     string `json:"reserve_address,omitempty"`
	URL         string `json:"url,omitempty"`
	TxID        string `json:"txid,omitempty"`
	Round       uint64 `json:"confirmed_round,omitempty"`
	AssetID     uint64 `json:"asset_id,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

func writeResult(w io.Writer, format string, res pipeline.Result) error {
	v := resultView{
		RunID:       res.RunID,
		RunDir:      res.RunDir,
		Image:       res.ImagePath,
		ImageCID:    res.ImageCID,
		MetadataCID: res.MetadataCID,
		Reserve:     res.Reserve,
		URL:         res.URL,
		TxID:        res.TxID,
		Round:       res.Round,
		AssetID:     res.AssetID,
		DryRun:      res.DryRun,
	}
	if format == "json" {
		return writeJSON(w, v)
	}
	lines := []string{
		fmt.Sprintf("run_id: %s", v.RunID),
		fmt.Sprintf("image: %s", v.Image),
		fmt.Sprintf("image_cid: %s", v.ImageCID),
		fmt.Sprintf("metadata_cid: %s", v.MetadataCID),
		fmt.Sprintf("reserve_address: %s", v.Reserve),
		fmt.Sprintf("url: %s", v.URL),
	}
	if v.DryRun {
		lines = append(lines, "dry_run: true")
	} else {
		lines = append(lines,
			fmt.Sprintf("txid: %s", v.TxID),
			fmt.Sprintf("confirmed_round: %d", v.Round),
			fmt.Sprintf("asset_id: %d", v.AssetID),
		)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
