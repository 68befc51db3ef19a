package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"truape.co/arcmint/manifest"
	"truape.co/arcmint/pipeline"
	"truape.co/arcmint/storage"
	"truape.co/arcmint/storage/bundle"
	"truape.co/arcmint/storage/localfs"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		outPath string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the run's image, metadata and manifest to a deterministic TAR bundle",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return usage("--out is required")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			dir := pipeline.RunDir(cfg, dryRun)
			m, err := manifest.Load(dir)
			if err != nil {
				return err
			}
			if m.Image == nil || m.Metadata == nil {
				return fmt.Errorf("run in %s has not uploaded its metadata yet (stage %s)", dir, m.Stage())
			}

			// Blocks are keyed by locally computed raw CIDs.
			store, err := localfs.New(filepath.Join(dir, "cas"))
			if err != nil {
				return err
			}
			ctx := context.Background()
			labels := map[string]cid.Cid{}
			for label, a := range map[string]*manifest.Artifact{"image": m.Image, "metadata": m.Metadata} {
				data, err := os.ReadFile(a.Path)
				if err != nil {
					return err
				}
				if got := storage.Sum(data); got != a.SHA256 {
					return fmt.Errorf("%s %s changed on disk: sha256 %s, recorded %s", label, a.Path, got, a.SHA256)
				}
				id, err := store.Upload(ctx, data)
				if err != nil {
					return err
				}
				labels[label] = id
			}
			manifestJSON, err := os.ReadFile(manifest.Path(dir))
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			err = bundle.Export(ctx, f, store, []cid.Cid{labels["image"], labels["metadata"]}, bundle.ExportOptions{
				Labels:       labels,
				Manifests:    map[string][]byte{manifest.FileName: manifestJSON},
				IncludeIndex: true,
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(outPath)
				return err
			}
			fmt.Fprintf(opts.out, "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "bundle file to write")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "export the dry-run artifacts")
	return cmd
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		inPath string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the blocks of a bundle into a local block store",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || dir == "" {
				return usage("--in and --dir are required")
			}
			f, err := os.Open(inPath)
			if err != nil {
				return err
			}
			defer f.Close()
			store, err := localfs.New(dir)
			if err != nil {
				return err
			}
			ids, err := bundle.Import(context.Background(), f, store, bundle.ImportOptions{})
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(opts.out, id.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "bundle file to read")
	cmd.Flags().StringVar(&dir, "dir", "", "local block store directory")
	return cmd
}
