package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"truape.co/arcmint/manifest"
	"truape.co/arcmint/pipeline"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the run manifest",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, "text", "json", "yaml"); err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			m, err := manifest.Load(pipeline.RunDir(cfg, dryRun))
			if err != nil {
				return err
			}
			switch output {
			case "json":
				return writeJSON(opts.out, m)
			case "yaml":
				return writeYAML(opts.out, m)
			}
			fmt.Fprintf(opts.out, "run %s (%s) index %d: %s\n", m.RunID, m.Name, m.Index, m.Stage())
			if m.Image != nil && m.Image.CID != "" {
				fmt.Fprintf(opts.out, "  image     %s\n", m.Image.CID)
			}
			if m.Metadata != nil && m.Metadata.CID != "" {
				fmt.Fprintf(opts.out, "  metadata  %s\n", m.Metadata.CID)
			}
			if m.Reserve != "" {
				fmt.Fprintf(opts.out, "  reserve   %s\n", m.Reserve)
				fmt.Fprintf(opts.out, "  url       %s\n", m.URL)
			}
			if m.TxID != "" {
				fmt.Fprintf(opts.out, "  txid      %s\n", m.TxID)
			}
			if m.AssetID != 0 {
				fmt.Fprintf(opts.out, "  asset     %d (round %d)\n", m.AssetID, m.ConfirmedRound)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the dry-run manifest")
	return cmd
}
