package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"truape.co/arcmint/pipeline"
	"truape.co/arcmint/storage"
)

func newComposeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compose",
		Short: "Composite the configured layers and write the image",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			data, path, err := pipeline.ComposeImage(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s sha256:%s %d bytes\n", path, storage.Sum(data), len(data))
			return nil
		},
	}
}
