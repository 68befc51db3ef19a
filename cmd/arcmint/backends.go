package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"truape.co/arcmint/storage/registry"
)

func newBackendsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List storage backends available to [storage] backends",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range registry.List() {
				mode := "online"
				if b.Offline {
					mode = "offline"
				}
				fmt.Fprintf(opts.out, "%-12s %-8s %s\n", b.Name, mode, b.Description)
			}
			return nil
		},
	}
}
