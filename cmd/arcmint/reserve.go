package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"truape.co/arcmint/arc19"
	"truape.co/arcmint/cidutil"
	"truape.co/arcmint/reserve"
)

func newReserveCmd(opts *globalOptions) *cobra.Command {
	var showURL bool
	cmd := &cobra.Command{
		Use:   "reserve <cid>",
		Short: "Print the reserve address for a CID",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cidutil.Parse(args[0])
			if err != nil {
				return usage("invalid cid %q: %v", args[0], err)
			}
			addr, err := reserve.FromCIDValue(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, addr)
			if showURL {
				t, err := arc19.ForCID(id, arc19.SuffixARC3)
				if err != nil {
					return err
				}
				fmt.Fprintln(opts.out, t.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showURL, "url", false, "also print the ARC-19 template URL for the cid")
	return cmd
}

func newResolveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <template-url> <reserve-address>",
		Short: "Resolve an ARC-19 template URL against a reserve address",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := arc19.ResolveURL(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, url)
			return nil
		},
	}
}
