package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"truape.co/arcmint/chain"
	"truape.co/arcmint/keys"
	"truape.co/arcmint/pipeline"
)

func newMintCmd(opts *globalOptions) *cobra.Command {
	var (
		dryRun bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Run or resume the full pipeline: compose, upload, derive reserve, mint, confirm",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, "text", "json"); err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := slog.Default()

			deps := pipeline.Deps{Config: cfg, Logger: log, DryRun: dryRun}
			token := ""
			if !dryRun {
				keyPath := cfg.Path(cfg.KeyFile)
				secrets, err := keys.LoadFile(keyPath)
				if err != nil {
					return err
				}
				if err := keys.CheckPermissions(keyPath); errors.Is(err, keys.ErrPermissions) {
					log.Warn("key file permissions are too open", "path", keyPath)
				}
				acct, err := secrets.Account()
				if err != nil {
					return err
				}
				node, err := chain.NewAlgod(chain.AlgodOptions{
					URL:       cfg.Chain.NodeURL,
					Token:     cfg.Chain.NodeToken,
					UserAgent: cfg.Chain.UserAgent,
				})
				if err != nil {
					return err
				}
				token = secrets.StorageToken
				deps.Account = acct
				deps.Node = node
				log.Info("signing account loaded", "address", acct.Address)
			}

			up, err := pipeline.OpenStorage(cfg, token, dryRun)
			if err != nil {
				return err
			}
			deps.Uploader = up

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			res, err := pipeline.Run(ctx, deps)
			if err != nil {
				if res.TxID != "" {
					fmt.Fprintf(opts.errOut, "transaction %s is recorded in %s; re-run to resume\n", res.TxID, res.RunDir)
				}
				return err
			}
			return writeResult(opts.out, output, res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "store artifacts locally and stop before submitting")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
