package main

import (
	"io"

	"github.com/spf13/cobra"

	"truape.co/arcmint/config"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	out        io.Writer
	errOut     io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "arcmint",
		Short:         "Compose, publish and mint ARC-19 NFTs on Algorand",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usage("missing command")
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFileName, "path to the run configuration")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newMintCmd(opts),
		newComposeCmd(opts),
		newReserveCmd(opts),
		newResolveCmd(opts),
		newStatusCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newBackendsCmd(opts),
	)
	return cmd
}

// exactArgs reports a wrong argument count as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// loadConfig reads and validates the configuration and configures logging.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	warning, err := configureLoggerForCLI(o.errOut, o.logLevel, cfg.LogLevel)
	if err != nil {
		return config.Config{}, &usageError{err: err}
	}
	if warning != "" {
		io.WriteString(o.errOut, warning+"\n")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
