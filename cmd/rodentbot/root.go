package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rodentplay/rodentbot/internal/config"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "rodentbot",
		Short:         "A block-game helper bot with a preemptive task scheduler",
		Long:          `rodentbot takes chat commands (goto, gather, flatten, follow, guard...), queues them and runs them one at a time, dropping everything to defend itself when a hostile comes close.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.rodentbot/config.yaml merged with .rodentbot/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the config the way every subcommand does: the explicit
// file when given, otherwise the conventional paths, then the environment.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load("", opts.configPath)
		if err == nil {
			config.ApplyEnv(cfg, os.LookupEnv)
		}
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rodentbot %s\n", version)
		},
	}
}
