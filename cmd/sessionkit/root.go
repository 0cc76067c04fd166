package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/sessionkit/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the sessionkit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionkit",
		Short: "sessionkit - credential and session lifecycle service",
		Long: `sessionkit serves account signup, signin, signout, token refresh,
email verification and account recovery over HTTP, backed by Redis
for revocation and rate limits and PostgreSQL for accounts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCheckConfigCmd())

	return cmd
}

// loadConfig reads the --config file and the command's flags.
func loadConfig(fs *pflag.FlagSet) (config.File, error) {
	return config.Load(configFile, fs)
}
