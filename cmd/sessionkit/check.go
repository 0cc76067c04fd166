package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/sessionkit/internal/config"
	"github.com/MrEthical07/sessionkit/internal/security"
)

// NewCheckConfigCmd creates the check-config subcommand.
func NewCheckConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration without starting the server",
		RunE:  runCheckConfig,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	f, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	applyDevDefaults(&f)

	if err := f.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cfg, err := f.Engine()
	if err != nil {
		return err
	}

	cmd.Printf("configuration OK (signing method %s, access ttl %s, refresh ttl %s)\n",
		cfg.JWT.SigningMethod, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	for _, w := range security.BuildReport(cfg, f.Dev).Warnings() {
		cmd.Printf("warning: %s\n", w)
	}
	return nil
}
