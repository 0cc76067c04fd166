package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/sessionkit/directory/postgres"
)

type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

// openMigrator is replaced in tests.
var openMigrator = func(databaseURL string) (migrator, error) {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the accounts schema",
		Long: `Apply or roll back the embedded PostgreSQL migrations. The database
URL comes from --database_url, the config file or DATABASE_URL.`,
	}
	cmd.PersistentFlags().String("database_url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops the accounts table)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("refusing to drop the accounts table without --yes")
			}
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().Bool("yes", false, "confirm the rollback")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("version %d (dirty)\n", v)
					return nil
				}
				cmd.Printf("version %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(migrator) error) error {
	databaseURL, err := migrationURL(cmd.Flags())
	if err != nil {
		return err
	}

	m, err := openMigrator(databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}

	runErr := fn(m)
	if err := m.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func migrationURL(fs *pflag.FlagSet) (string, error) {
	f, err := loadConfig(fs)
	if err != nil {
		return "", err
	}
	if f.DatabaseURL != "" {
		return f.DatabaseURL, nil
	}
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("database_url is not set (flag, config file or DATABASE_URL)")
}
