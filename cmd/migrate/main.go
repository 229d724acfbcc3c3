// Command migrate manages the Postgres schema under db/migration.
package main

import (
	"fmt"
	"os"

	"github.com/n1207n/blog-post-api/config"
	"github.com/n1207n/blog-post-api/internal/db"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type migrateOptions struct {
	databaseURL string
	sourceURL   string
}

func newRootCmd() *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the blog database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if opts.databaseURL == "" {
				opts.databaseURL = cfg.DatabaseURL
			}
			if opts.sourceURL == "" {
				opts.sourceURL = cfg.MigrationsPath
			}
			return config.ValidateDatabaseURL(opts.databaseURL)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.sourceURL, "source", "", "Migration source URL (defaults to MIGRATIONS_PATH)")

	cmd.AddCommand(newUpCmd(opts), newDownCmd(opts), newVersionCmd(opts))
	return cmd
}

func newUpCmd(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunMigrations(opts.sourceURL, opts.databaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newDownCmd(opts *migrateOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be greater than zero, got %d", steps)
			}
			migrator, err := db.NewMigrator(opts.sourceURL, opts.databaseURL)
			if err != nil {
				return err
			}
			defer migrator.Close()

			if err := migrator.Down(steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func newVersionCmd(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, err := db.NewMigrator(opts.sourceURL, opts.databaseURL)
			if err != nil {
				return err
			}
			defer migrator.Close()

			version, dirty, ok, err := migrator.Version()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}
