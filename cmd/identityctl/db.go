package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	pkgdb "github.com/cayopay/cayopay-identity/pkg/db"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database",
	Long:  `Manage the database schema and migrations.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

Runs every pending migration embedded in the binary. The applied version is
tracked in the ` + pkgdb.MigrationsTable + ` table.

Example:
  identityctl db migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		version, changed, err := pkgdb.MigrateUp(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintf(cmd.OutOrStdout(), "No migrations to run - database is at version %d\n", version)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migrated to version: %d\n", version)
		return nil
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  identityctl db down      # Rollback 1 migration
  identityctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := pkgdb.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		fmt.Fprintf(cmd.OutOrStdout(), "Rolling back %d migration(s)...\n", steps)
		if err := m.Steps(-steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		version, _, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(cmd.OutOrStdout(), "All migrations rolled back")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to version: %d\n", version)
		return nil
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version and the embedded migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := pkgdb.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		out := cmd.OutOrStdout()
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Fprintln(out, "No migrations have been applied yet")
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "Current version: %d\n", version)
			if dirty {
				fmt.Fprintln(out, "Warning: Database is in a dirty state")
			}
		}

		files, err := pkgdb.MigrationFiles()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Embedded migrations: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}
