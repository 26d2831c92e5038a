package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledger/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Example: `  # Migrate the default database
  ledgerctl migrate

  # Migrate another file
  ledgerctl migrate --db /var/lib/ledger/ledger.db`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	before, _, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	if err := storage.RunMigrations(dbPath); err != nil {
		return err
	}
	after, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", after)
	}

	logger.Info("Migrations applied", "from", before, "to", after)
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (was %d)\n", after, before)
	return nil
}
