package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/stockpulse/internal/storage"
)

// migrateCmd creates the "migrate" subcommand.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			repo, err := storage.Open(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("open %s: %w", cfg.Database.Redacted(), err)
			}
			defer repo.Close()

			version, err := repo.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Printf("%s schema at version %d\n", repo.Name(), version)
			return nil
		},
	}
}
