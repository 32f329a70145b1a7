package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates automatically; use --status to inspect the
schema without changing it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			current, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			if status {
				fmt.Fprintf(a.out, "Database:        %s\nCurrent version: %d\nLatest version:  %d\n",
					store.Path(), current, storage.ExpectedSchemaVersion)
				return nil
			}

			common.LogInfo(ctx, "Running database migrations", common.Fields{
				"database": store.Path(),
				"from":     current,
			})
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			a.success("Database is at schema version %d", storage.ExpectedSchemaVersion)
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	return cmd
}
