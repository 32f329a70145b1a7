package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func baseCurrencyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "base-currency",
		Short: "Show or choose the reporting currency",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the reporting currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				code, err := store.GetBaseCurrency(ctx, a.cfg.Ledger.UserID)
				if errors.Is(err, common.ErrNotFound) {
					fmt.Fprintf(a.out, "%s (default)\n", a.cfg.Ledger.BaseCurrency)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, code)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <code>",
		Short: "Choose the reporting currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.SetBaseCurrency(ctx, a.cfg.Ledger.UserID, args[0]); err != nil {
					return err
				}
				a.success("Reporting currency is now %s", args[0])
				return nil
			})
		},
	})

	return cmd
}
