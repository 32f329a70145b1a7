package main

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		listAccountsCmd(a),
		addAccountCmd(a),
		renameAccountCmd(a),
		recolorAccountCmd(a),
		deleteAccountCmd(a),
	)
	return cmd
}

func listAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				accounts, err := store.ListAccounts(ctx, a.cfg.Ledger.UserID)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Accounts(accounts)
			})
		},
	}
}

func addAccountCmd(a *app) *cobra.Command {
	var categoryID, currency string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account under a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				account, err := store.CreateAccount(ctx, a.cfg.Ledger.UserID, args[0], categoryID, currency)
				if err != nil {
					return err
				}
				a.success("Added account %s (%s, %s)", account.Name, account.ID, account.Currency.Code)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&categoryID, "category", "", "category ID (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (required)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func renameAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <account-id> <name>",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.RenameAccount(ctx, a.cfg.Ledger.UserID, args[0], args[1]); err != nil {
					return err
				}
				a.success("Renamed account %s", args[0])
				return nil
			})
		},
	}
}

func recolorAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recolor <account-id> <color>",
		Short: "Change an account's display color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.RecolorAccount(ctx, a.cfg.Ledger.UserID, args[0], args[1]); err != nil {
					return err
				}
				a.success("Recolored account %s", args[0])
				return nil
			})
		},
	}
}

func deleteAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account without transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.DeleteAccount(ctx, a.cfg.Ledger.UserID, args[0]); err != nil {
					return err
				}
				a.success("Deleted account %s", args[0])
				return nil
			})
		},
	}
}
