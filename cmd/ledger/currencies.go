package main

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func currenciesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "List and define currencies",
	}
	cmd.AddCommand(listCurrenciesCmd(a), addCurrencyCmd(a))
	return cmd
}

func listCurrenciesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the currencies you can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				currencies, err := store.ListCurrencies(ctx, a.cfg.Ledger.UserID)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Currencies(currencies)
			})
		},
	}
}

func addCurrencyCmd(a *app) *cobra.Command {
	var (
		symbol   string
		decimals int
		global   bool
	)

	cmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Define a currency",
		Long: `Define a currency for your ledger. ISO codes pick up their symbol and
precision automatically unless given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				c := &model.Currency{
					Code:          args[0],
					Name:          args[1],
					Symbol:        symbol,
					DecimalPlaces: decimals,
					UserID:        a.cfg.Ledger.UserID,
				}
				if global {
					c.UserID = ""
				}
				if err := store.CreateCurrency(ctx, c); err != nil {
					return err
				}
				a.success("Added currency %s (%s)", c.Code, c.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "display symbol")
	cmd.Flags().IntVar(&decimals, "decimals", 0, "decimal places (0-8)")
	cmd.Flags().BoolVar(&global, "global", false, "share the currency with every user")
	return cmd
}
