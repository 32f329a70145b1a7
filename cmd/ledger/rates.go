package main

import (
	"context"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func ratesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Record and list exchange rates",
	}
	cmd.AddCommand(listRatesCmd(a), addRateCmd(a))
	return cmd
}

func listRatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rates effective on or before a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}
			day := time.Now()
			if asOf != nil {
				day = *asOf
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				rates, err := store.ListExchangeRates(ctx, a.cfg.Ledger.UserID, day)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Rates(rates)
			})
		},
	}
	cmd.Flags().String("as-of", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func addRateCmd(a *app) *cobra.Command {
	var (
		source string
		global bool
	)

	cmd := &cobra.Command{
		Use:   "add <from> <to> <rate>",
		Short: "Record the price of one <from> in <to>",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			date, err := dateFlag(cmd, "date")
			if err != nil {
				return err
			}
			if date == nil {
				today := model.DateOnly(time.Now())
				date = &today
			}

			rate := &model.ExchangeRate{
				UserID:        a.cfg.Ledger.UserID,
				FromCurrency:  args[0],
				ToCurrency:    args[1],
				Rate:          value,
				EffectiveDate: *date,
				Source:        model.RateSource(strings.ToUpper(source)),
			}
			if global {
				rate.UserID = ""
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.SaveExchangeRate(ctx, rate); err != nil {
					return err
				}
				a.success("1 %s = %s %s from %s", rate.FromCurrency, rate.Rate, rate.ToCurrency,
					rate.EffectiveDate.Format(model.DateLayout))
				return nil
			})
		},
	}

	cmd.Flags().String("date", "", "effective date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&source, "source", string(model.RateSourceUser), "USER or AUTO")
	cmd.Flags().BoolVar(&global, "global", false, "share the rate with every user")
	return cmd
}
