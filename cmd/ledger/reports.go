package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/currency"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func convertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount using the stored exchange rates",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				result, err := a.converter(store).Convert(ctx, a.cfg.Ledger.UserID, amount, args[1], args[2], asOf)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Conversions([]currency.ConversionResult{result})
			})
		},
	}
	cmd.Flags().String("as-of", "", "rate date YYYY-MM-DD (default today)")
	return cmd
}

func balanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account's balance in each currency",
		Long: `Show an account's balance. Asset and liability accounts report their
balance as of the date; income and expense accounts report the month to date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				account, err := store.GetAccount(ctx, a.cfg.Ledger.UserID, args[0])
				if err != nil {
					return err
				}
				balances, err := a.engine(store).AccountBalances(ctx, a.cfg.Ledger.UserID, account.ID, asOf)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Balances(account, balances)
			})
		},
	}
	cmd.Flags().String("as-of", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func netWorthCmd(a *app) *cobra.Command {
	var series bool

	cmd := &cobra.Command{
		Use:   "networth",
		Short: "Show net worth, or its month-end history with --series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}
			from, err := dateFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := dateFlag(cmd, "to")
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				engine := a.engine(store)

				if !series {
					report, err := engine.NetWorth(ctx, a.cfg.Ledger.UserID, asOf)
					if err != nil {
						return err
					}
					return r.NetWorth(report)
				}

				end := model.DateOnly(time.Now())
				if to != nil {
					end = *to
				}
				start := end.AddDate(-1, 0, 0)
				if from != nil {
					start = *from
				}
				if start.After(end) {
					return fmt.Errorf("--from %s is after --to %s",
						start.Format(model.DateLayout), end.Format(model.DateLayout))
				}

				progress := cli.NewProgress(a.errOut, "Sampling net worth...")
				points, err := engine.NetWorthSeries(ctx, a.cfg.Ledger.UserID, start, end, progress)
				if err != nil {
					return err
				}
				return r.Series(points)
			})
		},
	}

	cmd.Flags().String("as-of", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&series, "series", false, "sample net worth at each month end")
	cmd.Flags().String("from", "", "series start YYYY-MM-DD (default one year before --to)")
	cmd.Flags().String("to", "", "series end YYYY-MM-DD (default today)")
	return cmd
}

func balanceSheetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Show assets and liabilities by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				sheet, err := a.engine(store).BalanceSheet(ctx, a.cfg.Ledger.UserID, asOf)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.BalanceSheet(sheet)
			})
		},
	}
	cmd.Flags().String("as-of", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func cashFlowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cashflow",
		Short: "Show income and expense by category over a period",
		Long: `Show income and expense over a period. Without dates the period is the
current month to date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := dateFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := dateFlag(cmd, "to")
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				statement, err := a.engine(store).CashFlow(ctx, a.cfg.Ledger.UserID, from, to)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.CashFlow(statement)
			})
		},
	}
	cmd.Flags().String("from", "", "first day YYYY-MM-DD")
	cmd.Flags().String("to", "", "last day YYYY-MM-DD")
	return cmd
}

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show net worth and this month's cash flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				summary, err := a.engine(store).Dashboard(ctx, a.cfg.Ledger.UserID)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Dashboard(summary)
			})
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the ledger for inconsistent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				report, err := a.engine(store).Validate(ctx, a.cfg.Ledger.UserID)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				if err := r.Validation(report); err != nil {
					return err
				}
				if strict && report.HasErrors() {
					return fmt.Errorf("ledger has %d validation errors", report.Errors)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when errors are found")
	return cmd
}
