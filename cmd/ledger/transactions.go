package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and list transactions",
	}
	cmd.AddCommand(addTransactionCmd(a), listTransactionsCmd(a))
	return cmd
}

func addTransactionCmd(a *app) *cobra.Command {
	var (
		currency    string
		description string
		notes       string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "add <account-id> <type> <amount>",
		Short: "Record a transaction",
		Long: `Record an INCOME, EXPENSE or BALANCE transaction. A BALANCE records the
account's full balance on that date and replaces everything before it.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := model.ParseTransactionType(args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
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
			if description == "" {
				description = string(typ)
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				txns := []model.Transaction{{
					UserID:      a.cfg.Ledger.UserID,
					AccountID:   args[0],
					Type:        typ,
					Amount:      amount,
					Currency:    currency,
					Date:        *date,
					Description: description,
					Notes:       notes,
					Tags:        tags,
				}}
				if err := store.SaveTransactions(ctx, txns); err != nil {
					return err
				}
				a.success("Recorded %s %s on %s (%s)", typ, amount, date.Format(model.DateLayout), txns[0].ID)
				return nil
			})
		},
	}

	cmd.Flags().String("date", "", "transaction date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (default: the account's)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		accountIDs []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in ledger order",
		Args:  cobra.NoArgs,
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
				txns, err := store.ListTransactions(ctx, a.cfg.Ledger.UserID, service.TransactionFilter{
					StartDate:  from,
					EndDate:    to,
					AccountIDs: accountIDs,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				if len(txns) == 0 {
					fmt.Fprintln(a.out, "No transactions found.")
					return nil
				}
				return r.Transactions(txns)
			})
		},
	}

	cmd.Flags().String("from", "", "first date YYYY-MM-DD")
	cmd.Flags().String("to", "", "last date YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&accountIDs, "account", nil, "account ID (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of transactions")
	return cmd
}
