package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/aggregation"
	"github.com/Veraticus/spice-ledger/internal/balance"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/currency"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// openStorage opens the configured database and brings its schema up to date.
func (a *app) openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return nil, common.NewUserError("could not open the ledger database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// withStore runs fn against an open, migrated store.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, store *storage.SQLiteStorage) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()
	return fn(ctx, store)
}

func (a *app) renderer(ctx context.Context, store *storage.SQLiteStorage) (*cli.Renderer, error) {
	format, err := cli.ParseFormat(a.v.GetString("output.format"))
	if err != nil {
		return nil, err
	}
	r := cli.NewRenderer(a.out, format)
	currencies, err := store.ListCurrencies(ctx, a.cfg.Ledger.UserID)
	if err != nil {
		return nil, err
	}
	return r.WithCurrencies(currencies), nil
}

func (a *app) converter(store *storage.SQLiteStorage) *currency.Service {
	return currency.NewService(store, currency.WithDefaultBaseCurrency(a.cfg.Ledger.BaseCurrency))
}

func (a *app) engine(store *storage.SQLiteStorage) *aggregation.Engine {
	return aggregation.New(store, a.converter(store),
		aggregation.WithCalculator(balance.NewCalculator(balance.WithEpsilon(a.cfg.Ledger.Epsilon))),
		aggregation.WithDefaultBaseCurrency(a.cfg.Ledger.BaseCurrency),
		aggregation.WithSeriesConcurrency(a.cfg.Ledger.SeriesConcurrency),
	)
}

func (a *app) success(format string, args ...any) {
	fmt.Fprintln(a.out, cli.FormatSuccess(fmt.Sprintf(format, args...)))
}

// dateFlag reads an optional YYYY-MM-DD flag.
func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, raw)
	}
	return &d, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}
