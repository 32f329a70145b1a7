// Package aggregation builds net worth, balance sheet, cash flow and
// dashboard reports from a user's ledger, converted into the base currency.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/balance"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/currency"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPeriod is returned when a period ends before it starts.
var ErrInvalidPeriod = errors.New("period end is before period start")

// Converter converts batches of amounts into a target currency.
type Converter interface {
	ConvertMultiple(ctx context.Context, userID string, items []currency.Item, to string, asOf *time.Time) ([]currency.ConversionResult, error)
}

// Config holds tunables for the engine.
type Config struct {
	DefaultBaseCurrency string
	SeriesConcurrency   int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultBaseCurrency: "USD",
		SeriesConcurrency:   4,
	}
}

// Engine produces reports. It holds no per-request state; every call reads
// the ledger afresh.
type Engine struct {
	reader     service.LedgerReader
	converter  Converter
	calculator *balance.Calculator
	now        func() time.Time
	config     Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithCalculator replaces the balance calculator.
func WithCalculator(calc *balance.Calculator) Option {
	return func(e *Engine) {
		e.calculator = calc
	}
}

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithDefaultBaseCurrency sets the reporting currency used for users who
// have not chosen one.
func WithDefaultBaseCurrency(code string) Option {
	return func(e *Engine) {
		if code = model.NormalizeCurrencyCode(code); code != "" {
			e.config.DefaultBaseCurrency = code
		}
	}
}

// WithSeriesConcurrency bounds how many series points are computed at once.
func WithSeriesConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.SeriesConcurrency = n
		}
	}
}

// New creates an engine reading records from reader and converting with
// converter.
func New(reader service.LedgerReader, converter Converter, opts ...Option) *Engine {
	e := &Engine{
		reader:     reader,
		converter:  converter,
		calculator: balance.NewCalculator(),
		now:        time.Now,
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() time.Time {
	return model.DateOnly(e.now())
}

// load reads the user's records up to through and runs the validation pass.
func (e *Engine) load(ctx context.Context, userID string, through time.Time) (*ledger, error) {
	base, err := e.reader.GetBaseCurrency(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		base = e.config.DefaultBaseCurrency
	case err != nil:
		return nil, fmt.Errorf("failed to load base currency: %w", err)
	}

	categories, err := e.reader.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	accounts, err := e.reader.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	end := through
	txns, err := e.reader.ListTransactions(ctx, userID, service.TransactionFilter{EndDate: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	l := prepare(categories, accounts, txns)
	l.base = model.NormalizeCurrencyCode(base)

	slog.Debug("Loaded ledger",
		"user_id", userID,
		"accounts", len(accounts),
		"categories", len(categories),
		"transactions", len(txns),
		"base_currency", l.base,
		"issues", len(l.report.Issues))
	return l, nil
}

// asOfOrToday resolves an optional reference date. Future dates are kept:
// nothing after them exists, so results match today's.
func (e *Engine) asOfOrToday(asOf *time.Time) time.Time {
	if asOf == nil {
		return e.today()
	}
	return model.DateOnly(*asOf)
}

func stockGroup(t model.AccountType, asOf time.Time) group {
	return group{
		accountType: t,
		opts:        balance.Options{AsOfDate: &asOf},
		convertAsOf: asOf,
	}
}

func flowGroup(t model.AccountType, period service.DateRange) group {
	start, end := period.Start, period.End
	return group{
		accountType: t,
		opts:        balance.Options{AsOfDate: &end, PeriodStart: &start, PeriodEnd: &end},
		convertAsOf: end,
	}
}

// rollups computes groups concurrently. Results are in group order.
func (e *Engine) rollups(ctx context.Context, userID string, l *ledger, groups ...group) ([]service.Rollup, error) {
	out := make([]service.Rollup, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range groups {
		g.Go(func() error {
			r, err := e.rollup(gctx, userID, l, grp)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// NetWorth reports assets, liabilities and their difference as of asOf
// (today when nil).
func (e *Engine) NetWorth(ctx context.Context, userID string, asOf *time.Time) (*service.NetWorthReport, error) {
	day := e.asOfOrToday(asOf)
	l, err := e.load(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return e.netWorth(ctx, userID, l, day)
}

func (e *Engine) netWorth(ctx context.Context, userID string, l *ledger, day time.Time) (*service.NetWorthReport, error) {
	rs, err := e.rollups(ctx, userID, l,
		stockGroup(model.AccountTypeAsset, day),
		stockGroup(model.AccountTypeLiability, day))
	if err != nil {
		return nil, err
	}
	assets, liabilities := rs[0], rs[1]

	return &service.NetWorthReport{
		AsOf:                day,
		Validation:          l.report,
		BaseCurrency:        l.base,
		Assets:              assets,
		Liabilities:         liabilities,
		TotalAssets:         assets.TotalInBaseCurrency,
		TotalLiabilities:    liabilities.TotalInBaseCurrency,
		NetWorth:            assets.TotalInBaseCurrency.Sub(liabilities.TotalInBaseCurrency),
		HasConversionErrors: assets.HasConversionErrors || liabilities.HasConversionErrors,
	}, nil
}

// BalanceSheet reports net worth with assets and liabilities arranged by
// category.
func (e *Engine) BalanceSheet(ctx context.Context, userID string, asOf *time.Time) (*service.BalanceSheet, error) {
	day := e.asOfOrToday(asOf)
	l, err := e.load(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	report, err := e.netWorth(ctx, userID, l, day)
	if err != nil {
		return nil, err
	}
	return &service.BalanceSheet{
		NetWorthReport:      *report,
		AssetCategories:     categoryTree(l, report.Assets),
		LiabilityCategories: categoryTree(l, report.Liabilities),
	}, nil
}

// period resolves an optional period. It defaults to the current month and
// never extends past today.
func (e *Engine) period(start, end *time.Time) (service.DateRange, error) {
	today := e.today()
	var r service.DateRange
	switch {
	case end != nil:
		r.End = model.DateOnly(*end)
	case start != nil:
		r.End = today
	default:
		r.End = model.MonthEnd(today)
	}
	if r.End.After(today) {
		r.End = today
	}
	if start != nil {
		r.Start = model.DateOnly(*start)
	} else {
		r.Start = model.MonthStart(r.End)
	}
	if r.End.Before(r.Start) {
		return service.DateRange{}, fmt.Errorf("%w: %s to %s", ErrInvalidPeriod,
			r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout))
	}
	return r, nil
}

// CashFlow reports income and expense over a period, by default the current
// month up to today.
func (e *Engine) CashFlow(ctx context.Context, userID string, start, end *time.Time) (*service.CashFlowStatement, error) {
	period, err := e.period(start, end)
	if err != nil {
		return nil, err
	}
	l, err := e.load(ctx, userID, period.End)
	if err != nil {
		return nil, err
	}
	rs, err := e.rollups(ctx, userID, l,
		flowGroup(model.AccountTypeIncome, period),
		flowGroup(model.AccountTypeExpense, period))
	if err != nil {
		return nil, err
	}
	income, expense := rs[0], rs[1]

	return &service.CashFlowStatement{
		Period:              period,
		Validation:          l.report,
		BaseCurrency:        l.base,
		Income:              income,
		Expense:             expense,
		IncomeCategories:    categoryTree(l, income),
		ExpenseCategories:   categoryTree(l, expense),
		TotalIncome:         income.TotalInBaseCurrency,
		TotalExpense:        expense.TotalInBaseCurrency,
		NetCashFlow:         income.TotalInBaseCurrency.Sub(expense.TotalInBaseCurrency),
		HasConversionErrors: income.HasConversionErrors || expense.HasConversionErrors,
	}, nil
}

// Dashboard reports today's net worth next to this month's cash flow.
func (e *Engine) Dashboard(ctx context.Context, userID string) (*service.DashboardSummary, error) {
	period, err := e.period(nil, nil)
	if err != nil {
		return nil, err
	}
	today := period.End
	l, err := e.load(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	rs, err := e.rollups(ctx, userID, l,
		stockGroup(model.AccountTypeAsset, today),
		stockGroup(model.AccountTypeLiability, today),
		flowGroup(model.AccountTypeIncome, period),
		flowGroup(model.AccountTypeExpense, period))
	if err != nil {
		return nil, err
	}
	assets, liabilities, income, expense := rs[0], rs[1], rs[2], rs[3]

	counts := make(map[model.AccountType]int, len(model.AccountTypes))
	for _, t := range model.AccountTypes {
		counts[t] = 0
	}
	for _, acc := range l.accounts {
		counts[acc.EffectiveType()]++
	}

	return &service.DashboardSummary{
		AsOf:          today,
		Period:        period,
		Validation:    l.report,
		AccountCounts: counts,
		BaseCurrency:  l.base,
		Assets:        assets,
		Liabilities:   liabilities,
		Income:        income,
		Expense:       expense,
		Summary: service.Summary{
			NetWorth:    assets.TotalInBaseCurrency.Sub(liabilities.TotalInBaseCurrency),
			NetCashFlow: income.TotalInBaseCurrency.Sub(expense.TotalInBaseCurrency),
		},
		HasConversionErrors: assets.HasConversionErrors || liabilities.HasConversionErrors ||
			income.HasConversionErrors || expense.HasConversionErrors,
	}, nil
}

// Validate runs the validation pass on its own.
func (e *Engine) Validate(ctx context.Context, userID string) (*service.ValidationReport, error) {
	l, err := e.load(ctx, userID, e.today())
	if err != nil {
		return nil, err
	}
	report := l.report
	return &report, nil
}

// AccountBalances returns one account's balances as of asOf, converted into
// the base currency. Flow accounts report the month containing asOf.
func (e *Engine) AccountBalances(ctx context.Context, userID, accountID string, asOf *time.Time) ([]model.Balance, error) {
	day := e.asOfOrToday(asOf)
	l, err := e.load(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	var grp group
	found := false
	for _, acc := range l.accounts {
		if acc.ID != accountID {
			continue
		}
		found = true
		if acc.EffectiveType().IsFlow() {
			grp = flowGroup(acc.EffectiveType(), service.DateRange{Start: model.MonthStart(day), End: day})
		} else {
			grp = stockGroup(acc.EffectiveType(), day)
		}
		single := *l
		single.accounts = []model.Account{acc}
		l = &single
		break
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAccount, accountID)
	}

	r, err := e.rollup(ctx, userID, l, grp)
	if err != nil {
		return nil, err
	}
	if len(r.Accounts) == 0 {
		return []model.Balance{}, nil
	}
	balances := r.Accounts[0].Balances
	sort.Slice(balances, func(i, j int) bool { return balances[i].CurrencyCode < balances[j].CurrencyCode })
	return balances, nil
}
