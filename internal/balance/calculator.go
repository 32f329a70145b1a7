// Package balance computes account balances from an account's transaction
// history. Stock accounts (assets, liabilities) replay their history up to a
// date; flow accounts (income, expense) sum their activity over a period.
package balance

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the magnitude below which an amount counts as zero.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// Options selects the window a balance is computed over.
type Options struct {
	// AsOfDate is the reference date. Nothing dated after it is considered.
	// Defaults to today.
	AsOfDate *time.Time
	// PeriodStart and PeriodEnd bound flow sums, inclusive. Either may be nil.
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	// UsePeriodCalculation makes stock accounts report their change over the
	// period instead of their closing balance.
	UsePeriodCalculation bool
}

// Result is the per-currency balance of one account.
type Result struct {
	// Balances is keyed by currency code. It is empty, not zero-filled, when
	// nothing contributes.
	Balances map[string]model.Balance
	// Issues lists transactions in the window that were excluded.
	Issues []service.ValidationIssue
}

// Calculator computes balances. It holds no per-request state and is safe
// for concurrent use.
type Calculator struct {
	now     func() time.Time
	epsilon decimal.Decimal
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithEpsilon overrides the zero threshold.
func WithEpsilon(epsilon decimal.Decimal) Option {
	return func(c *Calculator) {
		c.epsilon = epsilon.Abs()
	}
}

// WithClock overrides the clock used for the default as-of date.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// NewCalculator creates a calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		now:     time.Now,
		epsilon: DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Epsilon returns the zero threshold in use.
func (c *Calculator) Epsilon() decimal.Decimal {
	return c.epsilon
}

// IsEffectivelyZero reports whether amount is within epsilon of zero.
func (c *Calculator) IsEffectivelyZero(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(c.epsilon)
}

// HasBalance reports whether any currency in balances is meaningfully non-zero.
func (c *Calculator) HasBalance(balances map[string]model.Balance) bool {
	for _, b := range balances {
		if !c.IsEffectivelyZero(b.Amount) {
			return true
		}
	}
	return false
}

// Calculate computes the balance of account from txns. txns may be in any
// order and may include transactions outside the requested window.
func (c *Calculator) Calculate(account model.Account, txns []model.Transaction, opts Options) Result {
	asOf := c.asOf(opts)

	if account.EffectiveType().IsFlow() {
		return c.flow(account, txns, asOf, opts)
	}

	if opts.UsePeriodCalculation && (opts.PeriodStart != nil || opts.PeriodEnd != nil) {
		return c.stockChange(account, txns, asOf, opts)
	}

	return Result{Balances: c.toBalances(account, replay(account, txns, asOf))}
}

func (c *Calculator) asOf(opts Options) time.Time {
	if opts.AsOfDate != nil {
		return model.DateOnly(*opts.AsOfDate)
	}
	return model.DateOnly(c.now())
}

// accumulator carries one currency's replay state.
type accumulator struct {
	running   decimal.Decimal
	resetSeen bool
}

// replay folds a stock account's history, in chronological order, up to and
// including cutoff. A BALANCE snapshot replaces the running total for its
// currency; INCOME and EXPENSE move it.
func replay(account model.Account, txns []model.Transaction, cutoff time.Time) map[string]accumulator {
	state := make(map[string]accumulator)
	for _, tx := range Chronological(txns) {
		if !model.OnOrBefore(tx.Date, cutoff) {
			break
		}
		cur := CurrencyOf(account, tx)
		acc := state[cur]
		switch tx.Type {
		case model.TransactionTypeBalance:
			acc.running = tx.Amount
			acc.resetSeen = true
		case model.TransactionTypeIncome:
			acc.running = acc.running.Add(tx.Amount)
		case model.TransactionTypeExpense:
			acc.running = acc.running.Sub(tx.Amount)
		default:
			continue
		}
		state[cur] = acc
	}
	return state
}

func (c *Calculator) stockChange(account model.Account, txns []model.Transaction, asOf time.Time, opts Options) Result {
	end := asOf
	if opts.PeriodEnd != nil && model.DateOnly(*opts.PeriodEnd).Before(end) {
		end = model.DateOnly(*opts.PeriodEnd)
	}

	closing := replay(account, txns, end)
	opening := map[string]accumulator{}
	if opts.PeriodStart != nil {
		start := model.DateOnly(*opts.PeriodStart)
		if start.After(end) {
			return Result{Balances: map[string]model.Balance{}}
		}
		opening = replay(account, txns, start.AddDate(0, 0, -1))
	}

	change := make(map[string]accumulator, len(closing))
	for cur, acc := range closing {
		change[cur] = accumulator{running: acc.running.Sub(opening[cur].running)}
	}
	for cur, acc := range opening {
		if _, ok := closing[cur]; !ok {
			change[cur] = accumulator{running: acc.running.Neg()}
		}
	}
	return Result{Balances: c.toBalances(account, change)}
}

func (c *Calculator) flow(account model.Account, txns []model.Transaction, asOf time.Time, opts Options) Result {
	end := asOf
	if opts.PeriodEnd != nil && model.DateOnly(*opts.PeriodEnd).Before(end) {
		end = model.DateOnly(*opts.PeriodEnd)
	}
	var start *time.Time
	if opts.PeriodStart != nil {
		s := model.DateOnly(*opts.PeriodStart)
		start = &s
	}

	accountType := account.EffectiveType()
	sums := make(map[string]accumulator)
	var issues []service.ValidationIssue

	for _, tx := range txns {
		day := model.DateOnly(tx.Date)
		if day.After(end) || (start != nil && day.Before(*start)) {
			continue
		}
		switch {
		case tx.Type == model.TransactionTypeBalance:
			issues = append(issues, BalanceInFlowIssue(account, tx))
			continue
		case string(tx.Type) != string(accountType):
			issues = append(issues, FlowMismatchIssue(account, tx))
			continue
		}
		cur := CurrencyOf(account, tx)
		acc := sums[cur]
		acc.running = acc.running.Add(tx.Amount)
		sums[cur] = acc
	}

	return Result{Balances: c.toBalances(account, sums), Issues: issues}
}

func (c *Calculator) toBalances(account model.Account, state map[string]accumulator) map[string]model.Balance {
	balances := make(map[string]model.Balance, len(state))
	for code, acc := range state {
		cur := currencyFor(account, code)
		balances[code] = model.Balance{
			CurrencyCode: code,
			Amount:       acc.running,
			Currency:     &cur,
			Success:      true,
		}
	}
	return balances
}

// CurrencyOf returns the currency a transaction is denominated in, falling
// back to the account's currency when the transaction names none.
func CurrencyOf(account model.Account, tx model.Transaction) string {
	if code := model.NormalizeCurrencyCode(tx.Currency); code != "" {
		return code
	}
	return model.NormalizeCurrencyCode(account.Currency.Code)
}

func currencyFor(account model.Account, code string) model.Currency {
	if model.NormalizeCurrencyCode(account.Currency.Code) == code {
		return account.Currency
	}
	if iso, ok := model.ISOCurrency(code); ok {
		return iso
	}
	return model.Currency{Code: code}
}

// Chronological returns a copy of txns ordered by date, then creation time,
// then insertion sequence. Remaining ties keep their input order.
func Chronological(txns []model.Transaction) []model.Transaction {
	ordered := make([]model.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		da, db := model.DateOnly(a.Date), model.DateOnly(b.Date)
		if !da.Equal(db) {
			return da.Before(db)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
	return ordered
}

// BalanceInFlowIssue reports a BALANCE snapshot recorded against an income or
// expense account.
func BalanceInFlowIssue(account model.Account, tx model.Transaction) service.ValidationIssue {
	return service.ValidationIssue{
		Severity:      service.SeverityError,
		Code:          service.IssueBalanceInFlowAccount,
		Message:       fmt.Sprintf("BALANCE transaction in %s account is ignored", account.EffectiveType()),
		AccountID:     account.ID,
		AccountName:   account.Name,
		CategoryID:    account.Category.ID,
		TransactionID: tx.ID,
	}
}

// FlowMismatchIssue reports an income transaction in an expense account or
// the reverse.
func FlowMismatchIssue(account model.Account, tx model.Transaction) service.ValidationIssue {
	return service.ValidationIssue{
		Severity:      service.SeverityWarning,
		Code:          service.IssueFlowTypeMismatch,
		Message:       fmt.Sprintf("%s transaction in %s account is ignored", tx.Type, account.EffectiveType()),
		AccountID:     account.ID,
		AccountName:   account.Name,
		CategoryID:    account.Category.ID,
		TransactionID: tx.ID,
	}
}
