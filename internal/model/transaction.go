package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType describes how a transaction affects its account.
type TransactionType string

const (
	// TransactionTypeIncome adds to the account.
	TransactionTypeIncome TransactionType = "INCOME"
	// TransactionTypeExpense subtracts from the account.
	TransactionTypeExpense TransactionType = "EXPENSE"
	// TransactionTypeBalance records the observed balance of a stock account on a date.
	TransactionTypeBalance TransactionType = "BALANCE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeBalance:
		return true
	default:
		return false
	}
}

// ParseTransactionType parses a transaction type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q: must be INCOME, EXPENSE or BALANCE", s)
	}
	return t, nil
}

// Transaction validation errors.
var (
	ErrMissingAccount     = errors.New("missing account")
	ErrMissingDate        = errors.New("missing date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrNegativeBalance    = errors.New("balance amount must not be negative")
	ErrNonPositiveRate    = errors.New("exchange rate must be greater than zero")
	ErrSameCurrencyRate   = errors.New("exchange rate currencies must differ")
	ErrMissingCurrency    = errors.New("missing currency")
	ErrMissingRateDate    = errors.New("missing effective date")
	ErrUnknownRateSource  = errors.New("unknown rate source")
	ErrMissingAccountName = errors.New("missing account name")
)

// Transaction is a single dated entry against an account.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ID          string
	UserID      string
	AccountID   string
	Currency    string
	Type        TransactionType
	Description string
	Notes       string
	Tags        []string
	Seq         int64
}

// Validate returns every rule the transaction breaks, joined into one error,
// or nil when the transaction is well formed.
func (t Transaction) Validate() error {
	var errs []error
	if strings.TrimSpace(t.AccountID) == "" {
		errs = append(errs, ErrMissingAccount)
	}
	if t.Date.IsZero() {
		errs = append(errs, ErrMissingDate)
	}
	if strings.TrimSpace(t.Description) == "" {
		errs = append(errs, ErrEmptyDescription)
	}
	switch t.Type {
	case TransactionTypeIncome, TransactionTypeExpense:
		if !t.Amount.IsPositive() {
			errs = append(errs, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, t.Amount))
		}
	case TransactionTypeBalance:
		if t.Amount.IsNegative() {
			errs = append(errs, fmt.Errorf("%w: got %s", ErrNegativeBalance, t.Amount))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidType, t.Type))
	}
	return errors.Join(errs...)
}

// Validate checks the invariants of a stored exchange rate.
func (r ExchangeRate) Validate() error {
	var errs []error
	if r.FromCurrency == "" || r.ToCurrency == "" {
		errs = append(errs, ErrMissingCurrency)
	} else if NormalizeCurrencyCode(r.FromCurrency) == NormalizeCurrencyCode(r.ToCurrency) {
		errs = append(errs, ErrSameCurrencyRate)
	}
	if !r.Rate.IsPositive() {
		errs = append(errs, fmt.Errorf("%w: got %s", ErrNonPositiveRate, r.Rate))
	}
	if r.EffectiveDate.IsZero() {
		errs = append(errs, ErrMissingRateDate)
	}
	if r.Source != RateSourceUser && r.Source != RateSourceAuto {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownRateSource, r.Source))
	}
	return errors.Join(errs...)
}
