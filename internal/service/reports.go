package service

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CurrencyBreakdown is one original currency's contribution to a rollup.
type CurrencyBreakdown struct {
	Currency        string          `json:"-"`
	OriginalAmount  decimal.Decimal `json:"originalAmount"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
	AccountCount    int             `json:"accountCount"`
	Success         bool            `json:"success"`
}

// CurrencyBreakdowns keeps per-currency entries in presentation order while
// serialising as a JSON object keyed by currency code.
type CurrencyBreakdowns []CurrencyBreakdown

// Get returns the entry for a currency code.
func (c CurrencyBreakdowns) Get(code string) (CurrencyBreakdown, bool) {
	for _, b := range c {
		if b.Currency == code {
			return b, true
		}
	}
	return CurrencyBreakdown{}, false
}

// MarshalJSON writes the entries as an object, preserving slice order.
func (c CurrencyBreakdowns) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Currency)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AccountLine is a single account's contribution to a rollup.
type AccountLine struct {
	AccountID           string          `json:"accountId"`
	AccountName         string          `json:"accountName"`
	CategoryID          string          `json:"categoryId"`
	Balances            []model.Balance `json:"balances"`
	Total               decimal.Decimal `json:"total"`
	HasConversionErrors bool            `json:"hasConversionErrors"`
}

// Rollup totals one group of accounts (assets, liabilities, income or
// expense) in the base currency.
type Rollup struct {
	TotalsByOriginalCurrency map[string]decimal.Decimal `json:"totalsByOriginalCurrency"`
	Type                     model.AccountType          `json:"type"`
	ByCurrency               CurrencyBreakdowns         `json:"byCurrency"`
	Accounts                 []AccountLine              `json:"accounts"`
	TotalInBaseCurrency      decimal.Decimal            `json:"totalInBaseCurrency"`
	AccountCount             int                        `json:"accountCount"`
	HasConversionErrors      bool                       `json:"hasConversionErrors"`
}

// CategoryNode is a category's rollup within a category tree. Total covers
// the category's own accounts and every descendant category.
type CategoryNode struct {
	Order               *int              `json:"order,omitempty"`
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Type                model.AccountType `json:"type"`
	Accounts            []AccountLine     `json:"accounts"`
	Children            []*CategoryNode   `json:"children"`
	OwnTotal            decimal.Decimal   `json:"ownTotal"`
	Total               decimal.Decimal   `json:"total"`
	AccountCount        int               `json:"accountCount"`
	HasConversionErrors bool              `json:"hasConversionErrors"`
}

// Summary is the top-level pair of headline figures.
type Summary struct {
	NetWorth    decimal.Decimal `json:"netWorth"`
	NetCashFlow decimal.Decimal `json:"netCashFlow"`
}

// NetWorthReport is the stock-side view as of a date.
type NetWorthReport struct {
	AsOf                time.Time        `json:"asOf"`
	Validation          ValidationReport `json:"validation"`
	BaseCurrency        string           `json:"baseCurrency"`
	Assets              Rollup           `json:"assets"`
	Liabilities         Rollup           `json:"liabilities"`
	TotalAssets         decimal.Decimal  `json:"totalAssets"`
	TotalLiabilities    decimal.Decimal  `json:"totalLiabilities"`
	NetWorth            decimal.Decimal  `json:"netWorth"`
	HasConversionErrors bool             `json:"hasConversionErrors"`
}

// BalanceSheet extends the net worth view with category trees.
type BalanceSheet struct {
	NetWorthReport
	AssetCategories     []*CategoryNode `json:"assetCategories"`
	LiabilityCategories []*CategoryNode `json:"liabilityCategories"`
}

// CashFlowStatement is the flow-side view over a period.
type CashFlowStatement struct {
	Period              DateRange        `json:"period"`
	Validation          ValidationReport `json:"validation"`
	BaseCurrency        string           `json:"baseCurrency"`
	Income              Rollup           `json:"income"`
	Expense             Rollup           `json:"expense"`
	IncomeCategories    []*CategoryNode  `json:"incomeCategories"`
	ExpenseCategories   []*CategoryNode  `json:"expenseCategories"`
	TotalIncome         decimal.Decimal  `json:"totalIncome"`
	TotalExpense        decimal.Decimal  `json:"totalExpense"`
	NetCashFlow         decimal.Decimal  `json:"netCashFlow"`
	HasConversionErrors bool             `json:"hasConversionErrors"`
}

// DashboardSummary combines current net worth with this month's cash flow.
type DashboardSummary struct {
	AsOf                time.Time                 `json:"asOf"`
	Period              DateRange                 `json:"period"`
	Validation          ValidationReport          `json:"validation"`
	AccountCounts       map[model.AccountType]int `json:"accountCounts"`
	BaseCurrency        string                    `json:"baseCurrency"`
	Assets              Rollup                    `json:"assets"`
	Liabilities         Rollup                    `json:"liabilities"`
	Income              Rollup                    `json:"income"`
	Expense             Rollup                    `json:"expense"`
	Summary             Summary                   `json:"summary"`
	HasConversionErrors bool                      `json:"hasConversionErrors"`
}

// NetWorthPoint is one sample of a net worth series.
type NetWorthPoint struct {
	Date                time.Time       `json:"date"`
	TotalAssets         decimal.Decimal `json:"totalAssets"`
	TotalLiabilities    decimal.Decimal `json:"totalLiabilities"`
	NetWorth            decimal.Decimal `json:"netWorth"`
	HasConversionErrors bool            `json:"hasConversionErrors"`
}

// NetWorthSeries is net worth sampled at month ends.
type NetWorthSeries struct {
	BaseCurrency        string          `json:"baseCurrency"`
	Points              []NetWorthPoint `json:"points"`
	HasConversionErrors bool            `json:"hasConversionErrors"`
}
