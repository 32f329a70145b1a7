package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		input   string
		want    AccountType
		wantErr bool
	}{
		{input: "asset", want: AccountTypeAsset},
		{input: " LIABILITY ", want: AccountTypeLiability},
		{input: "Income", want: AccountTypeIncome},
		{input: "expense", want: AccountTypeExpense},
		{input: "equity", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAccountType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccountType_StockAndFlow(t *testing.T) {
	assert.True(t, AccountTypeAsset.IsStock())
	assert.True(t, AccountTypeLiability.IsStock())
	assert.False(t, AccountTypeIncome.IsStock())
	assert.True(t, AccountTypeIncome.IsFlow())
	assert.True(t, AccountTypeExpense.IsFlow())
	assert.False(t, AccountType("").IsFlow())
	assert.False(t, AccountType("").IsStock())
}

func TestTransaction_Validate(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := Transaction{
		AccountID:   "acc",
		Date:        day,
		Description: "Paycheck",
		Type:        TransactionTypeIncome,
		Amount:      decimal.NewFromInt(100),
	}

	tests := []struct {
		mutate  func(*Transaction)
		wantErr error
		name    string
	}{
		{name: "valid income", mutate: func(*Transaction) {}},
		{
			name:    "zero income amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.Zero },
			wantErr: ErrNonPositiveAmount,
		},
		{
			name: "negative expense amount",
			mutate: func(tx *Transaction) {
				tx.Type = TransactionTypeExpense
				tx.Amount = decimal.NewFromInt(-5)
			},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name: "zero balance is valid",
			mutate: func(tx *Transaction) {
				tx.Type = TransactionTypeBalance
				tx.Amount = decimal.Zero
			},
		},
		{
			name: "negative balance",
			mutate: func(tx *Transaction) {
				tx.Type = TransactionTypeBalance
				tx.Amount = decimal.NewFromInt(-1)
			},
			wantErr: ErrNegativeBalance,
		},
		{
			name:    "empty description",
			mutate:  func(tx *Transaction) { tx.Description = "  " },
			wantErr: ErrEmptyDescription,
		},
		{
			name:    "missing date",
			mutate:  func(tx *Transaction) { tx.Date = time.Time{} },
			wantErr: ErrMissingDate,
		},
		{
			name:    "unknown type",
			mutate:  func(tx *Transaction) { tx.Type = "TRANSFER" },
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransaction_ValidateReportsAllProblems(t *testing.T) {
	err := Transaction{Type: TransactionTypeExpense}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAccount)
	assert.ErrorIs(t, err, ErrMissingDate)
	assert.ErrorIs(t, err, ErrEmptyDescription)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestExchangeRate_Supersedes(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	older := ExchangeRate{EffectiveDate: jan, Source: RateSourceUser}
	newer := ExchangeRate{EffectiveDate: feb, Source: RateSourceAuto}
	assert.True(t, newer.Supersedes(older))
	assert.False(t, older.Supersedes(newer))

	auto := ExchangeRate{EffectiveDate: jan, Source: RateSourceAuto, CreatedAt: feb}
	user := ExchangeRate{EffectiveDate: jan, Source: RateSourceUser, CreatedAt: jan}
	assert.True(t, user.Supersedes(auto), "user rates win ties on the same day")

	first := ExchangeRate{EffectiveDate: jan, Source: RateSourceUser, CreatedAt: jan}
	second := ExchangeRate{EffectiveDate: jan, Source: RateSourceUser, CreatedAt: feb}
	assert.True(t, second.Supersedes(first))
}

func TestExchangeRate_Validate(t *testing.T) {
	valid := ExchangeRate{
		FromCurrency:  "USD",
		ToCurrency:    "EUR",
		Rate:          decimal.RequireFromString("0.92"),
		EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:        RateSourceUser,
	}
	require.NoError(t, valid.Validate())

	zero := valid
	zero.Rate = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), ErrNonPositiveRate)

	same := valid
	same.ToCurrency = "usd"
	assert.ErrorIs(t, same.Validate(), ErrSameCurrencyRate)
}

func TestDateOnly(t *testing.T) {
	late := time.Date(2024, 5, 10, 23, 59, 0, 0, time.FixedZone("X", 5*3600))
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), DateOnly(late))
	assert.True(t, OnOrBefore(late, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), MonthEnd(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)))
}

func TestCurrency_Format(t *testing.T) {
	usd := Currency{Code: "USD", Symbol: "$", DecimalPlaces: 2}
	assert.Equal(t, "$1,234.57", usd.Format(decimal.RequireFromString("1234.567")))

	points := Currency{Code: "PTS", Symbol: "", DecimalPlaces: 0}
	assert.Equal(t, "13 PTS", points.Format(decimal.RequireFromString("12.6")))
}
