package balance

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func account(id string, accountType model.AccountType, currency string) model.Account {
	return model.Account{
		ID:       id,
		Name:     id,
		Category: model.Category{ID: "cat-" + id, Name: string(accountType), Type: accountType},
		Currency: model.Currency{Code: currency, DecimalPlaces: 2},
	}
}

func txn(id string, t model.TransactionType, amount string, d int) model.Transaction {
	return model.Transaction{
		ID:          id,
		AccountID:   "acc",
		Type:        t,
		Amount:      dec(amount),
		Date:        day(d),
		Description: id,
	}
}

func newCalculator() *Calculator {
	return NewCalculator(WithClock(func() time.Time { return day(20) }))
}

func assertAmount(t *testing.T, want string, got model.Balance) {
	t.Helper()
	assert.True(t, dec(want).Equal(got.Amount), "want %s, got %s", want, got.Amount)
}

func TestCalculator_CheckingScenario(t *testing.T) {
	checking := account("checking", model.AccountTypeAsset, "CNY")
	txns := []model.Transaction{
		txn("b1", model.TransactionTypeBalance, "1000", 1),
		txn("i1", model.TransactionTypeIncome, "200", 5),
		txn("b2", model.TransactionTypeBalance, "50", 10),
	}
	calc := newCalculator()

	tests := []struct {
		name string
		want string
		asOf int
	}{
		{name: "before any activity after the first snapshot", asOf: 4, want: "1000"},
		{name: "after income", asOf: 6, want: "1200"},
		{name: "snapshot wins over running total", asOf: 10, want: "50"},
		{name: "later dates keep the last snapshot", asOf: 20, want: "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calc.Calculate(checking, txns, Options{AsOfDate: dayPtr(tt.asOf)})
			require.Contains(t, result.Balances, "CNY")
			assertAmount(t, tt.want, result.Balances["CNY"])
			assert.Equal(t, "CNY", result.Balances["CNY"].CurrencyCode)
			assert.Empty(t, result.Issues)
		})
	}
}

func TestCalculator_BalanceResetProperty(t *testing.T) {
	savings := account("savings", model.AccountTypeAsset, "USD")
	histories := map[string][]model.Transaction{
		"income only": {
			txn("i1", model.TransactionTypeIncome, "500", 1),
			txn("i2", model.TransactionTypeIncome, "250", 2),
		},
		"expenses drive it negative": {
			txn("e1", model.TransactionTypeExpense, "900", 1),
		},
		"earlier snapshot plus activity": {
			txn("b1", model.TransactionTypeBalance, "10000", 1),
			txn("e1", model.TransactionTypeExpense, "1", 2),
			txn("i1", model.TransactionTypeIncome, "77.77", 3),
		},
	}
	calc := newCalculator()

	for name, history := range histories {
		for _, snapshot := range []string{"0", "42.5", "123456.78"} {
			t.Run(name+"/"+snapshot, func(t *testing.T) {
				txns := append(append([]model.Transaction{}, history...), txn("snap", model.TransactionTypeBalance, snapshot, 15))
				result := calc.Calculate(savings, txns, Options{})
				assertAmount(t, snapshot, result.Balances["USD"])
			})
		}
	}
}

func TestCalculator_FutureExclusion(t *testing.T) {
	calc := newCalculator()

	t.Run("stock", func(t *testing.T) {
		acc := account("cash", model.AccountTypeAsset, "USD")
		txns := []model.Transaction{
			txn("b1", model.TransactionTypeBalance, "100", 1),
			txn("future-balance", model.TransactionTypeBalance, "999", 12),
			txn("future-income", model.TransactionTypeIncome, "5", 11),
		}
		result := calc.Calculate(acc, txns, Options{AsOfDate: dayPtr(10)})
		assertAmount(t, "100", result.Balances["USD"])
	})

	t.Run("flow period end", func(t *testing.T) {
		acc := account("salary", model.AccountTypeIncome, "USD")
		txns := []model.Transaction{
			txn("i1", model.TransactionTypeIncome, "100", 3),
			txn("i2", model.TransactionTypeIncome, "100", 9),
		}
		result := calc.Calculate(acc, txns, Options{PeriodStart: dayPtr(1), PeriodEnd: dayPtr(8)})
		assertAmount(t, "100", result.Balances["USD"])
	})

	t.Run("period end beyond as-of is capped", func(t *testing.T) {
		acc := account("salary", model.AccountTypeIncome, "USD")
		txns := []model.Transaction{
			txn("i1", model.TransactionTypeIncome, "100", 3),
			txn("i2", model.TransactionTypeIncome, "100", 25),
		}
		result := calc.Calculate(acc, txns, Options{PeriodStart: dayPtr(1), PeriodEnd: dayPtr(31)})
		assertAmount(t, "100", result.Balances["USD"])
	})

	t.Run("time of day does not matter", func(t *testing.T) {
		acc := account("cash", model.AccountTypeAsset, "USD")
		late := txn("i1", model.TransactionTypeIncome, "7", 10)
		late.Date = late.Date.Add(23 * time.Hour)
		result := calc.Calculate(acc, []model.Transaction{late}, Options{AsOfDate: dayPtr(10)})
		assertAmount(t, "7", result.Balances["USD"])
	})
}

func TestCalculator_SameDayOrdering(t *testing.T) {
	acc := account("cash", model.AccountTypeAsset, "USD")
	calc := newCalculator()
	created := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("creation time breaks ties", func(t *testing.T) {
		income := txn("i1", model.TransactionTypeIncome, "30", 5)
		income.CreatedAt = created.Add(time.Hour)
		snapshot := txn("b1", model.TransactionTypeBalance, "100", 5)
		snapshot.CreatedAt = created

		result := calc.Calculate(acc, []model.Transaction{income, snapshot}, Options{})
		assertAmount(t, "130", result.Balances["USD"])
	})

	t.Run("sequence breaks ties", func(t *testing.T) {
		snapshot := txn("b1", model.TransactionTypeBalance, "100", 5)
		snapshot.Seq = 2
		income := txn("i1", model.TransactionTypeIncome, "30", 5)
		income.Seq = 1

		result := calc.Calculate(acc, []model.Transaction{snapshot, income}, Options{})
		assertAmount(t, "100", result.Balances["USD"])
	})

	t.Run("input order is the final tie-break", func(t *testing.T) {
		result := calc.Calculate(acc, []model.Transaction{
			txn("i1", model.TransactionTypeIncome, "30", 5),
			txn("b1", model.TransactionTypeBalance, "100", 5),
		}, Options{})
		assertAmount(t, "100", result.Balances["USD"])
	})
}

func TestCalculator_MultipleCurrencies(t *testing.T) {
	acc := account("wallet", model.AccountTypeAsset, "EUR")
	usd := txn("u1", model.TransactionTypeBalance, "40", 2)
	usd.Currency = "usd"
	txns := []model.Transaction{
		txn("e1", model.TransactionTypeBalance, "100", 1),
		usd,
		txn("e2", model.TransactionTypeExpense, "25", 3),
	}

	result := newCalculator().Calculate(acc, txns, Options{})

	require.Len(t, result.Balances, 2)
	assertAmount(t, "75", result.Balances["EUR"])
	assertAmount(t, "40", result.Balances["USD"])
	assert.Equal(t, "EUR", result.Balances["EUR"].Currency.Code)
	require.NotNil(t, result.Balances["USD"].Currency)
	assert.Equal(t, 2, result.Balances["USD"].Currency.DecimalPlaces)
}

func TestCalculator_EmptyAndZero(t *testing.T) {
	calc := newCalculator()
	loan := account("loan", model.AccountTypeLiability, "USD")

	empty := calc.Calculate(loan, nil, Options{})
	assert.Empty(t, empty.Balances)
	assert.NotNil(t, empty.Balances)
	assert.False(t, calc.HasBalance(empty.Balances))

	repaid := calc.Calculate(loan, []model.Transaction{
		txn("b1", model.TransactionTypeBalance, "5000", 1),
		txn("b2", model.TransactionTypeBalance, "0", 10),
	}, Options{})
	require.Contains(t, repaid.Balances, "USD")
	assert.False(t, calc.HasBalance(repaid.Balances))

	dust := calc.Calculate(loan, []model.Transaction{txn("b1", model.TransactionTypeBalance, "0.009", 1)}, Options{})
	assert.False(t, calc.HasBalance(dust.Balances))

	cent := calc.Calculate(loan, []model.Transaction{txn("b1", model.TransactionTypeBalance, "0.01", 1)}, Options{})
	assert.True(t, calc.HasBalance(cent.Balances))

	onlyFuture := calc.Calculate(loan, []model.Transaction{txn("b1", model.TransactionTypeBalance, "10", 25)}, Options{})
	assert.Empty(t, onlyFuture.Balances)
}

func TestCalculator_WithEpsilon(t *testing.T) {
	calc := NewCalculator(WithEpsilon(dec("-1")))
	assert.True(t, dec("1").Equal(calc.Epsilon()))
	assert.True(t, calc.IsEffectivelyZero(dec("0.99")))
	assert.False(t, calc.IsEffectivelyZero(dec("-1")))
}

func TestCalculator_SalaryScenario(t *testing.T) {
	salary := account("salary", model.AccountTypeIncome, "USD")
	mistake := txn("oops", model.TransactionTypeExpense, "30", 10)
	txns := []model.Transaction{
		txn("last-month", model.TransactionTypeIncome, "4000", 1),
		txn("pay", model.TransactionTypeIncome, "5000", 2),
		mistake,
		txn("bonus", model.TransactionTypeIncome, "100", 15),
		txn("next", model.TransactionTypeIncome, "5000", 25),
	}

	result := newCalculator().Calculate(salary, txns, Options{PeriodStart: dayPtr(2), PeriodEnd: dayPtr(20)})

	assertAmount(t, "5100", result.Balances["USD"])
	require.Len(t, result.Issues, 1)
	assert.Equal(t, service.IssueFlowTypeMismatch, result.Issues[0].Code)
	assert.Equal(t, service.SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, "oops", result.Issues[0].TransactionID)
}

func TestCalculator_FlowExclusivity(t *testing.T) {
	calc := newCalculator()

	tests := []struct {
		name      string
		wantCode  string
		wantTotal string
		account   model.Account
		stray     model.Transaction
	}{
		{
			name:      "income in expense account",
			account:   account("groceries", model.AccountTypeExpense, "USD"),
			stray:     txn("stray", model.TransactionTypeIncome, "999", 5),
			wantCode:  service.IssueFlowTypeMismatch,
			wantTotal: "12.5",
		},
		{
			name:      "balance in expense account",
			account:   account("groceries", model.AccountTypeExpense, "USD"),
			stray:     txn("stray", model.TransactionTypeBalance, "999", 5),
			wantCode:  service.IssueBalanceInFlowAccount,
			wantTotal: "12.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := []model.Transaction{
				txn("e1", model.TransactionTypeExpense, "10", 3),
				tt.stray,
				txn("e2", model.TransactionTypeExpense, "2.5", 4),
			}
			result := calc.Calculate(tt.account, txns, Options{})
			assertAmount(t, tt.wantTotal, result.Balances["USD"])
			require.Len(t, result.Issues, 1)
			assert.Equal(t, tt.wantCode, result.Issues[0].Code)
		})
	}
}

func TestCalculator_FlowOnlyMismatchedIsEmpty(t *testing.T) {
	salary := account("salary", model.AccountTypeIncome, "USD")
	result := newCalculator().Calculate(salary, []model.Transaction{txn("e", model.TransactionTypeExpense, "5", 2)}, Options{})
	assert.Empty(t, result.Balances)
	assert.Len(t, result.Issues, 1)
}

func TestCalculator_FlowWithoutPeriodSumsToAsOf(t *testing.T) {
	rent := account("rent", model.AccountTypeExpense, "USD")
	txns := []model.Transaction{
		txn("r1", model.TransactionTypeExpense, "1000", 1),
		txn("r2", model.TransactionTypeExpense, "1000", 15),
		txn("r3", model.TransactionTypeExpense, "1000", 28),
	}
	result := newCalculator().Calculate(rent, txns, Options{})
	assertAmount(t, "2000", result.Balances["USD"])
}

func TestCalculator_StockPeriodChange(t *testing.T) {
	brokerage := account("brokerage", model.AccountTypeAsset, "USD")
	txns := []model.Transaction{
		txn("b1", model.TransactionTypeBalance, "1000", 1),
		txn("i1", model.TransactionTypeIncome, "50", 6),
		txn("b2", model.TransactionTypeBalance, "1300", 12),
		txn("e1", model.TransactionTypeExpense, "100", 14),
	}
	calc := newCalculator()

	result := calc.Calculate(brokerage, txns, Options{
		PeriodStart:          dayPtr(5),
		PeriodEnd:            dayPtr(14),
		UsePeriodCalculation: true,
	})
	assertAmount(t, "200", result.Balances["USD"])

	inverted := calc.Calculate(brokerage, txns, Options{
		PeriodStart:          dayPtr(15),
		PeriodEnd:            dayPtr(14),
		UsePeriodCalculation: true,
	})
	assert.Empty(t, inverted.Balances)

	closing := calc.Calculate(brokerage, txns, Options{PeriodStart: dayPtr(5), PeriodEnd: dayPtr(14)})
	assertAmount(t, "1200", closing.Balances["USD"]) // period is ignored for stock accounts unless requested
}

func TestCalculator_DefaultAsOfUsesClock(t *testing.T) {
	acc := account("cash", model.AccountTypeAsset, "USD")
	txns := []model.Transaction{
		txn("b1", model.TransactionTypeBalance, "10", 1),
		txn("b2", model.TransactionTypeBalance, "20", 21),
	}
	result := newCalculator().Calculate(acc, txns, Options{})
	assertAmount(t, "10", result.Balances["USD"])
}

func TestCalculator_IgnoresUnknownTypesInStock(t *testing.T) {
	acc := account("cash", model.AccountTypeAsset, "USD")
	txns := []model.Transaction{
		txn("b1", model.TransactionTypeBalance, "10", 1),
		txn("x", model.TransactionType("TRANSFER"), "5", 2),
	}
	result := newCalculator().Calculate(acc, txns, Options{})
	assertAmount(t, "10", result.Balances["USD"])
}

func TestChronological_DoesNotMutateInput(t *testing.T) {
	txns := []model.Transaction{
		txn("late", model.TransactionTypeIncome, "1", 9),
		txn("early", model.TransactionTypeIncome, "1", 2),
	}
	ordered := Chronological(txns)
	assert.Equal(t, "early", ordered[0].ID)
	assert.Equal(t, "late", txns[0].ID)
}
