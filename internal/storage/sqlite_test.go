package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "u1"

var _ service.Storage = (*SQLiteStorage)(nil)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func mustCategory(t *testing.T, store *SQLiteStorage, name string, typ model.AccountType, parent *string) model.Category {
	t.Helper()
	c := model.Category{UserID: testUser, Name: name, Type: typ, ParentID: parent}
	require.NoError(t, store.CreateCategory(context.Background(), &c))
	return c
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var indexCount int
	require.NoError(t, store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_exchange_rates_lookup'`).Scan(&indexCount))
	assert.Equal(t, 1, indexCount)
}

func TestMigrate_SeedsISOCurrencies(t *testing.T) {
	store := createTestStorage(t)

	currencies, err := store.ListCurrencies(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, currencies, len(seedCurrencies))

	jpy, err := store.GetCurrency(context.Background(), testUser, "jpy")
	require.NoError(t, err)
	assert.Equal(t, 0, jpy.DecimalPlaces)
	assert.Equal(t, "Japanese Yen", jpy.Name)
	assert.True(t, jpy.IsGlobal())
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)

	_, err = NewSQLiteStorage("  ")
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestCurrencies(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	points := &model.Currency{Code: "pts", Name: "Reward Points", UserID: testUser}
	require.NoError(t, store.CreateCurrency(ctx, points))
	assert.Equal(t, "PTS", points.Code)

	err := store.CreateCurrency(ctx, &model.Currency{Code: "PTS", Name: "Again", UserID: testUser})
	require.ErrorIs(t, err, common.ErrDuplicateEntry)

	// A user definition hides the global one.
	require.NoError(t, store.CreateCurrency(ctx, &model.Currency{Code: "USD", Name: "Greenback", UserID: testUser}))
	usd, err := store.GetCurrency(ctx, testUser, "USD")
	require.NoError(t, err)
	assert.Equal(t, "Greenback", usd.Name)
	assert.Equal(t, "$", usd.Symbol)
	assert.Equal(t, 2, usd.DecimalPlaces)

	other, err := store.GetCurrency(ctx, "someone-else", "USD")
	require.NoError(t, err)
	assert.Equal(t, "US Dollar", other.Name)

	list, err := store.ListCurrencies(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, list, len(seedCurrencies)+1)

	_, err = store.GetCurrency(ctx, "someone-else", "PTS")
	require.ErrorIs(t, err, common.ErrUnknownCurrency)
}

func TestBaseCurrency(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetBaseCurrency(ctx, testUser)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.SetBaseCurrency(ctx, testUser, "cny"))
	base, err := store.GetBaseCurrency(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "CNY", base)

	require.NoError(t, store.SetBaseCurrency(ctx, testUser, "EUR"))
	base, err = store.GetBaseCurrency(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "EUR", base)

	require.ErrorIs(t, store.SetBaseCurrency(ctx, testUser, "XXX"), common.ErrUnknownCurrency)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	assets := mustCategory(t, store, "Assets", model.AccountTypeAsset, nil)
	order := 1
	bank := model.Category{UserID: testUser, Name: "Bank", ParentID: &assets.ID, Order: &order}
	require.NoError(t, store.CreateCategory(ctx, &bank))
	mustCategory(t, store, "Misc", "", nil)

	missing := "nope"
	err := store.CreateCategory(ctx, &model.Category{UserID: testUser, Name: "Orphan", ParentID: &missing})
	require.ErrorIs(t, err, common.ErrUnknownCategory)

	categories, err := store.ListCategories(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Bank", categories[0].Name, "ordered categories first")
	require.NotNil(t, categories[0].ParentID)
	assert.Equal(t, assets.ID, *categories[0].ParentID)
	require.NotNil(t, categories[0].Order)
	assert.Equal(t, 1, *categories[0].Order)
	assert.Equal(t, model.AccountTypeAsset, categories[1].Type)
	assert.Equal(t, model.AccountType(""), categories[2].Type)
	assert.False(t, categories[1].CreatedAt.IsZero())

	others, err := store.ListCategories(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	bank := mustCategory(t, store, "Bank", model.AccountTypeAsset, nil)

	checking, err := store.CreateAccount(ctx, testUser, "  Checking ", bank.ID, "usd")
	require.NoError(t, err)
	assert.Equal(t, "Checking", checking.Name)
	assert.Equal(t, "USD", checking.Currency.Code)
	assert.Equal(t, "$", checking.Currency.Symbol)
	assert.Equal(t, model.AccountTypeAsset, checking.EffectiveType())

	_, err = store.CreateAccount(ctx, testUser, "Checking", bank.ID, "USD")
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
	_, err = store.CreateAccount(ctx, testUser, "Savings", "missing", "USD")
	require.ErrorIs(t, err, common.ErrUnknownCategory)
	_, err = store.CreateAccount(ctx, testUser, "Savings", bank.ID, "XXX")
	require.ErrorIs(t, err, common.ErrUnknownCurrency)
	_, err = store.CreateAccount(ctx, testUser, " ", bank.ID, "USD")
	require.ErrorIs(t, err, model.ErrMissingAccountName)

	require.NoError(t, store.RenameAccount(ctx, testUser, checking.ID, "Main Checking"))
	require.NoError(t, store.RecolorAccount(ctx, testUser, checking.ID, "#00ff00"))
	got, err := store.GetAccount(ctx, testUser, checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main Checking", got.Name)
	assert.Equal(t, "#00ff00", got.Color)
	assert.Equal(t, bank.ID, got.Category.ID)

	require.ErrorIs(t, store.RenameAccount(ctx, testUser, "missing", "x"), common.ErrNotFound)
	_, err = store.GetAccount(ctx, "someone-else", checking.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	savings, err := store.CreateAccount(ctx, testUser, "Savings", bank.ID, "EUR")
	require.NoError(t, err)
	accounts, err := store.ListAccounts(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Main Checking", accounts[0].Name)
	assert.Equal(t, "Euro", accounts[1].Currency.Name)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{{
		UserID:      testUser,
		AccountID:   checking.ID,
		Type:        model.TransactionTypeBalance,
		Amount:      decimal.NewFromInt(100),
		Date:        day(time.January, 1),
		Description: "Opening balance",
	}}))
	require.ErrorIs(t, store.DeleteAccount(ctx, testUser, checking.ID), common.ErrAccountInUse)
	require.NoError(t, store.DeleteAccount(ctx, testUser, savings.ID))
	require.ErrorIs(t, store.DeleteAccount(ctx, testUser, savings.ID), common.ErrNotFound)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	bank := mustCategory(t, store, "Bank", model.AccountTypeAsset, nil)
	checking, err := store.CreateAccount(ctx, testUser, "Checking", bank.ID, "USD")
	require.NoError(t, err)
	card, err := store.CreateAccount(ctx, testUser, "Card", bank.ID, "USD")
	require.NoError(t, err)

	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{UserID: testUser, AccountID: checking.ID, Type: model.TransactionTypeIncome, Amount: decimal.RequireFromString("200.10"), Date: day(time.January, 5), Description: "Refund", Tags: []string{"work", "refund", " "}},
		{UserID: testUser, AccountID: checking.ID, Type: model.TransactionTypeBalance, Amount: decimal.NewFromInt(1000), Date: day(time.January, 1), Description: "Opening", CreatedAt: created.Add(time.Hour)},
		{UserID: testUser, AccountID: checking.ID, Type: model.TransactionTypeIncome, Amount: decimal.NewFromInt(5), Date: day(time.January, 1), Description: "Earlier same day", CreatedAt: created},
		{UserID: testUser, AccountID: card.ID, Type: model.TransactionTypeExpense, Amount: decimal.NewFromInt(30), Date: day(time.February, 1), Description: "Dinner", Currency: "eur"},
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))
	for _, txn := range txns {
		assert.NotEmpty(t, txn.ID)
		assert.NotZero(t, txn.Seq)
	}

	all, err := store.ListTransactions(ctx, testUser, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Earlier same day", all[0].Description)
	assert.Equal(t, "Opening", all[1].Description)
	assert.Equal(t, "Refund", all[2].Description)
	assert.Equal(t, []string{"refund", "work"}, all[2].Tags)
	assert.True(t, decimal.RequireFromString("200.10").Equal(all[2].Amount))
	assert.Equal(t, "EUR", all[3].Currency)
	assert.Equal(t, day(time.February, 1), all[3].Date)

	end := day(time.January, 31)
	january, err := store.ListTransactions(ctx, testUser, service.TransactionFilter{EndDate: &end})
	require.NoError(t, err)
	assert.Len(t, january, 3)

	start := day(time.January, 2)
	byAccount, err := store.ListTransactions(ctx, testUser, service.TransactionFilter{StartDate: &start, AccountIDs: []string{card.ID}})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "Dinner", byAccount[0].Description)

	page, err := store.ListTransactions(ctx, testUser, service.TransactionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Opening", page[0].Description)

	err = store.SaveTransactions(ctx, []model.Transaction{{
		UserID: testUser, AccountID: "missing", Type: model.TransactionTypeIncome,
		Amount: decimal.NewFromInt(1), Date: day(time.January, 1), Description: "Ghost",
	}})
	require.ErrorIs(t, err, common.ErrUnknownAccount)

	err = store.SaveTransactions(ctx, []model.Transaction{{
		UserID: testUser, AccountID: checking.ID, Type: model.TransactionTypeBalance,
		Amount: decimal.NewFromInt(-1), Date: day(time.January, 1), Description: "Negative",
	}})
	require.ErrorIs(t, err, ErrInvalidTransaction)
	assert.ErrorIs(t, err, model.ErrNegativeBalance)

	after, err := store.ListTransactions(ctx, testUser, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, after, 4, "failed batches are not partially stored")
}

func TestExchangeRates(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	global := &model.ExchangeRate{FromCurrency: "usd", ToCurrency: "eur", Rate: decimal.RequireFromString("0.9"), EffectiveDate: day(time.January, 1), Source: model.RateSourceAuto}
	require.NoError(t, store.SaveExchangeRate(ctx, global))
	assert.NotEmpty(t, global.ID)
	assert.Equal(t, "USD", global.FromCurrency)

	mine := &model.ExchangeRate{UserID: testUser, FromCurrency: "CNY", ToCurrency: "USD", Rate: decimal.RequireFromString("0.14"), EffectiveDate: day(time.February, 1)}
	require.NoError(t, store.SaveExchangeRate(ctx, mine))
	assert.Equal(t, model.RateSourceUser, mine.Source)

	theirs := &model.ExchangeRate{UserID: "someone-else", FromCurrency: "GBP", ToCurrency: "USD", Rate: decimal.RequireFromString("1.25"), EffectiveDate: day(time.January, 1)}
	require.NoError(t, store.SaveExchangeRate(ctx, theirs))

	rates, err := store.ListExchangeRates(ctx, testUser, day(time.January, 31))
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, global.ID, rates[0].ID)
	assert.Equal(t, model.RateSourceAuto, rates[0].Source)

	rates, err = store.ListExchangeRates(ctx, testUser, day(time.February, 1))
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.True(t, decimal.RequireFromString("0.14").Equal(rates[0].Rate))
	assert.Equal(t, day(time.February, 1), rates[0].EffectiveDate)

	err = store.SaveExchangeRate(ctx, &model.ExchangeRate{FromCurrency: "USD", ToCurrency: "EUR", Rate: decimal.Zero, EffectiveDate: day(time.January, 1)})
	require.ErrorIs(t, err, ErrInvalidExchangeRate)
}

func TestCorruptedRowsAreReported(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	bank := mustCategory(t, store, "Bank", model.AccountTypeAsset, nil)
	checking, err := store.CreateAccount(ctx, testUser, "Checking", bank.ID, "USD")
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `INSERT INTO transactions
		(id, user_id, account_id, type, amount, date, description, created_at)
		VALUES ('t-bad', ?, ?, 'INCOME', 'twelve', '2024-01-02', 'Bad amount', '2024-01-02T00:00:00Z')`,
		testUser, checking.ID)
	require.NoError(t, err)

	_, err = store.ListTransactions(ctx, testUser, service.TransactionFilter{})
	require.ErrorIs(t, err, common.ErrDatabaseCorrupted)
	assert.Contains(t, err.Error(), "t-bad")

	_, err = store.db.ExecContext(ctx, `INSERT INTO exchange_rates
		(id, user_id, from_currency, to_currency, rate, effective_date, source, created_at)
		VALUES ('r-bad', ?, 'USD', 'EUR', '0.9', '01/02/2024', 'USER', '2024-01-02T00:00:00Z')`,
		testUser)
	require.NoError(t, err)

	_, err = store.ListExchangeRates(ctx, testUser, day(time.December, 31))
	require.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}
