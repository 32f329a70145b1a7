// Package testutil provides an in-memory ledger database for tests, with a
// fluent builder for seeding categories, accounts, transactions and rates.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// DefaultUserID owns everything a TestDB seeds.
const DefaultUserID = "test-user"

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	categories map[string]string
	accounts   map[string]string
	UserID     string
}

// SetupTestDB creates a new migrated in-memory database. It is closed when
// the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t).
//		WithCategory("bank", "Bank", model.AccountTypeAsset, "").
//		WithAccount("checking", "Checking", "bank", "USD").
//		WithTransaction("checking", model.TransactionTypeBalance, "100", "2024-01-01")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage:    store,
		UserID:     DefaultUserID,
		categories: make(map[string]string),
		accounts:   make(map[string]string),
		t:          t,
	}
}

// WithBaseCurrency sets the user's reporting currency.
func (db *TestDB) WithBaseCurrency(code string) *TestDB {
	db.t.Helper()
	if err := db.Storage.SetBaseCurrency(context.Background(), db.UserID, code); err != nil {
		db.t.Fatalf("failed to set base currency %q: %v", code, err)
	}
	return db
}

// WithCategory creates a category remembered under key. parentKey names a
// category created earlier, or is empty for a root.
func (db *TestDB) WithCategory(key, name string, typ model.AccountType, parentKey string) *TestDB {
	db.t.Helper()

	category := model.Category{UserID: db.UserID, Name: name, Type: typ}
	if parentKey != "" {
		parentID := db.CategoryID(parentKey)
		category.ParentID = &parentID
	}
	if err := db.Storage.CreateCategory(context.Background(), &category); err != nil {
		db.t.Fatalf("failed to seed category %q: %v", name, err)
	}
	db.categories[key] = category.ID
	return db
}

// WithAccount creates an account remembered under key, filed under the
// category created as categoryKey.
func (db *TestDB) WithAccount(key, name, categoryKey, currency string) *TestDB {
	db.t.Helper()

	account, err := db.Storage.CreateAccount(context.Background(), db.UserID, name, db.CategoryID(categoryKey), currency)
	if err != nil {
		db.t.Fatalf("failed to seed account %q: %v", name, err)
	}
	db.accounts[key] = account.ID
	return db
}

// WithTransaction records a transaction in the account's own currency.
// amount is a decimal string and date is YYYY-MM-DD.
func (db *TestDB) WithTransaction(accountKey string, typ model.TransactionType, amount, date string) *TestDB {
	db.t.Helper()
	return db.WithTransactionIn(accountKey, typ, amount, "", date)
}

// WithTransactionIn records a transaction in an explicit currency.
func (db *TestDB) WithTransactionIn(accountKey string, typ model.TransactionType, amount, currency, date string) *TestDB {
	db.t.Helper()

	txn := model.Transaction{
		UserID:      db.UserID,
		AccountID:   db.AccountID(accountKey),
		Type:        typ,
		Amount:      db.decimal(amount),
		Currency:    currency,
		Date:        db.date(date),
		Description: string(typ) + " " + amount,
	}
	if err := db.Storage.SaveTransactions(context.Background(), []model.Transaction{txn}); err != nil {
		db.t.Fatalf("failed to seed transaction: %v", err)
	}
	return db
}

// WithRate stores a user exchange rate effective on date.
func (db *TestDB) WithRate(from, to, rate, date string) *TestDB {
	db.t.Helper()

	r := model.ExchangeRate{
		UserID:        db.UserID,
		FromCurrency:  from,
		ToCurrency:    to,
		Rate:          db.decimal(rate),
		EffectiveDate: db.date(date),
		Source:        model.RateSourceUser,
	}
	if err := db.Storage.SaveExchangeRate(context.Background(), &r); err != nil {
		db.t.Fatalf("failed to seed rate %s/%s: %v", from, to, err)
	}
	return db
}

// CategoryID returns the ID of the category seeded as key or fails the test.
func (db *TestDB) CategoryID(key string) string {
	db.t.Helper()
	id, ok := db.categories[key]
	if !ok {
		db.t.Fatalf("category %q was not seeded", key)
	}
	return id
}

// AccountID returns the ID of the account seeded as key or fails the test.
func (db *TestDB) AccountID(key string) string {
	db.t.Helper()
	id, ok := db.accounts[key]
	if !ok {
		db.t.Fatalf("account %q was not seeded", key)
	}
	return id
}

func (db *TestDB) decimal(s string) decimal.Decimal {
	db.t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		db.t.Fatalf("invalid amount %q: %v", s, err)
	}
	return d
}

func (db *TestDB) date(s string) time.Time {
	db.t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		db.t.Fatalf("invalid date %q: %v", s, err)
	}
	return d
}
