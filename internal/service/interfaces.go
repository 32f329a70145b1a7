// Package service defines the contracts between the ledger engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	AccountIDs []string
	Limit      int
	Offset     int
}

// LedgerReader supplies already-validated ledger records to the engine.
type LedgerReader interface {
	// GetBaseCurrency returns the user's reporting currency, or
	// common.ErrNotFound when the user has not chosen one.
	GetBaseCurrency(ctx context.Context, userID string) (string, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*model.Account, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
}

// RateReader supplies exchange rates to the conversion service.
type RateReader interface {
	// ListExchangeRates returns the user's and the global rates whose
	// effective date is on or before asOf.
	ListExchangeRates(ctx context.Context, userID string, asOf time.Time) ([]model.ExchangeRate, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	LedgerReader
	RateReader

	// Settings
	SetBaseCurrency(ctx context.Context, userID, currency string) error

	// Currency operations
	ListCurrencies(ctx context.Context, userID string) ([]model.Currency, error)
	GetCurrency(ctx context.Context, userID, code string) (*model.Currency, error)
	CreateCurrency(ctx context.Context, currency *model.Currency) error

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) error

	// Account operations
	CreateAccount(ctx context.Context, userID, name, categoryID, currency string) (*model.Account, error)
	RenameAccount(ctx context.Context, userID, accountID, name string) error
	RecolorAccount(ctx context.Context, userID, accountID, color string) error
	DeleteAccount(ctx context.Context, userID, accountID string) error

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error

	// Exchange rate operations
	SaveExchangeRate(ctx context.Context, rate *model.ExchangeRate) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
