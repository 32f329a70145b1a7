// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidExchangeRate = errors.New("invalid exchange rate")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrMissingReference    = errors.New("missing referenced record")
)

// maxDecimalPlaces bounds user-defined currency precision.
const maxDecimalPlaces = 8

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

// validateExchangeRate validates an exchange rate.
func validateExchangeRate(rate *model.ExchangeRate) error {
	if rate == nil {
		return fmt.Errorf("%w: exchange rate", ErrNilParameter)
	}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExchangeRate, err)
	}
	return nil
}

// validateCurrency validates a currency definition.
func validateCurrency(c *model.Currency) error {
	if c == nil {
		return fmt.Errorf("%w: currency", ErrNilParameter)
	}
	code := model.NormalizeCurrencyCode(c.Code)
	if len(code) < 2 || len(code) > 10 || strings.ContainsAny(code, " \t") {
		return fmt.Errorf("%w: code %q must be 2 to 10 characters without spaces", ErrInvalidCurrency, c.Code)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCurrency)
	}
	if c.DecimalPlaces < 0 || c.DecimalPlaces > maxDecimalPlaces {
		return fmt.Errorf("%w: decimal places must be between 0 and %d", ErrInvalidCurrency, maxDecimalPlaces)
	}
	return nil
}

// validateCategory validates a category definition.
func validateCategory(c *model.Category) error {
	if c == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidCategory)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if c.Type != "" && !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, c.Type)
	}
	if c.ParentID != nil && *c.ParentID == c.ID && c.ID != "" {
		return fmt.Errorf("%w: category cannot be its own parent", ErrInvalidCategory)
	}
	return nil
}
