package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// ListCurrencies returns the global currencies together with the user's own.
// A user-defined currency hides a global one with the same code.
func (s *SQLiteStorage) ListCurrencies(ctx context.Context, userID string) ([]model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listCurrenciesTx(ctx, s.db, userID)
}

func (s *SQLiteStorage) listCurrenciesTx(ctx context.Context, q queryable, userID string) ([]model.Currency, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT code, user_id, name, symbol, decimal_places
		FROM currencies
		WHERE user_id = '' OR user_id = ?
		ORDER BY code, user_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var currencies []model.Currency
	for rows.Next() {
		var c model.Currency
		if err := rows.Scan(&c.Code, &c.UserID, &c.Name, &c.Symbol, &c.DecimalPlaces); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		// Rows are ordered global first within a code.
		if n := len(currencies); n > 0 && currencies[n-1].Code == c.Code {
			currencies[n-1] = c
			continue
		}
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}

	slog.Debug("retrieved currencies", "count", len(currencies))
	return currencies, nil
}

// GetCurrency returns the currency the user sees for code.
func (s *SQLiteStorage) GetCurrency(ctx context.Context, userID, code string) (*model.Currency, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(code, "code"); err != nil {
		return nil, err
	}
	return s.getCurrencyTx(ctx, s.db, userID, model.NormalizeCurrencyCode(code))
}

func (s *SQLiteStorage) getCurrencyTx(ctx context.Context, q queryable, userID, code string) (*model.Currency, error) {
	var c model.Currency
	err := q.QueryRowContext(ctx, `
		SELECT code, user_id, name, symbol, decimal_places
		FROM currencies
		WHERE code = ? AND (user_id = '' OR user_id = ?)
		ORDER BY user_id DESC
		LIMIT 1`, code, userID).Scan(&c.Code, &c.UserID, &c.Name, &c.Symbol, &c.DecimalPlaces)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownCurrency, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query currency: %w", err)
	}
	return &c, nil
}

// CreateCurrency stores a currency definition. An empty UserID makes it
// global. When Symbol or DecimalPlaces are unset for an ISO code they are
// taken from the ISO table.
func (s *SQLiteStorage) CreateCurrency(ctx context.Context, currency *model.Currency) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCurrency(currency); err != nil {
		return err
	}

	currency.Code = model.NormalizeCurrencyCode(currency.Code)
	if iso, ok := model.ISOCurrency(currency.Code); ok {
		if currency.Symbol == "" {
			currency.Symbol = iso.Symbol
		}
		if currency.DecimalPlaces == 0 {
			currency.DecimalPlaces = iso.DecimalPlaces
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO currencies (code, user_id, name, symbol, decimal_places)
		VALUES (?, ?, ?, ?, ?)`,
		currency.Code, currency.UserID, currency.Name, currency.Symbol, currency.DecimalPlaces)
	if err != nil {
		return fmt.Errorf("failed to create currency: %w", translate(err, "currency "+currency.Code))
	}
	return nil
}
