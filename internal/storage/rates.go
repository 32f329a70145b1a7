package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveExchangeRate stores a rate. An empty UserID makes it global. ID and
// CreatedAt are filled in when empty; Source defaults to USER.
func (s *SQLiteStorage) SaveExchangeRate(ctx context.Context, rate *model.ExchangeRate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rate != nil && rate.Source == "" {
		rate.Source = model.RateSourceUser
	}
	if err := validateExchangeRate(rate); err != nil {
		return err
	}

	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = s.now()
	}
	rate.FromCurrency = model.NormalizeCurrencyCode(rate.FromCurrency)
	rate.ToCurrency = model.NormalizeCurrencyCode(rate.ToCurrency)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (
			id, user_id, from_currency, to_currency, rate, effective_date, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID, rate.UserID, rate.FromCurrency, rate.ToCurrency, rate.Rate.String(),
		model.DateOnly(rate.EffectiveDate).Format(model.DateLayout),
		string(rate.Source), formatTimestamp(rate.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save exchange rate: %w", translate(err, "exchange rate "+rate.ID))
	}

	slog.Debug("saved exchange rate",
		"from", rate.FromCurrency,
		"to", rate.ToCurrency,
		"rate", rate.Rate.String(),
		"effective_date", rate.EffectiveDate.Format(model.DateLayout))
	return nil
}

// ListExchangeRates returns the user's and the global rates effective on or
// before asOf.
func (s *SQLiteStorage) ListExchangeRates(ctx context.Context, userID string, asOf time.Time) ([]model.ExchangeRate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, from_currency, to_currency, rate, effective_date, source, created_at
		FROM exchange_rates
		WHERE (user_id = '' OR user_id = ?) AND effective_date <= ?
		ORDER BY from_currency, to_currency, effective_date, created_at`,
		userID, model.DateOnly(asOf).Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rates []model.ExchangeRate
	for rows.Next() {
		r, err := scanExchangeRate(rows)
		if err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rates: %w", err)
	}

	slog.Debug("retrieved exchange rates", "count", len(rates), "as_of", asOf.Format(model.DateLayout))
	return rates, nil
}

func scanExchangeRate(rows *sql.Rows) (model.ExchangeRate, error) {
	var (
		r         model.ExchangeRate
		rate      string
		effective string
		source    string
		created   string
	)
	if err := rows.Scan(&r.ID, &r.UserID, &r.FromCurrency, &r.ToCurrency, &rate, &effective, &source, &created); err != nil {
		return model.ExchangeRate{}, fmt.Errorf("failed to scan exchange rate: %w", err)
	}
	r.Source = model.RateSource(source)

	var err error
	if r.Rate, err = decimal.NewFromString(rate); err != nil {
		return model.ExchangeRate{}, fmt.Errorf("%w: exchange rate %s has invalid rate %q: %w", common.ErrDatabaseCorrupted, r.ID, rate, err)
	}
	if r.EffectiveDate, err = model.ParseDate(effective); err != nil {
		return model.ExchangeRate{}, fmt.Errorf("%w: exchange rate %s has invalid date %q: %w", common.ErrDatabaseCorrupted, r.ID, effective, err)
	}
	if r.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.ExchangeRate{}, fmt.Errorf("%w: exchange rate %s has invalid created_at %q: %w", common.ErrDatabaseCorrupted, r.ID, created, err)
	}
	return r, nil
}
