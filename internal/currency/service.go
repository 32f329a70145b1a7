// Package currency converts amounts between currencies using the stored
// exchange rates of a user.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// BaseCurrencyReader is implemented by rate stores that also know the user's
// reporting currency. When the store passed to NewService implements it, the
// user's base currency is the first bridge candidate.
type BaseCurrencyReader interface {
	GetBaseCurrency(ctx context.Context, userID string) (string, error)
}

// Item is one amount to convert.
type Item struct {
	Amount   decimal.Decimal
	Currency string
}

// ConversionResult describes the outcome of converting one amount. A failed
// conversion carries the original amount as ConvertedAmount.
type ConversionResult struct {
	RateDate         *time.Time      `json:"rateDate,omitempty"`
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	ConvertedAmount  decimal.Decimal `json:"convertedAmount"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`
	OriginalCurrency string          `json:"originalCurrency"`
	TargetCurrency   string          `json:"targetCurrency"`
	Error            string          `json:"error,omitempty"`
	Strategy         Strategy        `json:"strategy,omitempty"`
	Via              string          `json:"via,omitempty"`
	Success          bool            `json:"success"`
}

// Service converts amounts. It keeps no state between calls.
type Service struct {
	rates       service.RateReader
	now         func() time.Time
	defaultBase string
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultBaseCurrency sets the bridge currency used when the user has
// not chosen a base currency.
func WithDefaultBaseCurrency(code string) Option {
	return func(s *Service) {
		s.defaultBase = model.NormalizeCurrencyCode(code)
	}
}

// WithClock overrides the clock used when no as-of date is given.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a conversion service reading rates from rates.
func NewService(rates service.RateReader, opts ...Option) *Service {
	s := &Service{
		rates: rates,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert converts a single amount. Missing rates are reported in the result,
// not as an error; an error means the rate store could not be read.
func (s *Service) Convert(ctx context.Context, userID string, amount decimal.Decimal, from, to string, asOf *time.Time) (ConversionResult, error) {
	results, err := s.ConvertMultiple(ctx, userID, []Item{{Amount: amount, Currency: from}}, to, asOf)
	if err != nil {
		return ConversionResult{}, err
	}
	return results[0], nil
}

type bucket struct {
	from, to string
	day      time.Time
}

type resolution struct {
	rate Rate
	ok   bool
}

// ConvertMultiple converts every item into to, preserving order. Rates are
// loaded once for the whole batch and each distinct currency pair is resolved
// once.
func (s *Service) ConvertMultiple(ctx context.Context, userID string, items []Item, to string, asOf *time.Time) ([]ConversionResult, error) {
	target := model.NormalizeCurrencyCode(to)
	day := model.DateOnly(s.now())
	if asOf != nil {
		day = model.DateOnly(*asOf)
	}

	results := make([]ConversionResult, len(items))
	needsRates := false
	for i, item := range items {
		results[i] = ConversionResult{
			OriginalAmount:   item.Amount,
			OriginalCurrency: model.NormalizeCurrencyCode(item.Currency),
			TargetCurrency:   target,
			ConvertedAmount:  item.Amount,
		}
		if results[i].OriginalCurrency != target {
			needsRates = true
		}
	}
	if len(items) == 0 {
		return results, nil
	}
	if target == "" {
		for i := range results {
			results[i].Error = "target currency is required"
		}
		return results, nil
	}

	table := NewRateTable(nil)
	base := s.defaultBase
	if needsRates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stored, err := s.rates.ListExchangeRates(ctx, userID, day)
		if err != nil {
			return nil, fmt.Errorf("failed to load exchange rates: %w", err)
		}
		table = NewRateTable(stored)

		base, err = s.baseCurrency(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	resolved := make(map[bucket]resolution)
	for i := range results {
		r := &results[i]
		if r.OriginalCurrency == "" {
			r.Error = "source currency is required"
			continue
		}

		key := bucket{from: r.OriginalCurrency, to: target, day: day}
		res, cached := resolved[key]
		if !cached {
			res.rate, res.ok = table.Resolve(key.from, key.to, base, day)
			resolved[key] = res
		}

		if !res.ok {
			r.Error = fmt.Sprintf("no exchange rate from %s to %s on or before %s", key.from, key.to, day.Format(model.DateLayout))
			continue
		}
		r.Success = true
		r.ExchangeRate = res.rate.Value
		r.ConvertedAmount = r.OriginalAmount.Mul(res.rate.Value)
		r.Strategy = res.rate.Strategy
		r.Via = res.rate.Via
		if !res.rate.Date.IsZero() {
			d := res.rate.Date
			r.RateDate = &d
		}
	}

	common.LogDebug(ctx, "Converted batch", common.Fields{
		"items":       len(items),
		"pairs":       len(resolved),
		"rates":       table.Len(),
		"target":      target,
		"as_of":       day.Format(model.DateLayout),
		"store_query": needsRates,
	})

	return results, nil
}

func (s *Service) baseCurrency(ctx context.Context, userID string) (string, error) {
	reader, ok := s.rates.(BaseCurrencyReader)
	if !ok {
		return s.defaultBase, nil
	}
	base, err := reader.GetBaseCurrency(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return s.defaultBase, nil
	case err != nil:
		return "", fmt.Errorf("failed to load base currency: %w", err)
	}
	return model.NormalizeCurrencyCode(base), nil
}
