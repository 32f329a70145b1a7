package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource indicates how an exchange rate was recorded.
type RateSource string

const (
	// RateSourceUser indicates the rate was entered by the user.
	RateSourceUser RateSource = "USER"
	// RateSourceAuto indicates the rate was fetched automatically.
	RateSourceAuto RateSource = "AUTO"
)

// ExchangeRate is the price of one unit of FromCurrency in ToCurrency,
// effective from EffectiveDate until superseded by a later rate.
type ExchangeRate struct {
	EffectiveDate time.Time
	CreatedAt     time.Time
	Rate          decimal.Decimal
	ID            string
	UserID        string
	FromCurrency  string
	ToCurrency    string
	Source        RateSource
}

// Supersedes reports whether r should win over other when both are candidates
// for the same currency pair: later effective dates win, then user-entered
// rates over automatic ones, then the most recently recorded.
func (r ExchangeRate) Supersedes(other ExchangeRate) bool {
	rd, od := DateOnly(r.EffectiveDate), DateOnly(other.EffectiveDate)
	if !rd.Equal(od) {
		return rd.After(od)
	}
	if r.Source != other.Source {
		return r.Source == RateSourceUser
	}
	return r.CreatedAt.After(other.CreatedAt)
}
