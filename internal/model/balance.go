package model

import "github.com/shopspring/decimal"

// Balance is the derived amount an account holds in one currency. It is
// computed per request and never stored.
type Balance struct {
	Currency        *Currency        `json:"currency,omitempty"`
	ConvertedAmount *decimal.Decimal `json:"convertedAmount,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	CurrencyCode    string           `json:"currencyCode"`
	Amount          decimal.Decimal  `json:"amount"`
	Success         bool             `json:"success"`
}
