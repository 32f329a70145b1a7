package model

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency describes a currency known to the ledger. Global currencies have
// an empty UserID; user-defined ones belong to a single user.
type Currency struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	UserID        string `json:"userId,omitempty"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

// IsGlobal reports whether the currency is shared by all users.
func (c Currency) IsGlobal() bool {
	return c.UserID == ""
}

// NormalizeCurrencyCode upper-cases and trims a currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Format renders an amount using the currency's precision. ISO currencies use
// go-money's formatter so symbols and separators follow the usual template.
func (c Currency) Format(amount decimal.Decimal) string {
	rounded := amount.Round(int32(c.DecimalPlaces))
	if iso := money.GetCurrency(c.Code); iso != nil && iso.Fraction == c.DecimalPlaces {
		return iso.Formatter().Format(rounded.Shift(int32(c.DecimalPlaces)).IntPart())
	}
	if c.Symbol != "" {
		return c.Symbol + rounded.StringFixed(int32(c.DecimalPlaces))
	}
	return rounded.StringFixed(int32(c.DecimalPlaces)) + " " + c.Code
}

// ISOCurrency returns the ISO 4217 metadata known to go-money for code.
// Names are not part of that table, so Name is left to the caller.
func ISOCurrency(code string) (Currency, bool) {
	iso := money.GetCurrency(NormalizeCurrencyCode(code))
	if iso == nil {
		return Currency{}, false
	}
	return Currency{
		Code:          iso.Code,
		Symbol:        iso.Grapheme,
		DecimalPlaces: iso.Fraction,
	}, true
}
