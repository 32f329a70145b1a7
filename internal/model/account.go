package model

import "time"

// Account is a named ledger account filed under exactly one category and
// denominated in one currency.
type Account struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Color     string
	Category  Category
	Currency  Currency
}

// EffectiveType returns the account type inherited from the account's category.
func (a Account) EffectiveType() AccountType {
	return a.Category.Type
}
