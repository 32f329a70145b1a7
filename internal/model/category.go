// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// AccountType classifies a category, and through it every account filed under it.
type AccountType string

const (
	// AccountTypeAsset represents things the user owns (cash, savings, investments).
	AccountTypeAsset AccountType = "ASSET"
	// AccountTypeLiability represents things the user owes (loans, credit cards).
	AccountTypeLiability AccountType = "LIABILITY"
	// AccountTypeIncome represents money flowing in (salary, interest).
	AccountTypeIncome AccountType = "INCOME"
	// AccountTypeExpense represents money flowing out (groceries, rent).
	AccountTypeExpense AccountType = "EXPENSE"
)

// AccountTypes lists every account type in reporting order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeIncome,
	AccountTypeExpense,
}

// Valid reports whether t is one of the four known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeIncome, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// IsStock reports whether accounts of this type carry a point-in-time balance.
func (t AccountType) IsStock() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

// IsFlow reports whether accounts of this type accumulate a sum over a period.
func (t AccountType) IsFlow() bool {
	return t == AccountTypeIncome || t == AccountTypeExpense
}

// ParseAccountType parses an account type case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type %q: must be ASSET, LIABILITY, INCOME or EXPENSE", s)
	}
	return t, nil
}

// Category groups accounts. Top-level categories fix the account type;
// subcategories inherit it from their root.
type Category struct {
	CreatedAt time.Time
	ParentID  *string
	Order     *int
	ID        string
	UserID    string
	Name      string
	Type      AccountType
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}
